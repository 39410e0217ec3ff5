package stream

import "glyph-timescan/internal/layout"

// Command ops sent by the client.
const (
	OpText  = "text"
	OpPlay  = "play"
	OpStop  = "stop"
	OpWidth = "width"
)

// Command is one client message.
type Command struct {
	Op        string  `json:"op"`
	Text      string  `json:"text,omitempty"`
	Width     float64 `json:"width,omitempty"`
	MinGlyphs int     `json:"minGlyphs,omitempty"`
}

// Token is a laid-out glyph as the client draws it.
type Token struct {
	File     string   `json:"file"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Slot     int      `json:"slot"`
	Repeat   bool     `json:"repeat,omitempty"`
	Variants []string `json:"variants"`
}

// Frame is one server message: the animation state, plus the strip when it
// changed.
type Frame struct {
	Session         string  `json:"session"`
	RunID           uint64  `json:"runId"`
	Visible         []bool  `json:"visible"`
	ActiveLayer     []int   `json:"activeLayer"`
	ConsumedHidden  []bool  `json:"consumedHidden"`
	OverlayRevealPx float64 `json:"overlayRevealPx"`
	TotalWidthPx    float64 `json:"totalWidthPx"`
	Playing         bool    `json:"playing"`
	Pending         bool    `json:"pending,omitempty"`
	Text            string  `json:"text,omitempty"`
	Tokens          []Token `json:"tokens,omitempty"`
	GapPx           float64 `json:"gapPx,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func tokenFrames(s layout.Strip) []Token {
	out := make([]Token, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = Token{
			File:     t.File,
			Width:    t.RenderWidth,
			Height:   t.RenderHeight,
			Slot:     s.SlotWidths[i],
			Repeat:   t.Repeat,
			Variants: s.Variants[i],
		}
	}
	return out
}
