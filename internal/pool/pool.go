// Package pool compiles a corpus manifest into the bounded runtime glyph
// pool and serves that pool at runtime: a load-once loader, deterministic
// phrase picking, and a text to token cache.
package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Sentinel errors for pool compilation and loading.
var (
	// ErrManifestNotFound is returned when the corpus manifest is missing.
	ErrManifestNotFound = errors.New("pool: manifest not found")

	// ErrEmptyCorpus is returned when the manifest has no items.
	ErrEmptyCorpus = errors.New("pool: manifest has no items")

	// ErrArtifactNotFound is returned by ReadFile when no pool was built.
	ErrArtifactNotFound = errors.New("pool: artifact not found")
)

// MissingAssetError reports a glyph asset referenced by the sampled phrases
// that does not exist under the source root.
type MissingAssetError struct {
	Path string
}

func (e *MissingAssetError) Error() string {
	return "pool: missing glyph asset: " + e.Path
}

// GeneratedHeader marks artifacts written by Compile.
const GeneratedHeader = "GENERATED FILE. DO NOT EDIT BY HAND."

// ArtifactName is the default file name of the compiled pool.
const ArtifactName = "pool.gen.json"

// GlyphRecord is one glyph of a shipped phrase. File and FlickerVariants
// hold locators, not filesystem paths.
type GlyphRecord struct {
	Index           int      `json:"glyphIndex"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	File            string   `json:"file"`
	FlickerVariants []string `json:"flickerVariants"`
}

// PhraseRecord is one shipped phrase; Glyphs are in reading order.
type PhraseRecord struct {
	ID     string        `json:"id"`
	Text   string        `json:"text"`
	Glyphs []GlyphRecord `json:"glyphs"`
}

// GlyphPool is the compiled artifact. It is immutable once loaded.
type GlyphPool struct {
	Generated    string         `json:"_generated,omitempty"`
	Source       string         `json:"source,omitempty"`
	Seed         uint32         `json:"seed"`
	Frames       int            `json:"frames"`
	SampledCount int            `json:"sampledCount"`
	TotalCount   int            `json:"totalCount"`
	GlyphCount   int            `json:"glyphCount"`
	Phrases      []PhraseRecord `json:"phrases"`
	GlyphTokens  []GlyphRecord  `json:"glyphTokens"`
}

// ReadFile loads a compiled pool from disk.
func ReadFile(path string) (*GlyphPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read pool: %w", err)
	}
	var p GlyphPool
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", path, err)
	}
	return &p, nil
}

// WriteFile stores p as indented JSON, creating parent directories.
func WriteFile(path string, p *GlyphPool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pool dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pool: %w", err)
	}
	return nil
}
