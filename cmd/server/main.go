// glyph-timescan-server gives every SSH connection its own timescan player
// over one shared glyph pool, and optionally streams playback to browsers
// over websockets. Build:
//
//	go build -o glyph-timescan-server ./cmd/server
//
// Usage:
//
//	./glyph-timescan-server [--port 2222] [--key server_host_key] [--pool public/glyphs/pool.gen.json] [--http :8080]
//
// Connect and pick the overlay text with the remote command:
//
//	ssh -t -p 2222 localhost "It blinked back"
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	xssh "golang.org/x/crypto/ssh"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/player"
	"glyph-timescan/internal/pool"
	internalssh "glyph-timescan/internal/ssh"
	"glyph-timescan/internal/stream"
)

func main() {
	port := flag.Int("port", 2222, "SSH server port")
	keyFile := flag.String("key", "server_host_key", "Path to the PEM-encoded host key (auto-generated if absent)")
	poolFile := flag.String("pool", filepath.Join("public", "glyphs", pool.ArtifactName), "Glyph pool artifact")
	configFile := flag.String("config", "", "Optional ini file overriding the built-in defaults")
	httpAddr := flag.String("http", "", "Serve the websocket stream and glyph images on this address (disabled if empty)")
	origins := flag.String("origin", "", "Comma-separated extra browser origins allowed on the websocket stream")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	loader := pool.FileLoader(*poolFile)
	resolver, err := pool.NewResolver(loader, pool.DefaultCacheSize, logger)
	if err != nil {
		log.Fatalf("glyph resolver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if _, err := loader.Load(ctx); err != nil {
			logger.Warn("glyph pool not loaded", "path", *poolFile, "err", err)
		}
	}()

	signer, err := loadOrCreateHostKey(*keyFile)
	if err != nil {
		log.Fatal(err)
	}

	h := &handler{cfg: cfg, loader: loader, source: resolver, log: logger}
	srv := &gossh.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: h.handleSession,
		// Accept PTY requests from any client.
		PtyCallback: func(_ gossh.Context, _ gossh.Pty) bool { return true },
		// Accept any authentication; the timescan is read-only.
		HostSigners: []gossh.Signer{signer},
	}

	var hub *stream.Hub
	var httpSrv *http.Server
	if *httpAddr != "" {
		hub = stream.NewHub(cfg, resolver, logger)
		hub.AllowOrigins(strings.Split(*origins, ",")...)
		httpSrv = &http.Server{
			Addr:              *httpAddr,
			Handler:           newMux(hub, cfg.Build.URLPrefix, filepath.Dir(*poolFile)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("websocket stream listening", "addr", *httpAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("http server: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if hub != nil {
			hub.Close()
		}
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}
		_ = srv.Close()
	}()

	log.Printf("glyph-timescan SSH server listening on :%d", *port)
	log.Printf("Connect with:  ssh -t -p %d -o StrictHostKeyChecking=no localhost", *port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, gossh.ErrServerClosed) {
		log.Fatal(err)
	}
}

// newMux routes the websocket stream and the staged glyph images.
func newMux(hub *stream.Hub, urlPrefix, assetDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/stream", hub)
	prefix := "/" + strings.Trim(urlPrefix, "/") + "/"
	if prefix != "//" {
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(assetDir))))
	}
	return mux
}

// ─── ssh sessions ───────────────────────────────────────────────────────────

// handler runs one terminal player per SSH connection.
type handler struct {
	cfg    config.Options
	loader *pool.Loader
	source player.GlyphSource
	log    *slog.Logger
}

// handleSession is the gliderlabs SSH handler for one connection.
// It blocks for the duration of the connection so the SSH session stays open.
func (h *handler) handleSession(s gossh.Session) {
	screen, err := internalssh.NewScreen(s)
	if errors.Is(err, internalssh.ErrNoPty) {
		fmt.Fprintln(s, "The timescan requires a PTY. Connect with: ssh -t -p 2222 <host>")
		return
	}
	if err != nil {
		fmt.Fprintf(s, "Terminal setup failed: %v\n", err)
		return
	}
	defer screen.Fini()

	id := uuid.NewString()
	logger := h.log.With("session", id, "user", s.User())
	logger.Info("session started", "remote", s.RemoteAddr().String())

	var texts []string
	if text := sanitizeText(strings.Join(s.Command(), " ")); text != "" {
		texts = []string{text}
	}
	if !h.loader.Loaded() {
		showLoading(screen)
	}

	p, err := player.New(screen, player.Options{
		Config:    h.cfg,
		Source:    h.source,
		Texts:     texts,
		SessionID: id,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("player setup failed", "err", err)
		return
	}
	if err := p.Run(s.Context()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("player stopped", "err", err)
	}
	logger.Info("session ended")
}

// maxTextBytes bounds overlay text taken from the SSH command line.
const maxTextBytes = 120

// sanitizeText drops control characters and truncates to maxTextBytes
// without splitting a rune.
func sanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		if b.Len()+len(string(r)) > maxTextBytes {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// showLoading displays a "loading" message while the glyph pool is read.
func showLoading(screen tcell.Screen) {
	screen.Clear()
	msg := "Loading glyph pool..."
	w, h := screen.Size()
	x := (w - len(msg)) / 2
	y := h / 2
	style := tcell.StyleDefault.Foreground(tcell.ColorAqua)
	for i, r := range msg {
		screen.SetContent(x+i, y, r, nil, style)
	}
	screen.Show()
}

// ─── host key ───────────────────────────────────────────────────────────────

// loadOrCreateHostKey loads a PEM private key from path, or generates and
// persists a new ed25519 key if the file is absent or unreadable.
func loadOrCreateHostKey(path string) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		if signer, err := xssh.ParsePrivateKey(data); err == nil {
			log.Printf("Loaded host key from %s", path)
			return signer, nil
		}
	}

	log.Printf("Generating new ed25519 host key → %s", path)
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	// Persist for next run (non-fatal if it fails).
	if pemBlock, err := xssh.MarshalPrivateKey(key, "glyph-timescan server"); err == nil {
		_ = os.WriteFile(path, pem.EncodeToMemory(pemBlock), 0600)
	}
	return signer, nil
}
