package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/player"
	"glyph-timescan/internal/pool"
)

func main() {
	poolFile := flag.String("pool", filepath.Join("public", "glyphs", pool.ArtifactName), "Glyph pool artifact")
	configFile := flag.String("config", "", "Optional ini file overriding the built-in defaults")
	text := flag.String("text", "", "Overlay text (default: cycle through the demo texts)")
	minGlyphs := flag.Int("min-glyphs", 0, "Minimum glyphs covering the text (0 keeps the configured value)")
	logFile := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	if err := run(*poolFile, *configFile, *text, *minGlyphs, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(poolFile, configFile, text string, minGlyphs int, logFile string) error {
	// The screen owns the terminal, so logs go to a file or nowhere.
	logger := slog.New(slog.DiscardHandler)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	loader := pool.FileLoader(poolFile)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// Fail before taking over the terminal.
	if _, err := loader.Load(ctx); err != nil {
		return err
	}
	resolver, err := pool.NewResolver(loader, pool.DefaultCacheSize, logger)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	var texts []string
	if text != "" {
		texts = []string{text}
	}
	p, err := player.New(screen, player.Options{
		Config:    cfg,
		Source:    resolver,
		Texts:     texts,
		MinGlyphs: minGlyphs,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
