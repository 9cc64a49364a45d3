package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chosenoffset.com/void/internal/audio"
	ebitenaudio "chosenoffset.com/void/internal/audio/ebiten"
	"chosenoffset.com/void/internal/config"
	"chosenoffset.com/void/internal/dialogue/ast"
	"chosenoffset.com/void/internal/dialogue/compiler"
	"chosenoffset.com/void/internal/game"
	"chosenoffset.com/void/internal/platform/logger"
	ebitenrender "chosenoffset.com/void/internal/render/ebiten"
)

func main() {
	configPath := flag.String("config", "void.yaml", "path to the config file")
	chapterPath := flag.String("chapter", "", "chapter to play, overrides the config (.chap or .xml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *chapterPath != "" {
		cfg.Dialogue.Chapter = *chapterPath
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("void exited with error", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the renderer backend (ebiten)
	renderer := ebitenrender.NewRenderer()
	inputMgr := ebitenrender.NewInputManager()
	loader := ebitenrender.NewResourceLoader()
	engine := ebitenrender.NewEngine()

	sender := startAudio(ctx, cfg, log)
	if sys, ok := sender.(*audio.System); ok {
		defer sys.Close()
	}

	ch, err := loadChapter(cfg.Dialogue.Chapter, log)
	if err != nil {
		return err
	}

	g, err := game.New(cfg, log, renderer, inputMgr, loader, sender)
	if err != nil {
		return err
	}
	defer g.Close()
	g.LoadChapter(ch)

	// Set up the window
	engine.SetWindowSize(cfg.Window.Width*cfg.Window.Scale, cfg.Window.Height*cfg.Window.Scale)
	engine.SetWindowTitle(cfg.Window.Title)
	engine.SetWindowResizable(true)

	log.Info("starting game", "chapter", cfg.Dialogue.Chapter)
	if err := engine.RunGame(g); err != nil && !errors.Is(err, game.ErrQuit) {
		return err
	}
	return nil
}

// startAudio opens the audio device. The game runs silently when audio is
// disabled or the device cannot be opened.
func startAudio(ctx context.Context, cfg *config.Config, log *logger.Logger) audio.Sender {
	if !cfg.Audio.Enabled {
		log.Info("audio disabled")
		return audio.Discard{}
	}

	effects := map[int]string{}
	if cfg.Audio.Blip != "" {
		effects[audio.BlipEffect] = cfg.Audio.Blip
	}
	backend, err := ebitenaudio.New(ebitenaudio.Options{
		SampleRate: cfg.Audio.SampleRate,
		Effects:    effects,
		SoundsDir:  cfg.Audio.SoundsDir,
		Music:      cfg.Audio.Music,
	})
	if err != nil {
		log.Warn("audio unavailable, running without sound", "error", err)
		return audio.Discard{}
	}

	return audio.Start(ctx, backend, log.With("system", "audio"), audio.Volumes{
		Master:  cfg.Audio.MasterVolume,
		Music:   cfg.Audio.MusicVolume,
		Effects: cfg.Audio.EffectsVolume,
	})
}

// loadChapter reads a compiled artifact, or compiles an XML script in
// process so scripts can be tried without running dialoguec.
func loadChapter(path string, log *logger.Logger) (*ast.Chapter, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xml") {
		ch, err := ast.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load chapter: %w", err)
		}
		return ch, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	res, err := compiler.New(log.With("script", path)).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res.Chapter, nil
}
