package game

import (
	"errors"
	"fmt"

	"chosenoffset.com/void/internal/audio"
	"chosenoffset.com/void/internal/config"
	"chosenoffset.com/void/internal/controls"
	"chosenoffset.com/void/internal/dialogue"
	"chosenoffset.com/void/internal/dialogue/ast"
	"chosenoffset.com/void/internal/platform/logger"
	"chosenoffset.com/void/internal/render"
)

// ErrQuit is returned from Update when the player asks to leave.
var ErrQuit = errors.New("quit requested")

// drawQueueSize is the initial capacity of the per-frame draw queue.
const drawQueueSize = 64

// Game holds all game state and logic.
type Game struct {
	ScreenWidth  int
	ScreenHeight int
	Renderer     render.Renderer
	InputMgr     render.InputManager
	Loader       render.ResourceLoader

	cfg   *config.Config
	log   *logger.Logger
	audio audio.Sender

	controls   controls.Controls
	ticks      uint64
	dialogue   *dialogue.System
	finished   bool
	queue      *render.Queue
	background render.Background
}

// New creates the game. The background image, if configured, is loaded
// through loader. A nil sender runs without sound.
func New(cfg *config.Config, log *logger.Logger, r render.Renderer, input render.InputManager, loader render.ResourceLoader, sender audio.Sender) (*Game, error) {
	if log == nil {
		log = logger.Nop()
	}
	if sender == nil {
		sender = audio.Discard{}
	}

	clearColor, err := config.ParseHexColor(cfg.Window.ClearColor)
	if err != nil {
		return nil, fmt.Errorf("window clear_color: %w", err)
	}

	g := &Game{
		ScreenWidth:  cfg.Window.Width,
		ScreenHeight: cfg.Window.Height,
		Renderer:     r,
		InputMgr:     input,
		Loader:       loader,
		cfg:          cfg,
		log:          log,
		audio:        sender,
		queue:        render.NewQueue(drawQueueSize),
		background:   render.Background{Color: clearColor},
	}

	if cfg.Window.Background != "" {
		img, err := loader.LoadImage(cfg.Window.Background)
		if err != nil {
			return nil, fmt.Errorf("failed to load background: %w", err)
		}
		g.background.Image = img
	}

	if cfg.Audio.Music != "" {
		g.audio.Send(audio.PlayMusic{})
	}
	return g, nil
}

// LoadChapter replaces the playing chapter and clears the screen.
func (g *Game) LoadChapter(ch *ast.Chapter) {
	d := g.cfg.Dialogue
	g.dialogue = dialogue.New(ch,
		dialogue.WithBufferSize(d.BufferSize),
		dialogue.WithLayout(dialogue.Layout{
			Left:       d.Left,
			Top:        d.Top,
			LineHeight: d.LineHeight,
			CharWidth:  d.CharWidth,
		}),
		dialogue.WithVoiceColors(g.cfg.VoiceColors()),
		dialogue.WithFadeTicks(d.FadeTicks),
		dialogue.WithLogger(g.log),
	)
	g.finished = false
	g.log.Info("chapter loaded", "voice", ch.Voice, "expressions", len(ch.Content))
}

// Ticks returns the number of updates run so far.
func (g *Game) Ticks() uint64 {
	return g.ticks
}

// Dialogue returns the playing chapter, or nil.
func (g *Game) Dialogue() *dialogue.System {
	return g.dialogue
}

// Update handles game logic updates.
func (g *Game) Update() error {
	g.controls.Poll(g.InputMgr)
	if g.InputMgr.IsKeyJustPressed(render.KeyEscape) {
		return ErrQuit
	}

	if g.dialogue != nil && !g.finished {
		if g.dialogue.Done() {
			g.finished = true
			g.log.Info("chapter finished", "ticks", g.ticks)
		} else {
			err := g.dialogue.Update(&dialogue.IO{
				Ticks:   g.ticks,
				Confirm: g.controls.Confirm(),
				Audio:   g.audio,
			})
			if err != nil {
				return fmt.Errorf("dialogue: %w", err)
			}
		}
	}

	g.ticks++
	return nil
}

// Draw renders the game to the screen.
func (g *Game) Draw(screen render.Image) {
	g.queue.Push(render.DrawBg{})
	if g.dialogue != nil {
		g.dialogue.Draw(g.queue)
	}
	render.Present(g.Renderer, screen, g.background, g.queue)
}

// Close releases the background image. The game must not be drawn afterwards.
func (g *Game) Close() {
	if g.background.Image != nil {
		g.background.Image.Dispose()
		g.background.Image = nil
	}
}

// Layout returns the fixed logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.ScreenWidth, g.ScreenHeight
}
