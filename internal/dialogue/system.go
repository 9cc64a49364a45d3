// Package dialogue plays a compiled chapter: a tick-driven typewriter that
// reveals lines character by character into a small scroll-back buffer,
// pauses on await actions and forwards instructions to the audio system.
package dialogue

import (
	"errors"
	"image/color"
	"unicode/utf8"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"chosenoffset.com/void/internal/audio"
	"chosenoffset.com/void/internal/dialogue/ast"
	"chosenoffset.com/void/internal/platform/logger"
)

// ErrEndOfChapter is returned by Update once every expression has been
// played. The game is expected to open a new chapter before that happens.
var ErrEndOfChapter = errors.New("end of chapter reached")

const (
	// DefaultBufferSize is the number of visible lines.
	DefaultBufferSize = 4

	// maxFreeSteps bounds the reveal steps taken in one update.
	maxFreeSteps = 64

	spaceDelay = 2
)

// DirectiveKind is the state of the playback automaton.
type DirectiveKind int

const (
	DirectiveNone DirectiveKind = iota
	DirectiveAwait
	DirectiveOutputLine
)

func (d DirectiveKind) String() string {
	switch d {
	case DirectiveNone:
		return "None"
	case DirectiveAwait:
		return "Await"
	case DirectiveOutputLine:
		return "OutputLine"
	default:
		return "Unknown"
	}
}

// IO is what the system reads and writes during one update.
type IO struct {
	Ticks   uint64       // ticks since the game started
	Confirm bool         // confirm was pressed this tick
	Audio   audio.Sender // nil drops every cue
}

func (io *IO) send(msg audio.Msg) {
	if io.Audio != nil {
		io.Audio.Send(msg)
	}
}

// Layout positions the line buffer on screen.
type Layout struct {
	Left       float32
	Top        float32
	LineHeight float32
	CharWidth  float32
}

// DefaultLayout is the dialogue box of a 512x288 screen.
func DefaultLayout() Layout {
	return Layout{Left: 12, Top: 226, LineHeight: 12, CharWidth: 8}
}

// Option configures a System.
type Option func(*System)

// WithBufferSize sets the number of visible lines.
func WithBufferSize(n int) Option {
	return func(s *System) { s.lines = NewLineBuffer(n) }
}

// WithLayout sets where lines are drawn.
func WithLayout(l Layout) Option {
	return func(s *System) { s.layout = l }
}

// WithVoiceColors sets the text colour per chapter voice.
func WithVoiceColors(palette map[string]color.NRGBA) Option {
	return func(s *System) { s.palette = palette }
}

// WithFadeTicks sets how many ticks a new line takes to fade in. Zero draws
// it opaque at once.
func WithFadeTicks(n int) Option {
	return func(s *System) {
		if n < 0 {
			n = 0
		}
		s.fadeTicks = n
	}
}

// WithLogger sets the logger for directive changes and warnings.
func WithLogger(log *logger.Logger) Option {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

// System plays one chapter.
type System struct {
	chapter *ast.Chapter
	cursor  int

	directive DirectiveKind
	output    *outputLine
	lines     *LineBuffer

	layout    Layout
	palette   map[string]color.NRGBA
	fadeTicks int
	fade      *gween.Tween
	alpha     float32

	log *logger.Logger
}

// outputLine is the reveal state of the line being typed out.
type outputLine struct {
	children   []ast.LineChild
	next       int
	span       *spanReader
	nextUpdate uint64
	out        Line
	done       bool
}

type spanReader struct {
	chars []rune
	pos   int
	speed uint32
}

func (r *spanReader) next() (rune, bool) {
	if r.pos >= len(r.chars) {
		return 0, false
	}
	c := r.chars[r.pos]
	r.pos++
	return c, true
}

func (r *spanReader) peek() (rune, bool) {
	if r.pos >= len(r.chars) {
		return 0, false
	}
	return r.chars[r.pos], true
}

// New creates a system positioned at the start of ch.
func New(ch *ast.Chapter, opts ...Option) *System {
	s := &System{
		chapter: ch,
		lines:   NewLineBuffer(DefaultBufferSize),
		layout:  DefaultLayout(),
		log:     logger.Nop(),
		alpha:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("voice", ch.Voice)
	return s
}

// Directive returns the current automaton state.
func (s *System) Directive() DirectiveKind {
	return s.directive
}

// Done reports whether the chapter has been played to the end.
func (s *System) Done() bool {
	return s.directive == DirectiveNone && s.cursor >= len(s.chapter.Content)
}

// Lines returns a copy of the filled slots, oldest first.
func (s *System) Lines() []Line {
	var out []Line
	for i := 0; i < s.lines.Cap(); i++ {
		if l, ok := s.lines.At(i); ok {
			out = append(out, l.clone())
		}
	}
	return out
}

// Update advances the automaton by one tick.
func (s *System) Update(io *IO) error {
	s.updateFade()

	var err error
	switch s.directive {
	case DirectiveNone:
		err = s.pull(io)
	case DirectiveAwait:
		if io.Confirm {
			s.setDirective(DirectiveNone)
		}
	case DirectiveOutputLine:
		s.reveal(io)
	}

	// Nothing updates a finished chapter, so its last line is shown opaque.
	if s.Done() {
		s.finishFade()
	}
	return err
}

func (s *System) setDirective(d DirectiveKind) {
	if d != s.directive {
		s.log.Debug("directive changed", "from", s.directive, "to", d)
	}
	s.directive = d
}

// pull takes the next chapter expression.
func (s *System) pull(io *IO) error {
	if s.cursor >= len(s.chapter.Content) {
		return ErrEndOfChapter
	}
	expr := s.chapter.Content[s.cursor]
	s.cursor++

	switch e := expr.(type) {
	case ast.Action:
		if e == ast.Await {
			s.setDirective(DirectiveAwait)
		} else {
			s.log.Warn("skipping unknown action", "action", uint32(e))
		}
	case ast.Instruction:
		runInstruction(io, e)
	case ast.Line:
		s.lines.Push(Line{})
		s.output = &outputLine{children: e.Content}
		s.startFade()
		s.setDirective(DirectiveOutputLine)
	}
	return nil
}

func runInstruction(io *IO, in ast.Instruction) {
	switch i := in.(type) {
	case ast.Play:
		io.send(audio.PlaySound{Name: i.Sound})
	}
}

// reveal runs the line sub-automaton for one tick.
func (s *System) reveal(io *IO) {
	l := s.output
	if io.Ticks < l.nextUpdate {
		return
	}
	for budget := maxFreeSteps; budget > 0; budget-- {
		if !s.step(io, l) {
			break
		}
	}
	s.lines.ReplaceLast(l.out.clone())

	if l.done {
		s.output = nil
		s.setDirective(DirectiveNone)
	}
}

// step takes one reveal step and reports whether another may follow in the
// same tick.
func (s *System) step(io *IO, l *outputLine) bool {
	if l.span == nil {
		if l.next >= len(l.children) {
			l.done = true
			return false
		}
		child := l.children[l.next]
		l.next++
		switch c := child.(type) {
		case ast.Span:
			l.span = &spanReader{chars: []rune(c.Text), speed: c.Properties.Speed}
		case ast.Instruction:
			runInstruction(io, c)
			l.out.Content = append(l.out.Content, InstructionSpan{Instruction: c})
		}
		return true
	}

	ch, ok := l.span.next()
	if !ok {
		l.span = nil
		return true
	}
	l.out.appendRune(ch)

	if ch == ' ' {
		l.nextUpdate = io.Ticks + spaceDelay
	} else {
		io.send(audio.PlayEffect{ID: audio.BlipEffect})
		l.nextUpdate = io.Ticks + revealDelay(l.span.speed)
	}

	// A following space is revealed in the same tick, even when it opens
	// the next span.
	return l.followedBySpace()
}

// followedBySpace reports whether the next character to be revealed is a
// space, looking past the end of the current span and any inline
// instructions.
func (l *outputLine) followedBySpace() bool {
	if r, ok := l.span.peek(); ok {
		return r == ' '
	}
	for _, child := range l.children[l.next:] {
		span, ok := child.(ast.Span)
		if !ok || span.Text == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(span.Text)
		return r == ' '
	}
	return false
}

// revealDelay is the number of ticks between two characters of a span.
func revealDelay(speed uint32) uint64 {
	if speed >= 6 {
		return 1
	}
	return uint64(2 * (6 - speed))
}

func (s *System) startFade() {
	if s.fadeTicks == 0 {
		s.fade = nil
		s.alpha = 1
		return
	}
	s.fade = gween.New(0, 1, float32(s.fadeTicks), ease.OutQuad)
	s.alpha = 0
}

func (s *System) finishFade() {
	s.fade = nil
	s.alpha = 1
}

func (s *System) updateFade() {
	if s.fade == nil {
		return
	}
	v, finished := s.fade.Update(1)
	s.alpha = v
	if finished {
		s.finishFade()
	}
}
