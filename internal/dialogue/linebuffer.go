package dialogue

import (
	"strings"

	"chosenoffset.com/void/internal/dialogue/ast"
)

// Span is one piece of a revealed line: a TextSpan or an InstructionSpan.
type Span interface {
	isSpan()
}

// TextSpan is revealed text.
type TextSpan struct {
	Text string
}

// InstructionSpan marks where an inline instruction ran. It is not drawn.
type InstructionSpan struct {
	Instruction ast.Instruction
}

func (TextSpan) isSpan()        {}
func (InstructionSpan) isSpan() {}

// Line is the revealed part of a dialogue line.
type Line struct {
	Content []Span
}

// String returns the line's text with instruction spans omitted.
func (l Line) String() string {
	var b strings.Builder
	for _, span := range l.Content {
		if t, ok := span.(TextSpan); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func (l Line) clone() Line {
	if l.Content == nil {
		return Line{}
	}
	return Line{Content: append([]Span(nil), l.Content...)}
}

// appendRune adds r to the trailing text span, starting a new one if the
// line is empty or ends in an instruction.
func (l *Line) appendRune(r rune) {
	if n := len(l.Content); n > 0 {
		if t, ok := l.Content[n-1].(TextSpan); ok {
			l.Content[n-1] = TextSpan{Text: t.Text + string(r)}
			return
		}
	}
	l.Content = append(l.Content, TextSpan{Text: string(r)})
}

// LineBuffer is a fixed number of slots holding the most recent lines.
// Slot 0 is the oldest and the last slot the newest; pushing a line into a
// full buffer evicts slot 0. Slots that never received a line are empty.
type LineBuffer struct {
	slots []slot
	start int // ring index of slot 0
}

type slot struct {
	line Line
	ok   bool
}

// NewLineBuffer creates a buffer with capacity slots (at least one).
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LineBuffer{slots: make([]slot, capacity)}
}

// Cap returns the number of slots.
func (b *LineBuffer) Cap() int {
	return len(b.slots)
}

// Push scrolls every line one slot towards the front and puts line in the
// last slot.
func (b *LineBuffer) Push(line Line) {
	b.slots[b.start] = slot{line: line, ok: true}
	b.start = (b.start + 1) % len(b.slots)
}

// ReplaceLast overwrites the newest slot.
func (b *LineBuffer) ReplaceLast(line Line) {
	b.slots[b.index(len(b.slots)-1)] = slot{line: line, ok: true}
}

// At returns the line in slot i and whether the slot holds one.
func (b *LineBuffer) At(i int) (Line, bool) {
	if i < 0 || i >= len(b.slots) {
		return Line{}, false
	}
	s := b.slots[b.index(i)]
	return s.line, s.ok
}

// Clear empties every slot.
func (b *LineBuffer) Clear() {
	for i := range b.slots {
		b.slots[i] = slot{}
	}
	b.start = 0
}

func (b *LineBuffer) index(i int) int {
	return (b.start + i) % len(b.slots)
}
