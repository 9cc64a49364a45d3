// Package ast defines the compiled form of a dialogue script. A Chapter is
// produced once by the compiler, stored as a binary artifact, and read back
// by the dialogue runtime, which only ever iterates it.
package ast

// DefaultSpeed is the reveal speed of text with no enclosing style tag.
const DefaultSpeed uint32 = 3

// Chapter is one compiled dialogue script.
type Chapter struct {
	Voice   string
	Content []ChExpr
}

// ChExpr is a chapter-level expression: an Action, an Instruction or a Line.
type ChExpr interface {
	isChExpr()
}

// LineChild is an element of a Line: a Span or an Instruction.
type LineChild interface {
	isLineChild()
}

// Instruction is an out-of-band directive. It may appear both between lines
// and inside a line.
type Instruction interface {
	ChExpr
	LineChild
	isInstruction()
}

// Action is a blocking control-flow expression.
type Action uint32

const (
	// Await pauses the chapter until the player confirms.
	Await Action = iota
)

func (a Action) String() string {
	switch a {
	case Await:
		return "Await"
	default:
		return "Unknown"
	}
}

func (Action) isChExpr() {}

// Play asks the audio system to play a named sound.
type Play struct {
	Sound string
}

func (Play) isChExpr()      {}
func (Play) isLineChild()   {}
func (Play) isInstruction() {}

// Line is one displayable line of dialogue.
type Line struct {
	Content []LineChild
}

func (Line) isChExpr() {}

// TextProperties controls how a span is revealed.
type TextProperties struct {
	Speed uint32 // 0 (slowest) to 5 (fastest)
}

// Span is a run of characters sharing one set of reveal properties.
type Span struct {
	Text       string
	Properties TextProperties
}

func (Span) isLineChild() {}
