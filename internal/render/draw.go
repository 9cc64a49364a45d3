package render

import (
	"image/color"
)

// DrawCommand is one entry of the per-frame draw queue.
type DrawCommand interface {
	isDrawCommand()
}

// DrawBg draws the background quad.
type DrawBg struct{}

// DrawString draws a positioned piece of text.
type DrawString struct {
	Text BasicText
}

func (DrawBg) isDrawCommand()     {}
func (DrawString) isDrawCommand() {}

// BasicText is text at a screen position with a colour.
type BasicText struct {
	X, Y  float32
	Str   string
	Color color.NRGBA
}

// Queue collects draw commands for one frame. It is filled by the game
// systems and drained completely by the renderer before the next frame.
type Queue struct {
	cmds []DrawCommand
}

// NewQueue creates a queue with room for capacity commands.
func NewQueue(capacity int) *Queue {
	return &Queue{cmds: make([]DrawCommand, 0, capacity)}
}

// Push appends a command.
func (q *Queue) Push(cmd DrawCommand) {
	q.cmds = append(q.cmds, cmd)
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	return len(q.cmds)
}

// Drain calls fn for every queued command in order and empties the queue.
func (q *Queue) Drain(fn func(DrawCommand)) {
	for i, cmd := range q.cmds {
		fn(cmd)
		q.cmds[i] = nil
	}
	q.cmds = q.cmds[:0]
}

// Background describes how DrawBg is rendered: an image stretched over the
// screen, or a flat colour when Image is nil.
type Background struct {
	Image Image
	Color color.Color
}

// Present drains q onto screen.
func Present(r Renderer, screen Image, bg Background, q *Queue) {
	q.Drain(func(cmd DrawCommand) {
		switch c := cmd.(type) {
		case DrawBg:
			drawBackground(screen, bg)
		case DrawString:
			r.DrawText(screen, c.Text.Str, float64(c.Text.X), float64(c.Text.Y), c.Text.Color)
		}
	})
}

func drawBackground(screen Image, bg Background) {
	if bg.Image == nil || NewGeoM == nil {
		if bg.Color != nil {
			screen.Fill(bg.Color)
		} else {
			screen.Clear()
		}
		return
	}

	sw, sh := screen.Size()
	iw, ih := bg.Image.Size()
	if iw == 0 || ih == 0 {
		return
	}
	geoM := NewGeoM()
	geoM.Scale(float64(sw)/float64(iw), float64(sh)/float64(ih))
	screen.DrawImage(bg.Image, &DrawImageOptions{GeoM: geoM})
}
