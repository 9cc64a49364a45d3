// Package rendertest provides in-memory render backends for tests.
package rendertest

import (
	"fmt"
	"image/color"

	"chosenoffset.com/void/internal/render"
)

// Text records one DrawText call.
type Text struct {
	Str   string
	X, Y  float64
	Color color.Color
}

// Renderer records text drawn through it.
type Renderer struct {
	Texts []Text
}

func (r *Renderer) DrawText(dst render.Image, text string, x, y float64, clr color.Color) {
	r.Texts = append(r.Texts, Text{Str: text, X: x, Y: y, Color: clr})
}

// Image records fills and draws.
type Image struct {
	W, H     int
	Fills    []color.Color
	Clears   int
	Draws    []render.Image
	GeoMs    []*GeoM
	Disposed bool
}

func NewImage(w, h int) *Image {
	return &Image{W: w, H: h}
}

func (i *Image) Size() (width, height int) { return i.W, i.H }
func (i *Image) Fill(clr color.Color)      { i.Fills = append(i.Fills, clr) }
func (i *Image) Clear()                    { i.Clears++ }
func (i *Image) Dispose()                  { i.Disposed = true }

func (i *Image) DrawImage(src render.Image, opts *render.DrawImageOptions) {
	i.Draws = append(i.Draws, src)
	var g *GeoM
	if opts != nil && opts.GeoM != nil {
		g, _ = opts.GeoM.(*GeoM)
	}
	i.GeoMs = append(i.GeoMs, g)
}

// GeoM accumulates scale.
type GeoM struct {
	SX, SY float64
}

func NewGeoM() render.GeoM {
	return &GeoM{SX: 1, SY: 1}
}

func (g *GeoM) Scale(sx, sy float64) {
	g.SX *= sx
	g.SY *= sy
}

// Input is a scripted InputManager. Set Held for IsKeyPressed and Just for
// IsKeyJustPressed; Just is typically reset by the test every tick.
type Input struct {
	Held map[render.Key]bool
	Just map[render.Key]bool
}

func NewInput() *Input {
	return &Input{Held: map[render.Key]bool{}, Just: map[render.Key]bool{}}
}

func (in *Input) IsKeyPressed(key render.Key) bool     { return in.Held[key] }
func (in *Input) IsKeyJustPressed(key render.Key) bool { return in.Just[key] }

// Press marks key as held and just pressed.
func (in *Input) Press(key render.Key) {
	in.Held[key] = true
	in.Just[key] = true
}

// Release clears key entirely.
func (in *Input) Release(key render.Key) {
	delete(in.Held, key)
	delete(in.Just, key)
}

// EndTick clears the just-pressed edges, as a real backend does each frame.
func (in *Input) EndTick() {
	for k := range in.Just {
		delete(in.Just, k)
	}
}

// Loader serves images registered by path.
type Loader struct {
	Images map[string]*Image
}

func (l *Loader) LoadImage(path string) (render.Image, error) {
	img, ok := l.Images[path]
	if !ok {
		return nil, fmt.Errorf("image %q not found", path)
	}
	return img, nil
}
