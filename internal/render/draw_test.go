package render_test

import (
	"image/color"
	"testing"

	"chosenoffset.com/void/internal/render"
	"chosenoffset.com/void/internal/render/rendertest"
)

func TestQueueDrainsInOrder(t *testing.T) {
	q := render.NewQueue(4)
	q.Push(render.DrawBg{})
	q.Push(render.DrawString{Text: render.BasicText{Str: "a"}})
	q.Push(render.DrawString{Text: render.BasicText{Str: "b"}})

	var got []string
	q.Drain(func(cmd render.DrawCommand) {
		switch c := cmd.(type) {
		case render.DrawBg:
			got = append(got, "bg")
		case render.DrawString:
			got = append(got, c.Text.Str)
		}
	})

	want := []string{"bg", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after drain, got %d", q.Len())
	}
}

func TestPresentFillsAndDrawsText(t *testing.T) {
	r := &rendertest.Renderer{}
	screen := rendertest.NewImage(512, 288)
	q := render.NewQueue(2)
	white := color.NRGBA{255, 255, 255, 255}
	q.Push(render.DrawBg{})
	q.Push(render.DrawString{Text: render.BasicText{X: 12, Y: 226, Str: "hi", Color: white}})

	render.Present(r, screen, render.Background{Color: color.Black}, q)

	if len(screen.Fills) != 1 || screen.Fills[0] != color.Black {
		t.Errorf("Expected one black fill, got %v", screen.Fills)
	}
	if len(r.Texts) != 1 {
		t.Fatalf("Expected 1 text, got %d", len(r.Texts))
	}
	if got := r.Texts[0]; got.Str != "hi" || got.X != 12 || got.Y != 226 || got.Color != white {
		t.Errorf("unexpected text %+v", got)
	}
	if q.Len() != 0 {
		t.Error("Expected Present to drain the queue")
	}
}

func TestPresentStretchesBackgroundImage(t *testing.T) {
	prev := render.NewGeoM
	render.NewGeoM = rendertest.NewGeoM
	t.Cleanup(func() { render.NewGeoM = prev })

	screen := rendertest.NewImage(512, 288)
	bg := rendertest.NewImage(256, 144)
	q := render.NewQueue(1)
	q.Push(render.DrawBg{})

	render.Present(&rendertest.Renderer{}, screen, render.Background{Image: bg}, q)

	if len(screen.Draws) != 1 || screen.Draws[0] != bg {
		t.Fatalf("Expected background image drawn once, got %v", screen.Draws)
	}
	g := screen.GeoMs[0]
	if g == nil || g.SX != 2 || g.SY != 2 {
		t.Errorf("Expected 2x stretch, got %+v", g)
	}
}
