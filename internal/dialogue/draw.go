package dialogue

import (
	"image/color"
	"unicode/utf8"

	"chosenoffset.com/void/internal/render"
)

var defaultTextColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Draw queues the text of every filled slot. The newest slot is drawn with
// the current fade-in alpha.
func (s *System) Draw(q *render.Queue) {
	base := s.textColor()
	newest := s.lines.Cap() - 1

	for i := 0; i < s.lines.Cap(); i++ {
		line, ok := s.lines.At(i)
		if !ok {
			continue
		}

		clr := base
		if i == newest && s.alpha < 1 {
			clr.A = uint8(float32(clr.A) * clampAlpha(s.alpha))
		}

		x := s.layout.Left
		y := s.layout.Top + float32(i)*s.layout.LineHeight
		for _, span := range line.Content {
			text, ok := span.(TextSpan)
			if !ok {
				continue
			}
			q.Push(render.DrawString{Text: render.BasicText{X: x, Y: y, Str: text.Text, Color: clr}})
			x += s.layout.CharWidth * float32(utf8.RuneCountInString(text.Text))
		}
	}
}

func (s *System) textColor() color.NRGBA {
	if clr, ok := s.palette[s.chapter.Voice]; ok {
		return clr
	}
	return defaultTextColor
}

func clampAlpha(a float32) float32 {
	switch {
	case a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}
