// Package placeholders generates stand-in assets so the engine can run
// before real art and sound exist.
package placeholders

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// ColorPalette defines the colours of the placeholder background
var ColorPalette = struct {
	SkyTop    color.RGBA
	SkyBottom color.RGBA
	Star      color.RGBA
	Panel     color.RGBA
	Border    color.RGBA
}{
	SkyTop:    color.RGBA{4, 4, 10, 255},
	SkyBottom: color.RGBA{18, 16, 40, 255},
	Star:      color.RGBA{200, 200, 230, 255},
	Panel:     color.RGBA{8, 8, 16, 255},
	Border:    color.RGBA{90, 90, 120, 255},
}

// Background draws a starfield with a bordered dialogue panel whose top
// edge is at panelTop.
func Background(width, height, panelTop int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		t := float64(y) / float64(max(height-1, 1))
		row := image.Rect(0, y, width, y+1)
		draw.Draw(img, row, &image.Uniform{Mix(ColorPalette.SkyTop, ColorPalette.SkyBottom, t)}, image.Point{}, draw.Src)
	}

	// Fixed seed so regenerated assets are identical
	rng := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < width*height/600; i++ {
		x, y := rng.IntN(width), rng.IntN(max(panelTop, 1))
		img.Set(x, y, Darken(ColorPalette.Star, 0.4+0.6*rng.Float64()))
	}

	if panelTop >= 0 && panelTop < height {
		panel := image.Rect(0, panelTop, width, height)
		draw.Draw(img, panel, &image.Uniform{ColorPalette.Panel}, image.Point{}, draw.Src)
		for x := 0; x < width; x++ {
			img.Set(x, panelTop, ColorPalette.Border)
		}
	}
	return img
}

// Blip synthesises a short decaying square wave as a 16-bit mono WAV file.
func Blip(sampleRate int, freq float64, duration float64) []byte {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		v := 1.0
		if math.Sin(2*math.Pi*freq*t) < 0 {
			v = -1
		}
		decay := 1 - float64(i)/float64(n)
		samples[i] = int16(v * decay * 0.3 * math.MaxInt16)
	}
	return EncodeWAV(sampleRate, samples)
}

// EncodeWAV wraps mono 16-bit samples in a RIFF/WAVE container.
func EncodeWAV(sampleRate int, samples []int16) []byte {
	dataLen := uint32(len(samples) * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, 1, uint32(sampleRate), uint32(sampleRate) * 2, 2, 16})

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// Assets lists where GenerateAndSave writes each file.
type Assets struct {
	Background string
	Blip       string
}

// GenerateAndSave writes every placeholder asset, creating directories as
// needed.
func GenerateAndSave(a Assets, width, height, panelTop, sampleRate int) error {
	if a.Background != "" {
		if err := SavePNG(Background(width, height, panelTop), a.Background); err != nil {
			return fmt.Errorf("failed to save background: %w", err)
		}
		fmt.Printf("  Created %s\n", a.Background)
	}
	if a.Blip != "" {
		if err := saveFile(a.Blip, Blip(sampleRate, 880, 0.03)); err != nil {
			return fmt.Errorf("failed to save blip: %w", err)
		}
		fmt.Printf("  Created %s\n", a.Blip)
	}
	return nil
}

// SavePNG saves an image to a PNG file
func SavePNG(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return saveFile(path, buf.Bytes())
}

func saveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Mix linearly interpolates between two colours
func Mix(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}

// Darken returns a darker version of a color
func Darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}
