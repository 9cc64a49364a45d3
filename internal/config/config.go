// Package config loads engine settings. Defaults are overlaid by an optional
// YAML file, then by environment variables (a .env file is read if present).
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. VOID_LOG_MODE.
const EnvPrefix = "VOID_"

// Config holds all engine settings
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Dialogue DialogueConfig `yaml:"dialogue"`
	Audio    AudioConfig    `yaml:"audio"`
	Log      LogConfig      `yaml:"log"`
}

// WindowConfig defines the window and logical screen
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`       // Logical screen width
	Height     int    `yaml:"height"`      // Logical screen height
	Scale      int    `yaml:"scale"`       // Window size multiplier
	Background string `yaml:"background"`  // Optional background image
	ClearColor string `yaml:"clear_color"` // Hex colour used when no background image is set
}

// DialogueConfig defines the chapter to play and the dialogue box layout
type DialogueConfig struct {
	Chapter    string            `yaml:"chapter"`     // Compiled .chap artifact, or an .xml script compiled at startup
	BufferSize int               `yaml:"buffer_size"` // Lines kept in the scroll-back window
	Left       float32           `yaml:"left"`        // Left margin in pixels
	Top        float32           `yaml:"top"`         // Top of the first slot in pixels
	LineHeight float32           `yaml:"line_height"`
	CharWidth  float32           `yaml:"char_width"`
	FadeTicks  int               `yaml:"fade_ticks"` // Fade-in duration of a new line, 0 disables
	Voices     map[string]string `yaml:"voices"`     // Voice name -> hex text colour
}

// AudioConfig defines sound assets and volumes
type AudioConfig struct {
	Enabled       bool    `yaml:"enabled"`
	SampleRate    int     `yaml:"sample_rate"`
	SoundsDir     string  `yaml:"sounds_dir"` // Root for <?play name?> lookups
	Blip          string  `yaml:"blip"`       // Effect played per revealed character
	Music         string  `yaml:"music"`      // Looping background music, optional
	MasterVolume  float64 `yaml:"master_volume"`
	MusicVolume   float64 `yaml:"music_volume"`
	EffectsVolume float64 `yaml:"effects_volume"`
}

// LogConfig selects the logger mode and level
type LogConfig struct {
	Mode  string `yaml:"mode"` // "dev" or "prod"
	Level string `yaml:"level"`
}

// Default returns the settings the engine ships with
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "void",
			Width:      512,
			Height:     288,
			Scale:      2,
			ClearColor: "#000000",
		},
		Dialogue: DialogueConfig{
			Chapter:    "dialogue/en/intro.chap",
			BufferSize: 4,
			Left:       12,
			Top:        226,
			LineHeight: 12,
			CharWidth:  8,
			FadeTicks:  10,
			Voices:     map[string]string{},
		},
		Audio: AudioConfig{
			Enabled:       true,
			SampleRate:    44100,
			SoundsDir:     "assets/sounds",
			Blip:          "assets/sounds/blip.wav",
			MasterVolume:  1.0,
			MusicVolume:   0.5,
			EffectsVolume: 0.1,
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Window.Title, "WINDOW_TITLE")
	setString(&c.Window.Background, "WINDOW_BACKGROUND")
	setString(&c.Dialogue.Chapter, "DIALOGUE_CHAPTER")
	setString(&c.Audio.SoundsDir, "AUDIO_SOUNDS_DIR")
	setString(&c.Audio.Blip, "AUDIO_BLIP")
	setString(&c.Audio.Music, "AUDIO_MUSIC")
	setString(&c.Log.Mode, "LOG_MODE")
	setString(&c.Log.Level, "LOG_LEVEL")

	if err := setInt(&c.Window.Scale, "WINDOW_SCALE"); err != nil {
		return err
	}
	if err := setInt(&c.Dialogue.BufferSize, "DIALOGUE_BUFFER_SIZE"); err != nil {
		return err
	}
	if err := setBool(&c.Audio.Enabled, "AUDIO_ENABLED"); err != nil {
		return err
	}
	return setFloat(&c.Audio.MasterVolume, "AUDIO_MASTER_VOLUME")
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid screen size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Dialogue.BufferSize <= 0 {
		return fmt.Errorf("dialogue buffer_size must be positive, got %d", c.Dialogue.BufferSize)
	}
	if c.Dialogue.FadeTicks < 0 {
		return fmt.Errorf("dialogue fade_ticks must not be negative, got %d", c.Dialogue.FadeTicks)
	}
	if _, err := ParseHexColor(c.Window.ClearColor); err != nil {
		return fmt.Errorf("window clear_color: %w", err)
	}
	for voice, hex := range c.Dialogue.Voices {
		if _, err := ParseHexColor(hex); err != nil {
			return fmt.Errorf("voice %q: %w", voice, err)
		}
	}
	for name, v := range map[string]float64{
		"master_volume":  c.Audio.MasterVolume,
		"music_volume":   c.Audio.MusicVolume,
		"effects_volume": c.Audio.EffectsVolume,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("audio %s must be within [0, 1], got %v", name, v)
		}
	}
	return nil
}

// VoiceColors parses the voice palette. Validate has already checked it.
func (c *Config) VoiceColors() map[string]color.NRGBA {
	out := make(map[string]color.NRGBA, len(c.Dialogue.Voices))
	for voice, hex := range c.Dialogue.Voices {
		if clr, err := ParseHexColor(hex); err == nil {
			out[voice] = clr
		}
	}
	return out
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa"
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad colour %q", s)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = f
	return nil
}
