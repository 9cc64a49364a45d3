package ebiten

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// soundExts are tried in order when resolving a sound name to a file.
var soundExts = []string{".wav", ".ogg"}

// Options configures the ebiten audio backend.
type Options struct {
	SampleRate int
	Effects    map[int]string // effect id -> file
	SoundsDir  string         // root for named sounds
	Music      string         // looping music file, optional
}

// Backend implements audio.Backend with ebiten's audio package. Sounds are
// decoded to PCM once and replayed from memory.
type Backend struct {
	ctx        *audio.Context
	sampleRate int
	soundsDir  string
	musicPath  string

	effects map[int][]byte
	sounds  map[string][]byte
	active  map[int][]*audio.Player

	music     *audio.Player
	musicFile *os.File
}

// New creates the backend and decodes every effect up front.
func New(opts Options) (*Backend, error) {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(opts.SampleRate)
	}

	b := &Backend{
		ctx:        ctx,
		sampleRate: ctx.SampleRate(),
		soundsDir:  opts.SoundsDir,
		musicPath:  opts.Music,
		effects:    make(map[int][]byte, len(opts.Effects)),
		sounds:     make(map[string][]byte),
		active:     make(map[int][]*audio.Player),
	}

	for id, path := range opts.Effects {
		pcm, err := b.decodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load effect %d: %w", id, err)
		}
		b.effects[id] = pcm
	}
	return b, nil
}

// PlayEffect starts a new instance of an effect; instances may overlap.
func (b *Backend) PlayEffect(id int, volume float64) error {
	pcm, ok := b.effects[id]
	if !ok {
		return fmt.Errorf("unknown effect %d", id)
	}
	p := b.ctx.NewPlayerFromBytes(pcm)
	p.SetVolume(volume)
	p.Play()

	b.active[id] = append(prune(b.active[id]), p)
	return nil
}

// StopEffect stops every playing instance of an effect.
func (b *Backend) StopEffect(id int) error {
	for _, p := range b.active[id] {
		p.Pause()
		_ = p.Close()
	}
	delete(b.active, id)
	return nil
}

// PlaySound plays a named sound such as "song/lowtide", resolved under the
// sounds directory.
func (b *Backend) PlaySound(name string, volume float64) error {
	pcm, ok := b.sounds[name]
	if !ok {
		path, err := b.resolve(name)
		if err != nil {
			return err
		}
		pcm, err = b.decodeFile(path)
		if err != nil {
			return err
		}
		b.sounds[name] = pcm
	}

	p := b.ctx.NewPlayerFromBytes(pcm)
	p.SetVolume(volume)
	p.Play()
	return nil
}

// PlayMusic starts the looping music track.
func (b *Backend) PlayMusic(volume float64) error {
	if b.musicPath == "" {
		return fmt.Errorf("no music configured")
	}
	if b.music == nil {
		f, err := os.Open(b.musicPath)
		if err != nil {
			return err
		}
		stream, err := decode(b.sampleRate, b.musicPath, f)
		if err != nil {
			f.Close()
			return err
		}
		p, err := b.ctx.NewPlayer(audio.NewInfiniteLoop(stream, stream.Length()))
		if err != nil {
			f.Close()
			return err
		}
		b.music, b.musicFile = p, f
	}
	b.music.SetVolume(volume)
	b.music.Play()
	return nil
}

// SetMusicVolume adjusts the volume of the playing track, if any.
func (b *Backend) SetMusicVolume(volume float64) {
	if b.music != nil {
		b.music.SetVolume(volume)
	}
}

// StopMusic pauses the music track. PlayMusic resumes it.
func (b *Backend) StopMusic() error {
	if b.music != nil {
		b.music.Pause()
	}
	return nil
}

// Close releases every player and open file.
func (b *Backend) Close() error {
	for id := range b.active {
		_ = b.StopEffect(id)
	}
	if b.music != nil {
		_ = b.music.Close()
		b.music = nil
	}
	if b.musicFile != nil {
		err := b.musicFile.Close()
		b.musicFile = nil
		return err
	}
	return nil
}

func (b *Backend) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("sound %q escapes the sounds directory", name)
	}
	base := filepath.Join(b.soundsDir, clean)
	if filepath.Ext(base) != "" {
		if _, err := os.Stat(base); err == nil {
			return base, nil
		}
	}
	for _, ext := range soundExts {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, nil
		}
	}
	return "", fmt.Errorf("sound %q not found in %s", name, b.soundsDir)
}

func (b *Backend) decodeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stream, err := decode(b.sampleRate, path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return io.ReadAll(stream)
}

// pcmStream is what both decoders return.
type pcmStream interface {
	io.ReadSeeker
	Length() int64
}

func decode(sampleRate int, path string, r io.ReadSeeker) (pcmStream, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.DecodeWithSampleRate(sampleRate, r)
	case ".ogg":
		return vorbis.DecodeWithSampleRate(sampleRate, r)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

// prune drops players that have finished.
func prune(players []*audio.Player) []*audio.Player {
	out := players[:0]
	for _, p := range players {
		if p.IsPlaying() {
			out = append(out, p)
		} else {
			_ = p.Close()
		}
	}
	return out
}
