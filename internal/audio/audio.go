// Package audio runs sound playback on its own goroutine. Game systems send
// fire-and-forget cue messages over a bounded channel and never wait for, or
// touch, the playback device.
package audio

import (
	"context"
	"sync"

	"chosenoffset.com/void/internal/platform/logger"
)

// QueueSize is the capacity of the cue channel.
const QueueSize = 8

// BlipEffect is the effect id played for each revealed character.
const BlipEffect = 0

// Msg is a request to the audio system.
type Msg interface {
	isMsg()
}

type (
	SetMasterVolume  struct{ Volume float64 }
	SetMusicVolume   struct{ Volume float64 }
	SetEffectsVolume struct{ Volume float64 }
	PlayMusic        struct{}
	StopMusic        struct{}
	PlayEffect       struct{ ID int }
	StopEffect       struct{ ID int }
	PlaySound        struct{ Name string } // a named sound from a <?play?> instruction
	Kill             struct{}
)

func (SetMasterVolume) isMsg()  {}
func (SetMusicVolume) isMsg()   {}
func (SetEffectsVolume) isMsg() {}
func (PlayMusic) isMsg()        {}
func (StopMusic) isMsg()        {}
func (PlayEffect) isMsg()       {}
func (StopEffect) isMsg()       {}
func (PlaySound) isMsg()        {}
func (Kill) isMsg()             {}

// Sender accepts cue messages without blocking. It reports false when the
// message was dropped.
type Sender interface {
	Send(msg Msg) bool
}

// Backend owns the playback device. It is only ever called from the audio
// goroutine. Volumes are final, already multiplied by the master volume.
type Backend interface {
	PlayEffect(id int, volume float64) error
	StopEffect(id int) error
	PlaySound(name string, volume float64) error
	PlayMusic(volume float64) error
	SetMusicVolume(volume float64)
	StopMusic() error
	Close() error
}

// Volumes are the mixer levels, each within [0, 1].
type Volumes struct {
	Master  float64
	Music   float64
	Effects float64
}

// System is the audio goroutine and its inbox.
type System struct {
	inbox   chan Msg
	backend Backend
	log     *logger.Logger
	volumes Volumes
	playing bool

	done      chan struct{}
	closeOnce sync.Once
}

func newSystem(backend Backend, log *logger.Logger, volumes Volumes) *System {
	if log == nil {
		log = logger.Nop()
	}
	return &System{
		inbox:   make(chan Msg, QueueSize),
		backend: backend,
		log:     log,
		volumes: volumes,
		done:    make(chan struct{}),
	}
}

// Start launches the audio goroutine. It stops on Kill, Close, or when ctx
// is cancelled, and closes the backend on the way out.
func Start(ctx context.Context, backend Backend, log *logger.Logger, volumes Volumes) *System {
	s := newSystem(backend, log, volumes)
	go s.run(ctx)
	return s
}

// Send queues msg. It never blocks: when the inbox is full the cue is
// dropped.
func (s *System) Send(msg Msg) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- msg:
		return true
	default:
		s.log.Debug("audio queue full, dropping cue", "msg", msg)
		return false
	}
}

// Close stops the audio goroutine and waits for it to exit.
func (s *System) Close() {
	s.closeOnce.Do(func() {
		select {
		case s.inbox <- Kill{}:
		case <-s.done:
		}
	})
	<-s.done
}

// Done is closed once the audio goroutine has exited.
func (s *System) Done() <-chan struct{} {
	return s.done
}

func (s *System) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.backend.Close(); err != nil {
			s.log.Warn("failed to close audio backend", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.inbox:
			if !s.handle(msg) {
				return
			}
		}
	}
}

// handle applies one message and reports whether the system keeps running.
func (s *System) handle(msg Msg) bool {
	var err error
	switch m := msg.(type) {
	case SetMasterVolume:
		s.volumes.Master = clamp(m.Volume)
		s.backend.SetMusicVolume(s.musicVolume())
	case SetMusicVolume:
		s.volumes.Music = clamp(m.Volume)
		s.backend.SetMusicVolume(s.musicVolume())
	case SetEffectsVolume:
		s.volumes.Effects = clamp(m.Volume)
	case PlayMusic:
		if !s.playing {
			err = s.backend.PlayMusic(s.musicVolume())
			s.playing = err == nil
		}
	case StopMusic:
		if s.playing {
			err = s.backend.StopMusic()
			s.playing = false
		}
	case PlayEffect:
		err = s.backend.PlayEffect(m.ID, s.effectsVolume())
	case StopEffect:
		err = s.backend.StopEffect(m.ID)
	case PlaySound:
		err = s.backend.PlaySound(m.Name, s.effectsVolume())
	case Kill:
		return false
	}
	if err != nil {
		s.log.Warn("audio request failed", "msg", msg, "error", err)
	}
	return true
}

func (s *System) musicVolume() float64 {
	return s.volumes.Master * s.volumes.Music
}

func (s *System) effectsVolume() float64 {
	return s.volumes.Master * s.volumes.Effects
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Discard is a Sender that drops everything, for running without audio.
type Discard struct{}

func (Discard) Send(Msg) bool { return false }
