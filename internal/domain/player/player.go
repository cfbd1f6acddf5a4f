// Package player owns the background music state: play/pause toggling and the
// spinning note's rotation angle.
package player

import (
	"errors"
	"math"
	"sync"
	"time"
)

// DegreesPerMillisecond is how fast the note icon spins while music plays.
const DegreesPerMillisecond = 0.045

// ErrDisposed is returned by operations on a disposed player.
var ErrDisposed = errors.New("player: disposed")

// Audio is the playback sink, e.g. a browser audio element driven remotely.
type Audio interface {
	Play() error
	Pause()
}

// Status is a point-in-time view of the player.
type Status struct {
	Playing  bool    `json:"playing"`
	Rotation float64 `json:"rotation"`
}

// Player is created per view session and disposed with it.
type Player struct {
	mu       sync.Mutex
	audio    Audio
	now      func() time.Time
	playing  bool
	since    time.Time     // start of the current playing span
	elapsed  time.Duration // playing time before the current span
	disposed bool
}

// Option customizes a Player.
type Option func(*Player)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// New returns a paused player driving audio. A nil audio is allowed.
func New(audio Audio, opts ...Option) *Player {
	p := &Player{audio: audio, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Toggle flips between playing and paused and returns the new playing state.
func (p *Player) Toggle() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return false, ErrDisposed
	}
	if p.playing {
		p.pause()
		return false, nil
	}
	if err := p.play(); err != nil {
		return false, err
	}
	return true, nil
}

// Play starts playback; it is a no-op when already playing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return ErrDisposed
	}
	if p.playing {
		return nil
	}
	return p.play()
}

// Pause stops playback; it is a no-op when already paused.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed || !p.playing {
		return
	}
	p.pause()
}

func (p *Player) play() error {
	if p.audio != nil {
		if err := p.audio.Play(); err != nil {
			return err
		}
	}
	p.playing = true
	p.since = p.now()
	return nil
}

func (p *Player) pause() {
	if p.audio != nil {
		p.audio.Pause()
	}
	p.elapsed += p.now().Sub(p.since)
	p.playing = false
}

// IsPlaying reports whether music is playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Rotation returns the note angle in degrees within [0, 360). It advances only
// while playing and holds its value while paused.
func (p *Player) Rotation() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotation()
}

func (p *Player) rotation() float64 {
	total := p.elapsed
	if p.playing {
		total += p.now().Sub(p.since)
	}
	ms := float64(total) / float64(time.Millisecond)
	return math.Mod(ms*DegreesPerMillisecond, 360)
}

// Status returns playing state and rotation together.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Playing: p.playing, Rotation: p.rotation()}
}

// Dispose pauses playback and releases the audio sink. Later calls are no-ops
// or return ErrDisposed.
func (p *Player) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	if p.playing {
		p.pause()
	}
	p.audio = nil
	p.disposed = true
}
