// Package playback drives one message's synthesized audio asset through a
// small state machine: loading → idle → playing ⇄ paused → idle on end,
// with error reachable from any state on a load or device failure.
// Players are independent of each other; nothing coordinates concurrent
// playback across messages.
package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/snarg/speakdrill/internal/wavio"
)

// State of the playback machine.
type State int

const (
	StateLoading State = iota
	StateIdle
	StatePlaying
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Error reports a playback failure: the asset could not be loaded, or the
// output device could not be opened or written.
type Error struct {
	Op  string // "load", "decode", "open", "write"
	Err error
}

func (e *Error) Error() string { return "playback " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Sink is an open audio output stream.
type Sink interface {
	Write(frame []int16) error
	Close() error
}

// OpenSinkFunc acquires the output device. OpenDefaultOutput is the
// PortAudio implementation; tests substitute fakes.
type OpenSinkFunc func(sampleRate, frameSize int) (Sink, error)

// FetchFunc retrieves an audio asset by name; satisfied by
// (*tutorapi.Client).FetchAudio.
type FetchFunc func(ctx context.Context, name string) ([]byte, error)

// Player owns the playback of one decoded asset.
type Player struct {
	openSink  OpenSinkFunc
	frameSize int
	log       zerolog.Logger

	mu     sync.Mutex
	state  State
	errMsg string
	pcm    []int16
	rate   int
	pos    int // sample offset of the playhead
	gen    int // invalidates the feeder of a paused/superseded run
}

// NewPlayer creates a player in the loading state.
func NewPlayer(openSink OpenSinkFunc, frameSize int, log zerolog.Logger) *Player {
	return &Player{openSink: openSink, frameSize: frameSize, log: log, state: StateLoading}
}

// Load fetches and decodes the named asset. On success the player becomes
// idle; with autoplay set it immediately attempts playback, and a failed
// attempt moves to error rather than retrying.
func (p *Player) Load(ctx context.Context, fetch FetchFunc, name string, autoplay bool) error {
	data, err := fetch(ctx, name)
	if err != nil {
		return p.fail("load", err)
	}
	pcm, rate, err := wavio.Decode(data)
	if err != nil {
		return p.fail("decode", err)
	}

	p.mu.Lock()
	p.pcm = pcm
	p.rate = rate
	p.pos = 0
	p.state = StateIdle
	p.mu.Unlock()
	p.log.Debug().Str("asset", name).Int("samples", len(pcm)).Msg("audio asset loaded")

	if autoplay {
		return p.play()
	}
	return nil
}

// TogglePlay pauses from the playing state and attempts to play from any
// other state except loading and error, where it is a no-op.
func (p *Player) TogglePlay() error {
	p.mu.Lock()
	switch p.state {
	case StateLoading, StateError:
		p.mu.Unlock()
		return nil
	case StatePlaying:
		p.state = StatePaused
		p.gen++ // the feeder notices and releases the device
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.play()
}

func (p *Player) play() error {
	p.mu.Lock()
	if p.state != StateIdle && p.state != StatePaused {
		p.mu.Unlock()
		return nil
	}
	rate := p.rate
	p.mu.Unlock()

	sink, err := p.openSink(rate, p.frameSize)
	if err != nil {
		sinkErr := p.fail("open", err)
		return sinkErr
	}

	p.mu.Lock()
	if p.state != StateIdle && p.state != StatePaused {
		p.mu.Unlock()
		sink.Close()
		return nil
	}
	p.gen++
	gen := p.gen
	p.state = StatePlaying
	p.mu.Unlock()

	go p.feed(sink, gen)
	return nil
}

// feed streams frames from the playhead until the clip ends, the run is
// superseded, or the device fails. It owns the sink and always releases it.
func (p *Player) feed(sink Sink, gen int) {
	defer sink.Close()
	for {
		p.mu.Lock()
		if p.gen != gen || p.state != StatePlaying {
			p.mu.Unlock()
			return
		}
		if p.pos >= len(p.pcm) {
			p.state = StateIdle
			p.pos = 0
			p.mu.Unlock()
			return
		}
		end := p.pos + p.frameSize
		if end > len(p.pcm) {
			end = len(p.pcm)
		}
		frame := p.pcm[p.pos:end]
		p.pos = end
		p.mu.Unlock()

		if err := sink.Write(frame); err != nil {
			p.mu.Lock()
			if p.gen == gen {
				p.state = StateError
				p.errMsg = (&Error{Op: "write", Err: err}).Error()
			}
			p.mu.Unlock()
			p.log.Error().Err(err).Msg("audio output failed")
			return
		}
	}
}

// Seek moves the playhead to the given position in seconds, clamped to the
// clip, without changing the play/pause state. No-op while loading or in
// error.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateLoading || p.state == StateError {
		return
	}
	pos := int(seconds * float64(p.rate))
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.pcm) {
		pos = len(p.pcm)
	}
	p.pos = pos
}

// Position reports the playhead in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate == 0 {
		return 0
	}
	return float64(p.pos) / float64(p.rate)
}

// Duration reports the clip length in seconds.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate == 0 {
		return 0
	}
	return float64(len(p.pcm)) / float64(p.rate)
}

// State returns the current machine state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the recorded failure message, if any.
func (p *Player) Err() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errMsg
}

// Close stops any running feeder and releases the device. The player is
// left idle unless it had already failed.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.state == StatePlaying {
		p.state = StateIdle
	}
}

func (p *Player) fail(op string, err error) error {
	pErr := &Error{Op: op, Err: err}
	p.mu.Lock()
	p.state = StateError
	p.errMsg = pErr.Error()
	p.mu.Unlock()
	p.log.Error().Err(err).Str("op", op).Msg("playback failed")
	return pErr
}
