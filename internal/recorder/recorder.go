// Package recorder captures a single in-memory audio clip from the system
// microphone. It is a small state machine: idle → recording → idle on a
// clean stop, or → error when the device cannot be acquired or read.
package recorder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State of the capture machine.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clip is one finished, immutable recording.
type Clip struct {
	PCM        []int16
	SampleRate int
	Duration   int // whole seconds, measured from start to stop
}

// DeviceError reports a failure to acquire or read the audio input device.
type DeviceError struct {
	Op  string // "open" or "read"
	Err error
}

func (e *DeviceError) Error() string { return "audio device " + e.Op + ": " + e.Err.Error() }
func (e *DeviceError) Unwrap() error { return e.Err }

// Source is an open audio input stream. Read blocks until one frame of
// samples is available.
type Source interface {
	Read() ([]int16, error)
	Close() error
}

// OpenFunc acquires the input device. OpenDefaultInput is the PortAudio
// implementation; tests substitute fakes.
type OpenFunc func(sampleRate, frameSize int) (Source, error)

// The display duration ticks at this cadence. It is presentation only;
// the Clip duration is measured start to stop.
const durationTick = 200 * time.Millisecond

// Recorder buffers microphone frames into one Clip at a time.
type Recorder struct {
	open       OpenFunc
	sampleRate int
	frameSize  int
	log        zerolog.Logger

	elapsed atomic.Int64 // display seconds while recording

	mu      sync.Mutex
	state   State
	errMsg  string
	clip    *Clip
	samples []int16
	started time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an idle Recorder capturing 16-bit mono audio at the given rate.
func New(open OpenFunc, sampleRate, frameSize int, log zerolog.Logger) *Recorder {
	return &Recorder{
		open:       open,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		log:        log,
	}
}

// Start acquires the microphone and begins buffering. It is a no-op while
// already recording. On device failure the recorder enters the error state
// and the DeviceError is returned.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return nil
	}
	r.errMsg = ""
	r.mu.Unlock()

	src, err := r.open(r.sampleRate, r.frameSize)
	if err != nil {
		devErr := &DeviceError{Op: "open", Err: err}
		r.mu.Lock()
		r.state = StateError
		r.errMsg = devErr.Error()
		r.mu.Unlock()
		r.log.Error().Err(err).Msg("microphone unavailable")
		return devErr
	}

	r.mu.Lock()
	r.state = StateRecording
	r.samples = nil
	r.started = time.Now()
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stop, done, started := r.stopCh, r.doneCh, r.started
	r.mu.Unlock()

	r.elapsed.Store(0)
	go r.capture(src, stop, done)
	go r.tickDuration(stop, done, started)

	r.log.Debug().Int("sample_rate", r.sampleRate).Msg("recording started")
	return nil
}

func (r *Recorder) capture(src Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer src.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := src.Read()
		if err != nil {
			devErr := &DeviceError{Op: "read", Err: err}
			r.mu.Lock()
			if r.state == StateRecording {
				r.state = StateError
				r.errMsg = devErr.Error()
			}
			r.mu.Unlock()
			r.log.Error().Err(err).Msg("microphone read failed")
			return
		}

		r.mu.Lock()
		r.samples = append(r.samples, frame...)
		r.mu.Unlock()
	}
}

// tickDuration follows the capture goroutine's lifetime through done, not
// just stop: a device read error ends capture without anyone closing stop,
// and the ticker must die with it or it keeps overwriting elapsed.
func (r *Recorder) tickDuration(stop, done <-chan struct{}, started time.Time) {
	t := time.NewTicker(durationTick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-t.C:
			r.elapsed.Store(int64(time.Since(started) / time.Second))
		}
	}
}

// Stop finalizes the buffered frames into one immutable Clip and releases
// the device. Calling Stop outside the recording state is a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	stop, done := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stop)
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		// The capture loop hit a device error before we got here.
		return
	}
	pcm := make([]int16, len(r.samples))
	copy(pcm, r.samples)
	r.clip = &Clip{
		PCM:        pcm,
		SampleRate: r.sampleRate,
		Duration:   int(time.Since(r.started) / time.Second),
	}
	r.samples = nil
	r.state = StateIdle
	r.log.Debug().Int("samples", len(pcm)).Int("duration_s", r.clip.Duration).Msg("recording finished")
}

// Reset discards any finished clip and error message and returns to idle.
// If a capture is still running, the device is released first. Safe from
// any state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	if r.state == StateRecording {
		stop, done := r.stopCh, r.doneCh
		r.mu.Unlock()
		close(stop)
		<-done
		r.mu.Lock()
	}
	r.clip = nil
	r.samples = nil
	r.errMsg = ""
	r.state = StateIdle
	r.mu.Unlock()
	r.elapsed.Store(0)
}

// State returns the current machine state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the human-readable device error message, if any.
func (r *Recorder) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Clip returns the finished clip, or nil if none has been produced since
// the last reset.
func (r *Recorder) Clip() *Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// Duration reports the elapsed recording time in whole seconds, for display.
func (r *Recorder) Duration() int {
	return int(r.elapsed.Load())
}
