package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeSource feeds a fixed frame at a steady cadence and records whether
// it was released.
type fakeSource struct {
	frame   []int16
	readErr error

	mu     sync.Mutex
	closed bool
	reads  int
}

func (f *fakeSource) Read() ([]int16, error) {
	time.Sleep(time.Millisecond)
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	frame := make([]int16, len(f.frame))
	copy(frame, f.frame)
	return frame, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestRecorder(src *fakeSource, openErr error) *Recorder {
	open := func(sampleRate, frameSize int) (Source, error) {
		if openErr != nil {
			return nil, openErr
		}
		return src, nil
	}
	return New(open, 16000, 4, zerolog.Nop())
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	r := newTestRecorder(&fakeSource{frame: []int16{1}}, nil)

	r.Stop()

	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	if r.Clip() != nil {
		t.Error("Clip() should be nil before any recording")
	}
}

func TestStartStopProducesClip(t *testing.T) {
	src := &fakeSource{frame: []int16{7, 8, 9, 10}}
	r := newTestRecorder(src, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != StateRecording {
		t.Fatalf("state = %v, want recording", r.State())
	}

	// Let a few frames arrive.
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	if r.State() != StateIdle {
		t.Errorf("state after stop = %v, want idle", r.State())
	}
	clip := r.Clip()
	if clip == nil {
		t.Fatal("Clip() = nil, want a finished clip")
	}
	if clip.Duration < 0 {
		t.Errorf("clip duration = %d, want >= 0", clip.Duration)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("clip sample rate = %d, want 16000", clip.SampleRate)
	}
	if len(clip.PCM) == 0 {
		t.Error("clip has no samples")
	}
	if !src.isClosed() {
		t.Error("stop did not release the input device")
	}
}

func TestStartOpenFailureEntersErrorState(t *testing.T) {
	r := newTestRecorder(nil, errors.New("permission denied"))

	err := r.Start()
	if err == nil {
		t.Fatal("Start should fail when the device cannot be opened")
	}
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("error type = %T, want *DeviceError", err)
	}
	if devErr.Op != "open" {
		t.Errorf("DeviceError.Op = %q, want open", devErr.Op)
	}
	if r.State() != StateError {
		t.Errorf("state = %v, want error", r.State())
	}
	if r.Err() == "" {
		t.Error("error message should be recorded")
	}
}

func TestReadFailureEntersErrorState(t *testing.T) {
	src := &fakeSource{frame: []int16{1}, readErr: errors.New("device unplugged")}
	r := newTestRecorder(src, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for r.State() != StateError {
		if time.Now().After(deadline) {
			t.Fatal("recorder never entered the error state")
		}
		time.Sleep(time.Millisecond)
	}
	if !src.isClosed() {
		t.Error("device was not released after a read failure")
	}

	// Stop after a device error must stay a no-op.
	r.Stop()
	if r.State() != StateError {
		t.Errorf("state after stop = %v, want error", r.State())
	}
}

func TestResetAfterReadFailureZeroesDuration(t *testing.T) {
	src := &fakeSource{frame: []int16{1}, readErr: errors.New("device unplugged")}
	r := newTestRecorder(src, nil)

	started := time.Now()
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for r.State() != StateError {
		if time.Now().After(deadline) {
			t.Fatal("recorder never entered the error state")
		}
		time.Sleep(time.Millisecond)
	}

	r.Reset()

	if r.State() != StateIdle {
		t.Errorf("state after reset = %v, want idle", r.State())
	}
	if r.Duration() != 0 {
		t.Errorf("duration after reset = %d, want 0", r.Duration())
	}

	// A surviving ticker would overwrite elapsed once a whole second has
	// passed since Start. Wait that long and make sure it stays zero.
	time.Sleep(time.Until(started.Add(1100 * time.Millisecond)))
	if d := r.Duration(); d != 0 {
		t.Errorf("duration %s after reset = %d, want 0 (ticker survived the read failure)",
			time.Since(started).Round(time.Millisecond), d)
	}
}

func TestResetClearsEverything(t *testing.T) {
	src := &fakeSource{frame: []int16{5}}
	r := newTestRecorder(src, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	r.Stop()
	if r.Clip() == nil {
		t.Fatal("expected a clip before reset")
	}

	r.Reset()

	if r.Clip() != nil {
		t.Error("Reset did not discard the clip")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	if r.Duration() != 0 {
		t.Errorf("duration = %d, want 0", r.Duration())
	}
}

func TestResetWhileRecordingReleasesDevice(t *testing.T) {
	src := &fakeSource{frame: []int16{5}}
	r := newTestRecorder(src, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	r.Reset()

	if !src.isClosed() {
		t.Error("Reset while recording must release the input device")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	if r.Clip() != nil {
		t.Error("Reset must not produce a clip")
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	src := &fakeSource{frame: []int16{5}}
	opens := 0
	open := func(sampleRate, frameSize int) (Source, error) {
		opens++
		return src, nil
	}
	r := New(open, 16000, 4, zerolog.Nop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if opens != 1 {
		t.Errorf("device opened %d times, want 1", opens)
	}
	r.Reset()
}
