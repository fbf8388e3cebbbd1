package playback

import (
	"github.com/gordonklaus/portaudio"
)

// paSink wraps a PortAudio output stream as a Sink.
type paSink struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenDefaultOutput acquires the default system audio output. The caller
// must have initialized PortAudio (see the audiodev package).
func OpenDefaultOutput(sampleRate, frameSize int) (Sink, error) {
	buf := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), &buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	return &paSink{stream: stream, buf: buf}, nil
}

func (s *paSink) Write(frame []int16) error {
	n := copy(s.buf, frame)
	// Zero-pad the final partial frame.
	for i := n; i < len(s.buf); i++ {
		s.buf[i] = 0
	}
	return s.stream.Write()
}

func (s *paSink) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
