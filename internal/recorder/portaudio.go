package recorder

import (
	"github.com/gordonklaus/portaudio"
)

// paSource wraps a PortAudio input stream as a Source.
type paSource struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenDefaultInput acquires the default system microphone. The caller must
// have initialized PortAudio (see the audiodev package).
func OpenDefaultInput(sampleRate, frameSize int) (Source, error) {
	buf := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), &buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	return &paSource{stream: stream, buf: buf}, nil
}

func (s *paSource) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		return nil, err
	}
	frame := make([]int16, len(s.buf))
	copy(frame, s.buf)
	return frame, nil
}

func (s *paSource) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
