// Package audiodev owns the process-wide PortAudio lifecycle. Initialize
// once at startup and Terminate on the way out; the recorder and playback
// packages open their own streams in between.
package audiodev

import (
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// Init initializes the PortAudio host API.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the PortAudio host API. Errors are logged, not returned:
// there is nothing a caller can do about them at shutdown.
func Terminate(log zerolog.Logger) {
	if err := portaudio.Terminate(); err != nil {
		log.Error().Err(err).Msg("portaudio terminate failed")
	}
}
