package tutorapi

import "fmt"

// ChatError reports a failed chat round-trip: either transport failure
// (Status == 0) or a non-success backend status.
type ChatError struct {
	Status int
	Body   string
	Err    error
}

func (e *ChatError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("chat request failed (status %d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("chat request failed: %v", e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

// TranscriptionError reports a failed ASR round-trip.
type TranscriptionError struct {
	Status int
	Body   string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transcription failed (status %d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
