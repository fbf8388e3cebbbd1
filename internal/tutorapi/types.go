package tutorapi

// ChatReply is the backend's response to one chat round-trip. The backend
// assigns SessionID on the first call; the client echoes it on every
// subsequent call in the same conversation.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	AudioFile string `json:"audio_file"`
}

// Word is a timestamped word from the ASR backend.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
}

// Transcription is the parsed response from the ASR endpoint.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Timestamps []Word  `json:"timestamps"`
}

// ConfidenceLevel classifies a transcription for the review UI.
type ConfidenceLevel int

const (
	ConfidenceHigh ConfidenceLevel = iota
	ConfidenceLow
)

func (l ConfidenceLevel) String() string {
	if l == ConfidenceLow {
		return "low"
	}
	return "high"
}

// Level classifies the transcription confidence. The backend reports
// Whisper's mean segment log-probability, so zero and above counts as
// high and anything negative as low. Low-confidence results should be
// flagged for review before being sent to the tutor.
func (t *Transcription) Level() ConfidenceLevel {
	if t.Confidence >= 0 {
		return ConfidenceHigh
	}
	return ConfidenceLow
}
