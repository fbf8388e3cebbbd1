package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Export is the structured, read-only view of a session log. Pending
// placeholders are transient and excluded.
type Export struct {
	SessionID string          `json:"session_id"`
	Messages  []ExportMessage `json:"messages"`
}

// ExportMessage is one exported turn.
type ExportMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	AudioFile string    `json:"audioFile,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Export returns the structured view of the log.
func (s *Session) Export() Export {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Export{SessionID: s.sessionID, Messages: []ExportMessage{}}
	for _, m := range s.messages {
		if m.Pending {
			continue
		}
		out.Messages = append(out.Messages, ExportMessage{
			Role:      m.Role.String(),
			Text:      m.Text,
			AudioFile: m.AudioFile,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// ExportJSON renders the structured view as indented JSON.
func (s *Session) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

// ExportText renders the log as plain text, one "[timestamp] ROLE: text"
// line per message, joined by blank lines.
func (s *Session) ExportText() string {
	exp := s.Export()
	lines := make([]string, 0, len(exp.Messages))
	for _, m := range exp.Messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Format(time.RFC3339), strings.ToUpper(m.Role), m.Text))
	}
	return strings.Join(lines, "\n\n")
}
