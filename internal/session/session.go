// Package session owns one conversation with the tutor: an ordered,
// append-only message log, the backend-assigned session identity, and the
// single round-trip that may be in flight at any time. Failures never
// raise past the log — a failed round-trip removes its placeholder and
// appends a system message, and the user's own turn is always retained.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snarg/speakdrill/internal/recorder"
	"github.com/snarg/speakdrill/internal/tutorapi"
	"github.com/snarg/speakdrill/internal/wavio"
)

// ErrBusy is returned by Send while another round-trip is outstanding.
var ErrBusy = errors.New("a tutor round-trip is already in flight")

// Role identifies who produced a message.
type Role int

const (
	RoleUser Role = iota
	RoleTutor
	RoleSystem
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleTutor:
		return "tutor"
	case RoleSystem:
		return "system"
	}
	return "unknown"
}

// Message is one turn in the conversation. Role and CreatedAt are fixed at
// creation. A Pending message is the provisional tutor entry shown while a
// round-trip is outstanding; it is replaced, never mutated.
type Message struct {
	ID        string
	Role      Role
	Text      string
	AudioFile string         // backend asset name, tutor turns only
	Clip      *recorder.Clip // locally captured audio, user turns only
	CreatedAt time.Time
	Pending   bool
}

// Backend is the slice of the tutor API a session drives. *tutorapi.Client
// satisfies it.
type Backend interface {
	Respond(ctx context.Context, userInput, sessionID string) (*tutorapi.ChatReply, error)
	Transcribe(ctx context.Context, wav []byte) (*tutorapi.Transcription, error)
}

// Session is one logical conversation.
type Session struct {
	backend Backend
	log     zerolog.Logger

	mu        sync.Mutex
	sessionID string
	messages  []Message
	pending   bool
	epoch     int // bumped on Reset; in-flight completions check it
	cancel    context.CancelFunc
}

// New creates an empty session against the given backend.
func New(backend Backend, log zerolog.Logger) *Session {
	return &Session{backend: backend, log: log}
}

// Send issues one chat round-trip for a user turn. The user message and a
// pending tutor placeholder are appended before any network activity. On
// success the placeholder is replaced in place by the tutor's reply and
// the backend-assigned session ID is adopted if this was the first call.
// On failure the placeholder is removed and a system message describes the
// problem; the returned error carries the same information for callers
// that want to surface a notification, but the log is the authoritative
// channel. A Send while another round-trip is outstanding returns ErrBusy
// without touching the log.
func (s *Session) Send(ctx context.Context, text string, clip *recorder.Clip) (*tutorapi.ChatReply, error) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.pending = true
	epoch := s.epoch
	sessionID := s.sessionID

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	now := time.Now()
	placeholderID := uuid.NewString()
	s.messages = append(s.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Text: text, Clip: clip, CreatedAt: now},
		Message{ID: placeholderID, Role: RoleTutor, CreatedAt: now, Pending: true},
	)
	s.mu.Unlock()

	reply, err := s.backend.Respond(ctx, text, sessionID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		// The session was reset while this round-trip was in flight; the
		// log it belonged to no longer exists.
		if err == nil {
			err = context.Canceled
		}
		return nil, err
	}
	s.pending = false
	s.cancel = nil

	if err != nil {
		s.dropLocked(placeholderID)
		s.messages = append(s.messages, Message{
			ID:        uuid.NewString(),
			Role:      RoleSystem,
			Text:      "Error: " + err.Error() + ". Please check your backend connection.",
			CreatedAt: time.Now(),
		})
		s.log.Error().Err(err).Msg("chat round-trip failed")
		return nil, err
	}

	if s.sessionID == "" && reply.SessionID != "" {
		s.sessionID = reply.SessionID
		s.log.Info().Str("session_id", reply.SessionID).Msg("session assigned")
	}
	s.replaceLocked(placeholderID, Message{
		ID:        uuid.NewString(),
		Role:      RoleTutor,
		Text:      reply.Response,
		AudioFile: reply.AudioFile,
		CreatedAt: time.Now(),
	})
	return reply, nil
}

// SendRecording transcribes a finished clip and sends the recognized text
// as a user turn, attaching the clip for playback. The transcription is
// returned alongside the reply so callers can flag low-confidence results.
// A transcription failure appends a system message and sends nothing.
func (s *Session) SendRecording(ctx context.Context, clip *recorder.Clip) (*tutorapi.ChatReply, *tutorapi.Transcription, error) {
	if s.Pending() {
		return nil, nil, ErrBusy
	}

	tr, err := s.backend.Transcribe(ctx, wavio.Encode(clip.PCM, clip.SampleRate))
	if err != nil {
		s.mu.Lock()
		s.messages = append(s.messages, Message{
			ID:        uuid.NewString(),
			Role:      RoleSystem,
			Text:      "Error: " + err.Error() + ". Please check your backend connection.",
			CreatedAt: time.Now(),
		})
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("transcription failed")
		return nil, nil, err
	}

	reply, err := s.Send(ctx, tr.Text, clip)
	return reply, tr, err
}

// AddSystemMessage appends an informational message with no round-trip.
func (s *Session) AddSystemMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

// Reset clears the session identity, the whole log, and the pending state.
// An in-flight round-trip is aborted; its completion handler will find the
// epoch changed and leave the fresh session untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.sessionID = ""
	s.messages = nil
	s.pending = false
}

// SessionID returns the backend-assigned identity, or "" before the first
// successful round-trip.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Pending reports whether a round-trip is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the ordered log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// dropLocked removes the message with the given id. Caller holds s.mu.
func (s *Session) dropLocked(id string) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// replaceLocked swaps the message with the given id in place, keeping its
// position immediately after the turn that triggered it. Caller holds s.mu.
func (s *Session) replaceLocked(id string, msg Message) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages[i] = msg
			return
		}
	}
}
