package stubserver

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/snarg/speakdrill/internal/wavio"
)

// Continuation prompts cycled per session turn, IELTS part-1 style.
var continuations = []string{
	"Let's keep going: what do you usually do at the weekend?",
	"Tell me about your hometown. What do you like most about it?",
	"Do you think technology has changed the way people communicate?",
	"Describe a book or film that made an impression on you.",
	"How important is it for you to spend time outdoors?",
}

const uploadLimit = 32 << 20 // generous cap for practice clips

func (s *Server) handleChatRespond(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	userInput := r.PostForm.Get("user_input")
	if userInput == "" {
		writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	sessionID := r.PostForm.Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	history := append(s.sessions[sessionID], turn{role: "student", text: userInput})
	reply := tutorReply(userInput, len(history))
	history = append(history, turn{role: "tutor", text: reply})
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}
	s.sessions[sessionID] = history

	// Synthesize the reply asset: a short tone scaled to the reply length
	// stands in for real TTS.
	assetName := "tutor_reply_" + sessionID + ".wav"
	s.assets[assetName] = synthesize(reply)
	s.mu.Unlock()

	s.log.Debug().Str("session_id", sessionID).Int("history", len(history)).Msg("chat turn")
	ChatRoundTripsTotal.Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"response":   reply,
		"audio_file": assetName,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadLimit); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	pcm, rate, err := wavio.Decode(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unsupported audio: "+err.Error())
		return
	}

	TranscriptionsTotal.Inc()

	if len(pcm) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"text": "", "confidence": 0.0, "timestamps": []any{},
		})
		return
	}

	// Canned recognition: fixed text with word timings spread evenly over
	// the clip, and a Whisper-style negative mean log-probability.
	text := "I would like to talk about my hometown"
	words := strings.Fields(text)
	duration := float64(len(pcm)) / float64(rate)
	step := duration / float64(len(words))
	timestamps := make([]map[string]any, len(words))
	for i, word := range words {
		timestamps[i] = map[string]any{
			"word":  word,
			"start": round2(float64(i) * step),
			"end":   round2(float64(i+1) * step),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":       text,
		"confidence": -0.21,
		"timestamps": timestamps,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	s.mu.Lock()
	data, ok := s.assets[name]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no such audio asset")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// tutorReply builds a deterministic corrective reply in the shape the real
// tutor uses.
func tutorReply(input string, historyLen int) string {
	corrected := strings.TrimSpace(input)
	if corrected != "" && !strings.HasSuffix(corrected, ".") && !strings.HasSuffix(corrected, "?") && !strings.HasSuffix(corrected, "!") {
		corrected += "."
	}
	next := continuations[(historyLen/2)%len(continuations)]
	return fmt.Sprintf("Corrected: %q\nExplanation: Clear sentence; mind your punctuation and articles.\nContinue: %s", corrected, next)
}

// synthesize renders a 440 Hz tone whose length tracks the reply text, as
// a stand-in for TTS output.
func synthesize(text string) []byte {
	const rate = 16000
	seconds := 0.3 + 0.02*float64(len(strings.Fields(text)))
	if seconds > 2.0 {
		seconds = 2.0
	}
	n := int(seconds * rate)
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(6000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	return wavio.Encode(pcm, rate)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
