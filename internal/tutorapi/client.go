// Package tutorapi is the HTTP client for the tutor backend. It covers the
// three contracts the backend exposes: a form-encoded chat endpoint, a
// multipart ASR transcription endpoint, and synthesized audio asset
// retrieval. The client is stateless; conversation state lives in the
// session package.
package tutorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one tutor backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the backend at baseURL. The timeout bounds each
// round-trip; the chat endpoint runs an LLM server-side, so generous values
// (minutes, not seconds) are appropriate.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Respond sends one user turn to the tutor and returns the reply. A
// non-empty sessionID continues an existing conversation; leave it empty
// on the first call and the backend assigns one.
func (c *Client) Respond(ctx context.Context, userInput, sessionID string) (*ChatReply, error) {
	form := url.Values{}
	form.Set("user_input", userInput)
	if sessionID != "" {
		form.Set("session_id", sessionID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/respond", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ChatError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ChatError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ChatError{Status: resp.StatusCode, Body: string(body)}
	}

	var reply ChatReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &ChatError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return &reply, nil
}

// Transcribe uploads a finished clip, as a WAV payload, to the ASR endpoint.
// Calls are independent; the session serializes usage where it matters.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (*Transcription, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/asr/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TranscriptionError{Status: resp.StatusCode, Body: string(body)}
	}

	var result Transcription
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return &result, nil
}

// FetchAudio downloads a synthesized reply asset by the name the chat
// endpoint returned.
func (c *Client) FetchAudio(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/audio/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio %q: status %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
