package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	whisperBaseURL = "https://api.openai.com/v1"
	whisperModel   = "whisper-1"

	whisperHTTPTimeout = 120 * time.Second
)

// WhisperClient wraps the OpenAI audio transcription endpoint.
type WhisperClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// WhisperOption customizes the client.
type WhisperOption func(*WhisperClient)

// WithWhisperBaseURL overrides the API base (useful for tests).
func WithWhisperBaseURL(base string) WhisperOption {
	return func(c *WhisperClient) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithWhisperHTTPClient overrides the default HTTP client.
func WithWhisperHTTPClient(client *http.Client) WhisperOption {
	return func(c *WhisperClient) {
		if client != nil {
			c.http = client
		}
	}
}

// NewWhisperClient constructs a client for the OpenAI Whisper API.
func NewWhisperClient(apiKey string, opts ...WhisperOption) (*WhisperClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("whisper: api key is required")
	}
	c := &WhisperClient{
		apiKey:  apiKey,
		baseURL: whisperBaseURL,
		http:    &http.Client{Timeout: whisperHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TranscribeRequest carries the audio payload and optional prompt context.
type TranscribeRequest struct {
	Audio    io.Reader
	FileName string
	Prompt   string
}

// Transcribe posts the audio as multipart form data and returns the text.
func (c *WhisperClient) Transcribe(ctx context.Context, in TranscribeRequest) (string, error) {
	if in.Audio == nil {
		return "", errors.New("whisper: audio reader is required")
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = "audio.mp3"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeTranscribeForm(mw, in.Audio, fileName, in.Prompt)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		return "", fmt.Errorf("whisper: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: transcribe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("whisper: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper: transcribe: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("whisper: decode response: %w", err)
	}
	return out.Text, nil
}

func writeTranscribeForm(mw *multipart.Writer, audio io.Reader, fileName, prompt string) error {
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return err
	}
	if err := mw.WriteField("model", whisperModel); err != nil {
		return err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return err
	}
	if prompt != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			return err
		}
	}
	return nil
}
