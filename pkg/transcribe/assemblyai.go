// Package transcribe holds thin REST clients for the third-party
// transcription providers the API proxies to.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	assemblyAIBaseURL  = "https://api.assemblyai.com/v2"
	defaultHTTPTimeout = 60 * time.Second

	// Transcript polling bounds. The provider is polled until it reports a
	// terminal status, at most MaxPollAttempts times.
	defaultPollInterval = 3 * time.Second
	defaultPollAttempts = 100
)

// ErrPollTimeout is returned when the transcript did not reach a terminal
// status within the polling budget.
var ErrPollTimeout = errors.New("assemblyai: transcript polling budget exhausted")

// AssemblyAIClient wraps the AssemblyAI upload/transcript API.
type AssemblyAIClient struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	pollAttempts int
}

// AssemblyAIOption customizes the client.
type AssemblyAIOption func(*AssemblyAIClient)

// WithAssemblyAIBaseURL overrides the API base (useful for tests).
func WithAssemblyAIBaseURL(base string) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithPolling overrides the polling interval and attempt budget.
func WithPolling(interval time.Duration, attempts int) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if attempts > 0 {
			c.pollAttempts = attempts
		}
	}
}

// WithAssemblyAIHTTPClient overrides the default HTTP client.
func WithAssemblyAIHTTPClient(client *http.Client) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if client != nil {
			c.http = client
		}
	}
}

// NewAssemblyAIClient constructs a client for the AssemblyAI REST API.
func NewAssemblyAIClient(apiKey string, opts ...AssemblyAIOption) (*AssemblyAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("assemblyai: api key is required")
	}
	c := &AssemblyAIClient{
		apiKey:       apiKey,
		baseURL:      assemblyAIBaseURL,
		http:         &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcript is the provider's transcript resource, relayed to the caller
// as-is on completion.
type Transcript struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Text   string  `json:"text"`
	Error  string  `json:"error,omitempty"`
	Audio  string  `json:"audio_url,omitempty"`
	Words  []Word  `json:"words,omitempty"`
	Conf   float64 `json:"confidence,omitempty"`
}

// Word is one recognized token with timing info.
type Word struct {
	Text  string  `json:"text"`
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	Conf  float64 `json:"confidence"`
}

// Upload sends raw audio bytes and returns the provider-side upload URL.
func (c *AssemblyAIClient) Upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", audio)
	if err != nil {
		return "", fmt.Errorf("assemblyai upload: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", errors.New("assemblyai upload: empty upload_url in response")
	}
	return out.UploadURL, nil
}

// Submit creates a transcript job for an uploaded audio URL.
func (c *AssemblyAIClient) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out Transcript
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("assemblyai submit: empty transcript id in response")
	}
	return out.ID, nil
}

// Poll fetches the transcript until it reaches a terminal status, sleeping
// pollInterval between attempts. It honors ctx cancellation and gives up
// after the attempt budget instead of looping forever.
func (c *AssemblyAIClient) Poll(ctx context.Context, transcriptID string) (*Transcript, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		t, err := c.get(ctx, transcriptID)
		if err != nil {
			return nil, err
		}
		switch t.Status {
		case "completed":
			return t, nil
		case "error":
			return nil, fmt.Errorf("assemblyai: transcription failed: %s", t.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, ErrPollTimeout
}

// Transcribe runs the full upload/submit/poll pipeline.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio io.Reader) (*Transcript, error) {
	uploadURL, err := c.Upload(ctx, audio)
	if err != nil {
		return nil, err
	}
	id, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, id)
}

func (c *AssemblyAIClient) get(ctx context.Context, transcriptID string) (*Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+transcriptID, nil)
	if err != nil {
		return nil, fmt.Errorf("assemblyai poll: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	t := &Transcript{}
	if err := c.do(req, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *AssemblyAIClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("assemblyai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("assemblyai: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("assemblyai: decode response: %w", err)
	}
	return nil
}
