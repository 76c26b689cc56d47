// Package googleauth exchanges Google OAuth access tokens for the identity
// behind them, for the federated sign-in/sign-up endpoints.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userinfoBaseURL = "https://www.googleapis.com/oauth2/v3"

// UserInfo is the subset of the userinfo response the auth service needs.
type UserInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Client calls Google's userinfo endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the endpoint base (useful for tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			c.baseURL = base
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: userinfoBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserInfo resolves the identity behind a bearer access token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("googleauth: access token is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("googleauth: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("googleauth: userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("googleauth: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("googleauth: userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	info := &UserInfo{}
	if err := json.Unmarshal(payload, info); err != nil {
		return nil, fmt.Errorf("googleauth: decode response: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("googleauth: userinfo response missing email")
	}
	return info, nil
}
