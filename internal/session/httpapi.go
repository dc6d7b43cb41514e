package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default retry configuration for API calls
const (
	defaultMaxRetries        = 3
	defaultInitialRetryDelay = 500 * time.Millisecond
	defaultMaxRetryDelay     = 5 * time.Second
)

// APIClient talks to the server's auth endpoints. Network errors and 5xx
// responses retry with exponential backoff; auth rejections never do.
type APIClient struct {
	baseURL           string
	httpClient        *http.Client
	maxRetries        int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
}

// APIOption configures an APIClient.
type APIOption func(*APIClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(httpClient *http.Client) APIOption {
	return func(c *APIClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts per call.
func WithMaxRetries(n int) APIOption {
	return func(c *APIClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the initial and maximum backoff delays.
func WithRetryDelay(initial, max time.Duration) APIOption {
	return func(c *APIClient) {
		if initial > 0 {
			c.initialRetryDelay = initial
		}
		if max > 0 {
			c.maxRetryDelay = max
		}
	}
}

func NewAPIClient(baseURL string, opts ...APIOption) *APIClient {
	c := &APIClient{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		maxRetries:        defaultMaxRetries,
		initialRetryDelay: defaultInitialRetryDelay,
		maxRetryDelay:     defaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentialResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type apiError struct {
	Err         string `json:"error"`
	Description string `json:"error_description"`
}

// Login starts the two-step login. On success the server has sent a
// one-time code; VerifyOTP completes the flow.
func (c *APIClient) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.postJSON(ctx, "/api/auth/login", body, nil)
}

// VerifyOTP exchanges the one-time code for a credential pair.
func (c *APIClient) VerifyOTP(ctx context.Context, email, code string) (*Credentials, error) {
	body := map[string]string{"email": email, "code": code}
	var resp credentialResponse
	if err := c.postJSON(ctx, "/api/auth/verify-otp", body, &resp); err != nil {
		return nil, err
	}
	return credentialsFrom(&resp), nil
}

// Refresh implements Refresher against the server's rotation endpoint.
// A 401 means the refresh token is dead: consumed, revoked, or expired.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp credentialResponse
	if err := c.postJSON(ctx, "/api/auth/token/refresh", body, &resp); err != nil {
		return nil, err
	}
	return credentialsFrom(&resp), nil
}

func credentialsFrom(resp *credentialResponse) *Credentials {
	return &Credentials{
		AccessToken:      resp.AccessToken,
		RefreshToken:     resp.RefreshToken,
		TokenType:        resp.TokenType,
		AccessExpiresAt:  resp.AccessExpiresAt,
		RefreshExpiresAt: resp.RefreshExpiresAt,
	}
}

func (c *APIClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	delay := c.initialRetryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxRetryDelay {
				delay = c.maxRetryDelay
			}
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload),
		)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		retryable, err := c.handleResponse(resp, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// handleResponse consumes the body and reports whether a failure is worth
// retrying.
func (c *APIClient) handleResponse(resp *http.Response, out any) (retryable bool, err error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return false, nil
		}
		return false, json.Unmarshal(data, out)

	case resp.StatusCode == http.StatusUnauthorized:
		return false, ErrSessionExpired

	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error: %s", resp.Status)

	default:
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Err != "" {
			return false, fmt.Errorf("%s: %s", apiErr.Err, apiErr.Description)
		}
		return false, fmt.Errorf("unexpected status: %s", resp.Status)
	}
}

// Transport is an http.RoundTripper that attaches the session's access
// token and retries exactly once on a token-expired 401, after forcing a
// refresh. All other failures pass through untouched.
type Transport struct {
	Base    http.RoundTripper
	Manager *Manager
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Manager.AccessToken(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The server may know things we don't: revocation, clock skew. Refresh
	// once and retry; a second 401 is returned as-is.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	t.Manager.Invalidate(token)
	token, err = t.Manager.AccessToken(req.Context())
	if err != nil {
		return nil, err
	}
	return t.send(req, token)
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	// Per RoundTripper contract the original request is not mutated
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(cloned)
}
