package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"reel/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	transcriptionsPath = "/v1/transcriptions"
	healthPath         = "/v1/health"
)

// Config captures the runtime settings required to talk to the speech API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the transcription HTTP API. The service fetches the audio from
// a durable storage URL, so requests carry a reference rather than the bytes.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Result is the transcription payload returned by the speech API.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url"`
	Model    string `json:"model,omitempty"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("speech request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transcribe submits a stored audio reference and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (Result, error) {
	var empty Result
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return empty, services.Wrap(services.ErrInvalidInput, "transcribe", "speech request", "audio url required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "transcribe", "speech request", "api key required", nil)
	}

	body, err := json.Marshal(transcribeRequest{AudioURL: audioURL, Model: c.cfg.Model})
	if err != nil {
		return empty, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+transcriptionsPath, bytes.NewReader(body))
	if err != nil {
		return empty, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, classify("speech request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return empty, classify("speech request", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return empty, classify("speech request", &httpStatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return empty, services.Wrap(services.ErrUpstreamRejected, "transcribe", "speech request", "malformed response", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return empty, services.Wrap(services.ErrUpstreamRejected, "transcribe", "speech request", "empty transcript", nil)
	}
	return result, nil
}

// HealthCheck probes the speech API with a short request.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify("speech health", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusInternalServerError {
		return classify("speech health", &httpStatusError{StatusCode: resp.StatusCode})
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "transcribe", op, "deadline exceeded", err)
	case isTimeout(err):
		return services.Wrap(services.ErrTimeout, "transcribe", op, "request timed out", err)
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return services.Wrap(services.ErrTransient, "transcribe", op, "service unavailable", err)
		}
		return services.Wrap(services.ErrUpstreamRejected, "transcribe", op, "request rejected", err)
	}
	return services.Wrap(services.ErrTransient, "transcribe", op, "request failed", err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
