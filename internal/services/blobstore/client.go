package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	uploadPath         = "/v1/files"
	healthPath         = "/v1/health"
)

// Config captures the settings required to push artifacts to blob storage.
type Config struct {
	BaseURL        string
	APIToken       string
	Folder         string
	TimeoutSeconds int
}

// Client uploads local files to the blob storage service and returns the
// durable URLs it assigns.
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

// NewClient constructs a blob storage client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:       strings.TrimSpace(cfg.APIToken),
			Folder:         strings.Trim(strings.TrimSpace(cfg.Folder), "/"),
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

type uploadResponse struct {
	URL string `json:"url"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("storage request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Upload streams the file at path into storage under the configured folder
// and returns the durable URL assigned by the service.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrInvalidInput, "store", "storage upload", "file path required", nil)
	}
	if c.cfg.APIToken == "" {
		return "", services.Wrap(services.ErrConfiguration, "store", "storage upload", "api token required", nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "store", "storage upload", "open source file", err)
	}
	defer file.Close()

	reader, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			writer.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			writer.CloseWithError(err)
			return
		}
		if c.cfg.Folder != "" {
			if err := form.WriteField("folder", c.cfg.Folder); err != nil {
				writer.CloseWithError(err)
				return
			}
		}
		writer.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+uploadPath, reader)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify("storage upload", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", classify("storage upload", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classify("storage upload", &httpStatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", services.Wrap(services.ErrUpstreamRejected, "store", "storage upload", "malformed response", err)
	}
	if strings.TrimSpace(result.URL) == "" {
		return "", services.Wrap(services.ErrUpstreamRejected, "store", "storage upload", "response missing url", nil)
	}
	return result.URL, nil
}

// HealthCheck probes storage reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify("storage health", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusInternalServerError {
		return classify("storage health", &httpStatusError{StatusCode: resp.StatusCode})
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "store", op, "deadline exceeded", err)
	case isTimeout(err):
		return services.Wrap(services.ErrTimeout, "store", op, "request timed out", err)
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return services.Wrap(services.ErrTransient, "store", op, "service unavailable", err)
		}
		return services.Wrap(services.ErrUpstreamRejected, "store", op, "request rejected", err)
	}
	return services.Wrap(services.ErrTransient, "store", op, "request failed", err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
