package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient        = errors.New("transient network failure")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUpstreamRejected = errors.New("upstream rejected request")
	ErrTimeout          = errors.New("timeout")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
)

// Cause categories reported alongside stage failures. Adapters produce the
// first four; configuration problems are caught by preflight before a stage
// can hit them, but keep a label so nothing logs as unknown.
const (
	CategoryTransient        = "transient-network"
	CategoryInvalidInput     = "invalid-input"
	CategoryUpstreamRejected = "upstream-rejected"
	CategoryTimeout          = "timeout"
	CategoryConfiguration    = "configuration"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category maps a stage error to its machine-readable cause category.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound):
		return CategoryInvalidInput
	case errors.Is(err, ErrUpstreamRejected):
		return CategoryUpstreamRejected
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	default:
		return CategoryTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
