package services_test

import (
	"errors"
	"strings"
	"testing"

	"reel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "transcribe", "request", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "request", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "analyze", "decode", "bad response", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestCategoryMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect string
	}{
		{"timeout", services.Wrap(services.ErrTimeout, "upload", "put", "deadline", nil), services.CategoryTimeout},
		{"invalid input", services.Wrap(services.ErrInvalidInput, "transcode", "probe", "empty file", nil), services.CategoryInvalidInput},
		{"not found folds into invalid input", services.Wrap(services.ErrNotFound, "transcode", "open", "missing", nil), services.CategoryInvalidInput},
		{"upstream rejected", services.Wrap(services.ErrUpstreamRejected, "analyze", "request", "403", nil), services.CategoryUpstreamRejected},
		{"configuration", services.Wrap(services.ErrConfiguration, "transcode", "binary", "ffmpeg missing", nil), services.CategoryConfiguration},
		{"unclassified defaults to transient", errors.New("socket closed"), services.CategoryTransient},
	}
	for _, tc := range cases {
		if got := services.Category(tc.err); got != tc.expect {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expect, got)
		}
	}
}
