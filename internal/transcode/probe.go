package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type probeFunc func(ctx context.Context, binary, path string) (float64, error)

type probePayload struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// probeDuration executes ffprobe against the provided path and returns the
// stream duration in seconds. The container duration is preferred; the first
// audio stream's duration is the fallback.
func probeDuration(ctx context.Context, binary, path string) (float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Same as the ffmpeg runner: a deadline kill is an exit error, so
		// prefer the context error for timeout classification.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	return durationFromPayload(payload)
}

func durationFromPayload(payload probePayload) (float64, error) {
	if seconds, ok := parseSeconds(payload.Format.Duration); ok {
		return seconds, nil
	}
	for _, stream := range payload.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		if seconds, ok := parseSeconds(stream.Duration); ok {
			return seconds, nil
		}
	}
	return 0, errors.New("ffprobe: no duration reported")
}

func parseSeconds(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return seconds, true
}
