package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/stage"
)

const stageName = "transcode"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Handler converts source recordings into the configured target format and
// records the stream duration.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	runner commandRunner
	probe  probeFunc
}

// NewHandler constructs the transcode stage adapter.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, stageName),
		probe:  probeDuration,
	}
}

// WithCommandRunner replaces the ffmpeg invocation (test seam).
func (h *Handler) WithCommandRunner(runner commandRunner) {
	h.runner = runner
}

// WithProbe replaces the ffprobe invocation (test seam).
func (h *Handler) WithProbe(probe probeFunc) {
	h.probe = probe
}

// Execute transcodes job.SourceRef to the target format under the work
// directory, then probes the result for its duration. The output path is
// derived from the job ID so a retried run overwrites its own earlier partial
// output instead of accumulating files.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	source := strings.TrimSpace(job.SourceRef)
	if source == "" {
		return services.Wrap(services.ErrInvalidInput, stageName, "transcode audio", "job has no source reference", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrInvalidInput, stageName, "transcode audio", "source file unavailable", err)
	}
	if err := os.MkdirAll(h.cfg.Transcode.WorkDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "transcode audio", "ensure work directory", err)
	}

	output := h.outputPath(job)
	args := buildFFmpegArgs(source, output)
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("transcoding recording",
		logging.String("source", source),
		logging.String("output", output),
		logging.String("format", h.cfg.Transcode.TargetFormat))

	if err := h.run(ctx, h.cfg.FFmpegBinary(), args...); err != nil {
		return classifyExec("transcode audio", err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrInvalidInput, stageName, "transcode audio", "ffmpeg produced no output", err)
	}

	duration, err := h.probe(ctx, h.cfg.FFprobeBinary(), output)
	if err != nil {
		return classifyExec("probe duration", err)
	}

	job.TranscodedRef = output
	job.DurationSeconds = duration
	logger.Info("transcode complete", logging.Float64("duration_seconds", duration))
	return nil
}

// HealthCheck reports whether the external binaries resolve and the work
// directory is writable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(h.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("ffmpeg binary %q not found", h.cfg.FFmpegBinary()))
	}
	if _, err := exec.LookPath(h.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("ffprobe binary %q not found", h.cfg.FFprobeBinary()))
	}
	if err := os.MkdirAll(h.cfg.Transcode.WorkDir, 0o755); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("work directory: %v", err))
	}
	return stage.Healthy(stageName)
}

func (h *Handler) outputPath(job *queue.Job) string {
	format := strings.TrimSpace(h.cfg.Transcode.TargetFormat)
	if format == "" {
		format = "mp3"
	}
	return filepath.Join(h.cfg.Transcode.WorkDir, job.ID+"."+format)
}

func (h *Handler) run(ctx context.Context, name string, args ...string) error {
	if h.runner != nil {
		return h.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		// An expired deadline kills the process, which surfaces as an exit
		// error here; report the context error so it classifies as a timeout.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func buildFFmpegArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		dest,
	}
}

// classifyExec maps command failures onto the stage error taxonomy: a missing
// binary is a deployment problem, a deadline is a timeout, and any other
// non-zero exit means ffmpeg rejected the input.
func classifyExec(op string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrConfiguration, stageName, op, "binary not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, op, "deadline exceeded", err)
	default:
		return services.Wrap(services.ErrInvalidInput, stageName, op, "command failed", err)
	}
}
