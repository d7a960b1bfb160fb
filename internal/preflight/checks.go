package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"reel/internal/config"
	"reel/internal/deps"
	"reel/internal/services/blobstore"
	"reel/internal/services/llm"
	"reel/internal/services/speech"
)

const serviceCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable. Missing directories are created first; the daemon owns
// its work tree.
func CheckDirectoryAccess(name, path string) Result {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabaseDirectory verifies the job store's parent directory.
func CheckDatabaseDirectory(cfg *config.Config) Result {
	return CheckDirectoryAccess("Database directory", filepath.Dir(cfg.Store.DatabasePath))
}

// CheckBinaries evaluates the external binaries the pipeline executes.
func CheckBinaries(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Required(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		detail := status.Command
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

// CheckStorage verifies blob storage reachability.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	const name = "Blob storage"
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	client := blobstore.NewClient(blobstore.Config{
		BaseURL:  cfg.Storage.BaseURL,
		APIToken: cfg.Storage.APIToken,
		Folder:   cfg.Storage.Folder,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "API reachable"}
}

// CheckSpeech verifies transcription API reachability.
func CheckSpeech(ctx context.Context, cfg *config.Config) Result {
	const name = "Speech API"
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	client := speech.NewClient(speech.Config{
		APIKey:  cfg.Transcription.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Model:   cfg.Transcription.Model,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "API reachable"}
}

// CheckAnalysisLLM verifies analysis LLM reachability and key validity.
func CheckAnalysisLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "Analysis LLM"
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.Analysis.APIKey,
		BaseURL: cfg.Analysis.BaseURL,
		Model:   cfg.Analysis.Model,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "API reachable"}
}

func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}
