package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/queueaccess"
)

const healthProbeTimeout = 3 * time.Second

// daemonHealth mirrors the daemon's health endpoint body.
type daemonHealth struct {
	Status        string `json:"status"`
	ActiveJobs    int64  `json:"activeJobs"`
	MaxConcurrent int    `json:"maxConcurrent"`
	Uptime        string `json:"uptime"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			health, daemonErr := probeDaemon(cmd.Context(), cfg.Daemon.BindAddress)

			return ctx.withQueue(func(access queueaccess.Access) error {
				summary, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					payload := map[string]any{
						"daemon": map[string]any{"running": daemonErr == nil},
						"queue": map[string]int{
							"total":      summary.Total,
							"pending":    summary.Pending,
							"processing": summary.Processing,
							"completed":  summary.Completed,
							"failed":     summary.Failed,
						},
					}
					if daemonErr == nil {
						payload["daemon"] = map[string]any{
							"running":       true,
							"status":        health.Status,
							"activeJobs":    health.ActiveJobs,
							"maxConcurrent": health.MaxConcurrent,
							"uptime":        health.Uptime,
						}
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if daemonErr == nil {
					detail := fmt.Sprintf("up %s, %d/%d jobs active",
						health.Uptime, health.ActiveJobs, health.MaxConcurrent)
					fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, detail, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				}

				queueKind := statusOK
				if summary.Failed > 0 {
					queueKind = statusWarn
				}
				detail := fmt.Sprintf("%d jobs total", summary.Total)
				fmt.Fprintln(out, renderStatusLine("Queue", queueKind, detail, colorize))

				rows := [][]string{
					{"pending", fmt.Sprintf("%d", summary.Pending)},
					{"processing", fmt.Sprintf("%d", summary.Processing)},
					{"completed", fmt.Sprintf("%d", summary.Completed)},
					{"failed", fmt.Sprintf("%d", summary.Failed)},
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, 2))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

// probeDaemon queries the daemon health endpoint. An error means no healthy
// daemon answered on the configured bind address.
func probeDaemon(ctx context.Context, bind string) (daemonHealth, error) {
	reqCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+bind+"/health", nil)
	if err != nil {
		return daemonHealth{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return daemonHealth{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return daemonHealth{}, fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	var health daemonHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return daemonHealth{}, fmt.Errorf("decode health response: %w", err)
	}
	return health, nil
}
