package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/queue"
	"reel/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueUnblockCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{"jobs": jobListJSON(jobs)})
				}

				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						job.SubjectID,
						string(job.Status),
						fmt.Sprintf("%d", job.RetryCount),
						job.CreatedAt.Local().Format(time.DateTime),
						sourceLabel(job.SourceRef),
					})
				}
				table := renderTable(
					[]string{"ID", "Subject", "Status", "Retries", "Created", "Source"},
					rows,
					4,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				job, err := access.Describe(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}

				if jsonOutput {
					return writeJSON(cmd, jobJSON(job))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", job.ID)
				fmt.Fprintf(out, "Status:      %s\n", job.Status)
				fmt.Fprintf(out, "Subject:     %s\n", job.SubjectID)
				fmt.Fprintf(out, "Source:      %s\n", job.SourceRef)
				fmt.Fprintf(out, "Retries:     %d\n", job.RetryCount)
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
				}
				if job.AwaitingInput != "" {
					fmt.Fprintf(out, "Blocked:     %s\n", job.AwaitingInput)
				}
				if job.TranscodedRef != "" {
					fmt.Fprintf(out, "Transcoded:  %s\n", job.TranscodedRef)
				}
				if job.DurationSeconds > 0 {
					fmt.Fprintf(out, "Duration:    %.1fs\n", job.DurationSeconds)
				}
				if job.StoredRef != "" {
					fmt.Fprintf(out, "Stored:      %s\n", job.StoredRef)
				}
				if job.Language != "" {
					fmt.Fprintf(out, "Language:    %s\n", job.Language)
				}
				if job.Transcript != "" {
					fmt.Fprintf(out, "Transcript:  %s\n", truncate(job.Transcript, 200))
				}
				if job.Analysis != "" {
					fmt.Fprintf(out, "Analysis:    %s\n", job.Analysis)
				}
				fmt.Fprintf(out, "Created:     %s\n", job.CreatedAt.Local().Format(time.DateTime))
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Completed:   %s\n", job.CompletedAt.Local().Format(time.DateTime))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var subjectID string

	cmd := &cobra.Command{
		Use:   "add <source-ref>",
		Short: "Enqueue a recording for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("source reference is required")
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				job, err := access.Add(cmd.Context(), source, strings.TrimSpace(subjectID))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&subjectID, "subject", "", "Subject the recording belongs to")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Return failed jobs to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					updated, err := access.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}
				for _, arg := range args {
					id := strings.TrimSpace(arg)
					updated, err := access.Retry(cmd.Context(), []string{id})
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Job %s reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Job %s is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id...>",
		Short: "Remove jobs from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					id := strings.TrimSpace(arg)
					removed, err := access.Remove(cmd.Context(), []string{id})
					if err != nil {
						return err
					}
					if removed > 0 {
						fmt.Fprintf(out, "Job %s removed\n", id)
					} else {
						fmt.Fprintf(out, "Job %s not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueUnblockCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <job-id>",
		Short: "Clear a job's awaiting-input marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				id := strings.TrimSpace(args[0])
				if err := access.Unblock(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s unblocked\n", id)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Mark interrupted in-flight jobs as failed for re-admission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				updated, err := access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d jobs\n", updated)
				return nil
			})
		},
	}
}

type jobSummaryJSON struct {
	ID         string `json:"id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	SourceRef  string `json:"source_ref"`
	CreatedAt  string `json:"created_at"`
}

func jobListJSON(jobs []*queue.Job) []jobSummaryJSON {
	items := make([]jobSummaryJSON, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, jobSummaryJSON{
			ID:         job.ID,
			SubjectID:  job.SubjectID,
			Status:     string(job.Status),
			RetryCount: job.RetryCount,
			SourceRef:  job.SourceRef,
			CreatedAt:  job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return items
}

func jobJSON(job *queue.Job) map[string]any {
	payload := map[string]any{
		"id":          job.ID,
		"status":      string(job.Status),
		"subject_id":  job.SubjectID,
		"source_ref":  job.SourceRef,
		"retry_count": job.RetryCount,
		"created_at":  job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.ErrorMessage != "" {
		payload["error"] = job.ErrorMessage
	}
	if job.AwaitingInput != "" {
		payload["awaiting_input"] = job.AwaitingInput
	}
	if job.TranscodedRef != "" {
		payload["transcoded_ref"] = job.TranscodedRef
	}
	if job.DurationSeconds > 0 {
		payload["duration_seconds"] = job.DurationSeconds
	}
	if job.StoredRef != "" {
		payload["stored_ref"] = job.StoredRef
	}
	if job.Language != "" {
		payload["language"] = job.Language
	}
	if job.Transcript != "" {
		payload["transcript"] = job.Transcript
	}
	if job.Analysis != "" {
		payload["analysis"] = job.Analysis
	}
	if job.CompletedAt != nil {
		payload["completed_at"] = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func sourceLabel(ref string) string {
	return truncate(ref, 48)
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
