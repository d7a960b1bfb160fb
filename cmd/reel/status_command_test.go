package main

import (
	"context"
	"encoding/json"
	"testing"
)

func TestStatusReportsDaemonDownAndQueueCounts(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.store.NewJob(context.Background(), "/calls/raw/a.wav", "subject-a"); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon:")
	requireContains(t, out, "not running")
	requireContains(t, out, "1 jobs total")
	requireContains(t, out, "pending")
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var payload struct {
		Daemon struct {
			Running bool `json:"running"`
		} `json:"daemon"`
		Queue map[string]int `json:"queue"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if payload.Daemon.Running {
		t.Fatal("daemon should be reported as not running")
	}
	if payload.Queue["total"] != 0 {
		t.Fatalf("queue total = %d, want 0", payload.Queue["total"])
	}
}
