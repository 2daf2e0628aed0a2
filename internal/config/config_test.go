package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port default = %q, want 8080", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount default = %d, want 2", cfg.WorkerCount)
	}
	if cfg.SlotSnapshotTTL != 15*time.Minute {
		t.Errorf("SlotSnapshotTTL default = %v, want 15m", cfg.SlotSnapshotTTL)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel default = %q", cfg.GeminiModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("REMINDER_POLL_INTERVAL", "30s")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !cfg.UseMemoryQueue {
		t.Error("UseMemoryQueue should be true")
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", cfg.WorkerCount)
	}
	if cfg.ReminderPollInterval != 30*time.Second {
		t.Errorf("ReminderPollInterval = %v, want 30s", cfg.ReminderPollInterval)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("USE_MEMORY_QUEUE", "maybe")
	t.Setenv("SLOT_SNAPSHOT_TTL", "soon")

	cfg := Load()

	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want default 2", cfg.WorkerCount)
	}
	if cfg.UseMemoryQueue {
		t.Error("UseMemoryQueue should fall back to false")
	}
	if cfg.SlotSnapshotTTL != 15*time.Minute {
		t.Errorf("SlotSnapshotTTL = %v, want default 15m", cfg.SlotSnapshotTTL)
	}
}
