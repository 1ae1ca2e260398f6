package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearLexilensEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	wantModel := filepath.Join(home, ".local", "share", "lexilens", "models", "frozen_inference_graph.pb")
	if cfg.Model.PrimaryModel != wantModel {
		t.Fatalf("unexpected model path: %q", cfg.Model.PrimaryModel)
	}
	if cfg.Detection.ConfidenceThreshold != 0.35 {
		t.Fatalf("unexpected confidence threshold: %v", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.TickInterval != 100*time.Millisecond {
		t.Fatalf("unexpected tick interval: %s", cfg.Detection.TickInterval)
	}
	if cfg.Detection.DedupRadiusPx != 50 || cfg.Detection.AccumulatorLimit != 50 {
		t.Fatalf("unexpected dedup defaults: %+v", cfg.Detection)
	}
	if cfg.Model.LoadWait != 8*time.Second || cfg.Capture.StreamWait != 3*time.Second {
		t.Fatalf("unexpected waits: %+v", cfg)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.User.ID != 1 || cfg.User.DefaultLanguage != "es" {
		t.Fatalf("unexpected user defaults: %+v", cfg.User)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearLexilensEnv(t)
	t.Setenv("LEXILENS_MODEL_PATH", "/opt/models/net.pb")
	t.Setenv("LEXILENS_MODEL_CONFIG_PATH", "/opt/models/net.pbtxt")
	t.Setenv("LEXILENS_CONFIDENCE_THRESHOLD", "0.6")
	t.Setenv("LEXILENS_TICK_INTERVAL_MS", "250")
	t.Setenv("LEXILENS_DEDUP_RADIUS_FRAC", "0.05")
	t.Setenv("LEXILENS_FAILURE_STREAK_LIMIT", "8")
	t.Setenv("LEXILENS_CAMERA_ATTEMPTS", "2")
	t.Setenv("LEXILENS_BACKEND_URL", "http://words.local:9000")
	t.Setenv("LEXILENS_USER_ID", "42")
	t.Setenv("LEXILENS_DEFAULT_LANGUAGE", "ja")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Model.PrimaryModel != "/opt/models/net.pb" || cfg.Model.PrimaryConfig != "/opt/models/net.pbtxt" {
		t.Fatalf("unexpected model config: %+v", cfg.Model)
	}
	if cfg.Detection.ConfidenceThreshold != 0.6 || cfg.Detection.TickInterval != 250*time.Millisecond {
		t.Fatalf("unexpected detection config: %+v", cfg.Detection)
	}
	if cfg.Detection.DedupRadiusFrac != 0.05 || cfg.Detection.FailureStreakLimit != 8 {
		t.Fatalf("unexpected dedup config: %+v", cfg.Detection)
	}
	if cfg.Capture.Attempts != 2 {
		t.Fatalf("unexpected capture attempts: %d", cfg.Capture.Attempts)
	}
	if cfg.Backend.BaseURL != "http://words.local:9000" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.User.ID != 42 || cfg.User.DefaultLanguage != "ja" {
		t.Fatalf("unexpected user config: %+v", cfg.User)
	}
}

func TestLoadInvalidValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearLexilensEnv(t)
	t.Setenv("LEXILENS_CONFIDENCE_THRESHOLD", "1.5")
	t.Setenv("LEXILENS_TICK_INTERVAL_MS", "bad")
	t.Setenv("LEXILENS_FAILURE_STREAK_LIMIT", "0")
	t.Setenv("LEXILENS_ACCUMULATOR_LIMIT", "-3")
	t.Setenv("LEXILENS_CAMERA_ATTEMPTS", "-1")
	t.Setenv("LEXILENS_USER_ID", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Detection.ConfidenceThreshold != 0.35 {
		t.Fatalf("expected confidence fallback, got %v", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.TickInterval != 100*time.Millisecond {
		t.Fatalf("expected tick fallback, got %s", cfg.Detection.TickInterval)
	}
	if cfg.Detection.FailureStreakLimit != 5 || cfg.Detection.AccumulatorLimit != 50 {
		t.Fatalf("expected streak/limit fallbacks, got %+v", cfg.Detection)
	}
	if cfg.Capture.Attempts != 4 {
		t.Fatalf("expected attempts fallback, got %d", cfg.Capture.Attempts)
	}
	if cfg.User.ID != 1 {
		t.Fatalf("expected user id fallback, got %d", cfg.User.ID)
	}
}

func clearLexilensEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LEXILENS_MODEL_DIR", "LEXILENS_MODEL_PATH", "LEXILENS_MODEL_CONFIG_PATH",
		"LEXILENS_FALLBACK_MODEL_PATH", "LEXILENS_FALLBACK_MODEL_CONFIG_PATH",
		"LEXILENS_MODEL_WAIT_MS", "LEXILENS_FRAME_WIDTH", "LEXILENS_FRAME_HEIGHT",
		"LEXILENS_CAMERA_SETTLE_MS", "LEXILENS_CAMERA_ATTEMPTS", "LEXILENS_CAMERA_BACKOFF_MS",
		"LEXILENS_STREAM_WAIT_MS", "LEXILENS_CONFIDENCE_THRESHOLD", "LEXILENS_TICK_INTERVAL_MS",
		"LEXILENS_FAILURE_STREAK_LIMIT", "LEXILENS_DEDUP_RADIUS_PX", "LEXILENS_DEDUP_RADIUS_FRAC",
		"LEXILENS_ACCUMULATOR_LIMIT", "LEXILENS_BACKEND_URL", "LEXILENS_BACKEND_TIMEOUT_MS",
		"LEXILENS_USER_ID", "LEXILENS_DEFAULT_LANGUAGE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
