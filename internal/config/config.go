package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the desktop app.
type Config struct {
	Model     ModelConfig
	Capture   CaptureConfig
	Detection DetectionConfig
	Backend   BackendConfig
	User      UserConfig
}

type ModelConfig struct {
	PrimaryModel   string
	PrimaryConfig  string
	FallbackModel  string
	FallbackConfig string
	LoadWait       time.Duration
}

type CaptureConfig struct {
	FrameWidth  int
	FrameHeight int
	SettleDelay time.Duration
	Attempts    int
	Backoff     time.Duration
	StreamWait  time.Duration
}

type DetectionConfig struct {
	ConfidenceThreshold float64
	TickInterval        time.Duration
	FailureStreakLimit  int
	DedupRadiusPx       float64
	DedupRadiusFrac     float64
	AccumulatorLimit    int
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type UserConfig struct {
	ID              int
	DefaultLanguage string
}

// Load resolves configuration from a .env file, environment variables, and
// defaults. Missing model files are not an error at load time; the model
// manager reports that when detection starts.
func Load() (Config, error) {
	// A missing .env is fine; process env and defaults still apply.
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	modelDir := envOrDefault("LEXILENS_MODEL_DIR", filepath.Join(home, ".local", "share", "lexilens", "models"))

	cfg := Config{
		Model: ModelConfig{
			PrimaryModel:   envOrDefault("LEXILENS_MODEL_PATH", filepath.Join(modelDir, "frozen_inference_graph.pb")),
			PrimaryConfig:  envOrDefault("LEXILENS_MODEL_CONFIG_PATH", filepath.Join(modelDir, "ssd_mobilenet_v2_coco.pbtxt")),
			FallbackModel:  strings.TrimSpace(os.Getenv("LEXILENS_FALLBACK_MODEL_PATH")),
			FallbackConfig: strings.TrimSpace(os.Getenv("LEXILENS_FALLBACK_MODEL_CONFIG_PATH")),
			LoadWait:       envDurationMs("LEXILENS_MODEL_WAIT_MS", 8000),
		},
		Capture: CaptureConfig{
			FrameWidth:  envOrDefaultInt("LEXILENS_FRAME_WIDTH", 1280),
			FrameHeight: envOrDefaultInt("LEXILENS_FRAME_HEIGHT", 720),
			SettleDelay: envDurationMs("LEXILENS_CAMERA_SETTLE_MS", 200),
			Attempts:    envOrDefaultInt("LEXILENS_CAMERA_ATTEMPTS", 4),
			Backoff:     envDurationMs("LEXILENS_CAMERA_BACKOFF_MS", 1000),
			StreamWait:  envDurationMs("LEXILENS_STREAM_WAIT_MS", 3000),
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: envOrDefaultFloat("LEXILENS_CONFIDENCE_THRESHOLD", 0.35),
			TickInterval:        envDurationMs("LEXILENS_TICK_INTERVAL_MS", 100),
			FailureStreakLimit:  envOrDefaultInt("LEXILENS_FAILURE_STREAK_LIMIT", 5),
			DedupRadiusPx:       envOrDefaultFloat("LEXILENS_DEDUP_RADIUS_PX", 50),
			DedupRadiusFrac:     envOrDefaultFloat("LEXILENS_DEDUP_RADIUS_FRAC", 0),
			AccumulatorLimit:    envOrDefaultInt("LEXILENS_ACCUMULATOR_LIMIT", 50),
		},
		Backend: BackendConfig{
			BaseURL: envOrDefault("LEXILENS_BACKEND_URL", "http://localhost:5000"),
			Timeout: envDurationMs("LEXILENS_BACKEND_TIMEOUT_MS", 10000),
		},
		User: UserConfig{
			ID:              envOrDefaultInt("LEXILENS_USER_ID", 1),
			DefaultLanguage: envOrDefault("LEXILENS_DEFAULT_LANGUAGE", "es"),
		},
	}

	if cfg.Detection.ConfidenceThreshold <= 0 || cfg.Detection.ConfidenceThreshold >= 1 {
		cfg.Detection.ConfidenceThreshold = 0.35
	}
	if cfg.Detection.FailureStreakLimit <= 0 {
		cfg.Detection.FailureStreakLimit = 5
	}
	if cfg.Detection.AccumulatorLimit <= 0 {
		cfg.Detection.AccumulatorLimit = 50
	}
	if cfg.Capture.Attempts <= 0 {
		cfg.Capture.Attempts = 4
	}
	if cfg.User.ID <= 0 {
		cfg.User.ID = 1
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationMs(key string, fallbackMs int) time.Duration {
	ms := envOrDefaultInt(key, fallbackMs)
	if ms < 0 {
		ms = fallbackMs
	}
	return time.Duration(ms) * time.Millisecond
}
