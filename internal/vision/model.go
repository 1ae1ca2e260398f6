package vision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lexilens/internal/ports"
)

// ModelPaths names the network weights plus its text graph.
type ModelPaths struct {
	Model  string
	Config string
}

// LoaderFunc constructs a detector from a pair of model files.
type LoaderFunc func(modelPath, configPath string) (ports.Detector, error)

// Manager loads the detection model at most once at a time and caches the
// result for the process lifetime. Concurrent Load calls share one in-flight
// attempt. A failed attempt is not retried automatically; the next explicit
// Load tries again, so a model downloaded after startup still gets picked up.
type Manager struct {
	primary  ModelPaths
	fallback ModelPaths
	loader   LoaderFunc
	logger   *slog.Logger

	mu       sync.Mutex
	detector ports.Detector
	inflight chan struct{}
	loadErr  error
}

func NewManager(primary, fallback ModelPaths, loader LoaderFunc, logger *slog.Logger) *Manager {
	if loader == nil {
		loader = NewSSDDetector
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		primary:  primary,
		fallback: fallback,
		loader:   loader,
		logger:   logger,
	}
}

// Load returns the cached detector or performs the load. When the primary
// model cannot be read the fallback is attempted before giving up.
func (m *Manager) Load(ctx context.Context) (ports.Detector, error) {
	m.mu.Lock()
	if m.detector != nil {
		detector := m.detector
		m.mu.Unlock()
		return detector, nil
	}
	if m.inflight != nil {
		wait := m.inflight
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
		detector, err := m.detector, m.loadErr
		m.mu.Unlock()
		if detector == nil && err == nil {
			err = fmt.Errorf("model load did not complete")
		}
		return detector, err
	}
	done := make(chan struct{})
	m.inflight = done
	m.mu.Unlock()

	detector, err := m.load()

	m.mu.Lock()
	m.detector = detector
	m.loadErr = err
	m.inflight = nil
	m.mu.Unlock()
	close(done)

	return detector, err
}

func (m *Manager) load() (ports.Detector, error) {
	detector, primaryErr := m.loader(m.primary.Model, m.primary.Config)
	if primaryErr == nil {
		return detector, nil
	}
	if m.fallback.Model == "" {
		return nil, primaryErr
	}

	m.logger.Warn("primary model failed, trying fallback",
		"primary", m.primary.Model, "fallback", m.fallback.Model, "error", primaryErr)
	detector, fallbackErr := m.loader(m.fallback.Model, m.fallback.Config)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary: %w; fallback: %v", primaryErr, fallbackErr)
	}
	return detector, nil
}

// Ready reports whether a detector is cached.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector != nil
}

// Get returns the cached detector, nil before a successful load.
func (m *Manager) Get() ports.Detector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector
}

// Close releases the cached detector.
func (m *Manager) Close() error {
	m.mu.Lock()
	detector := m.detector
	m.detector = nil
	m.mu.Unlock()
	if detector == nil {
		return nil
	}
	return detector.Close()
}
