package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

// OpenFunc opens one camera stream.
type OpenFunc func(ctx context.Context, deviceID string, width, height int) (ports.CaptureSession, error)

// EnumerateFunc lists attached cameras.
type EnumerateFunc func() ([]domain.CaptureDevice, error)

// Config tunes acquisition behavior. Zero values take the defaults below.
type Config struct {
	// SettleDelay is the pause after releasing a previous stream before the
	// next open. Drivers need a moment to free the device.
	SettleDelay time.Duration
	// Attempts bounds open retries per acquisition.
	Attempts int
	// Backoff grows linearly with the attempt number.
	Backoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 200 * time.Millisecond
	}
	if c.Attempts <= 0 {
		c.Attempts = 4
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	return c
}

// Manager acquires camera streams one at a time: acquiring always releases
// the previously acquired stream first, so a device is never double-opened.
type Manager struct {
	open      OpenFunc
	enumerate EnumerateFunc
	cfg       Config
	logger    *slog.Logger

	mu      sync.Mutex
	current ports.CaptureSession
}

func NewManager(open OpenFunc, enumerate EnumerateFunc, cfg Config, logger *slog.Logger) *Manager {
	if open == nil {
		open = openWebcam
	}
	if enumerate == nil {
		enumerate = enumerateWebcams
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		open:      open,
		enumerate: enumerate,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Acquire opens the requested camera, retrying transient failures with a
// linear backoff. Permission errors abort immediately; retrying cannot fix
// them.
func (m *Manager) Acquire(ctx context.Context, req ports.CaptureRequest) (ports.CaptureSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.cfg.SettleDelay):
		}
	}

	deviceID, err := m.resolveDevice(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.Attempts; attempt++ {
		session, err := m.open(ctx, deviceID, req.Width, req.Height)
		if err == nil {
			m.current = session
			return session, nil
		}
		if errors.Is(err, domain.ErrPermissionDenied) {
			return nil, err
		}
		lastErr = err
		m.logger.Warn("camera open failed", "device", deviceID, "attempt", attempt, "error", err)

		if attempt == m.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * m.cfg.Backoff):
		}
	}
	return nil, fmt.Errorf("acquire %s after %d attempts: %w", deviceID, m.cfg.Attempts, lastErr)
}

// resolveDevice applies selection precedence: explicit ID, then the facing
// hint against enumerated labels, then the first camera found.
func (m *Manager) resolveDevice(req ports.CaptureRequest) (string, error) {
	if req.DeviceID != "" {
		return req.DeviceID, nil
	}

	devices, err := m.enumerate()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAcquisitionFailed, err)
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("%w: no cameras found", domain.ErrAcquisitionFailed)
	}
	if req.Facing != "" {
		if id := matchFacing(devices, req.Facing); id != "" {
			return id, nil
		}
	}
	return devices[0].DeviceID, nil
}

// matchFacing is a heuristic over device labels. Laptops label the built-in
// camera "integrated" or "front"; external USB cameras usually carry the
// vendor name and make a better rear-facing stand-in.
func matchFacing(devices []domain.CaptureDevice, facing domain.FacingMode) string {
	for _, device := range devices {
		label := strings.ToLower(device.Label)
		front := strings.Contains(label, "front") || strings.Contains(label, "integrated")
		switch facing {
		case domain.FacingUser:
			if front {
				return device.DeviceID
			}
		case domain.FacingEnvironment:
			if !front {
				return device.DeviceID
			}
		}
	}
	return ""
}

// Devices lists attached cameras.
func (m *Manager) Devices(_ context.Context) ([]domain.CaptureDevice, error) {
	return m.enumerate()
}

// Release closes the currently held stream, if any.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
	}
}
