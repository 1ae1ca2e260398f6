package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

var ErrNoSuchDetection = errors.New("word was not detected in this session")

// ControllerConfig carries the user identity and capture preferences.
type ControllerConfig struct {
	UserID          int
	DefaultLanguage string
	Facing          domain.FacingMode
	FrameWidth      int
	FrameHeight     int
}

// Controller orchestrates the pieces around the detection session: camera
// acquisition and release, device and language switching, and the
// mark-learned flow against the progress backend. The session itself never
// touches the capture lifecycle.
type Controller struct {
	session *DetectionSession
	capture ports.Capture
	backend ports.ProgressBackend
	prefs   ports.PreferenceStore
	acc     *Accumulator
	sink    ports.EventSink
	cfg     ControllerConfig

	// opMu serializes start/stop/switch so two gestures cannot race the
	// capture manager.
	opMu   sync.Mutex
	source ports.CaptureSession

	langMu    sync.Mutex
	languages map[string]domain.Language
}

func NewController(
	session *DetectionSession,
	capture ports.Capture,
	backend ports.ProgressBackend,
	prefs ports.PreferenceStore,
	acc *Accumulator,
	sink ports.EventSink,
	cfg ControllerConfig,
) *Controller {
	if cfg.UserID <= 0 {
		cfg.UserID = 1
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "es"
	}
	return &Controller{
		session: session,
		capture: capture,
		backend: backend,
		prefs:   prefs,
		acc:     acc,
		sink:    sink,
		cfg:     cfg,
	}
}

// StartDetection acquires the preferred camera and starts the session.
// Safe to call repeatedly: an active session makes it a no-op.
func (c *Controller) StartDetection(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.source != nil && c.session.Status().Active {
		return nil
	}

	source, err := c.capture.Acquire(ctx, c.request(c.prefs.SelectedDevice()))
	if err != nil {
		c.reportCaptureError(err)
		return err
	}

	c.source = source
	c.session.Start(ctx, source, c.language())
	return nil
}

// StopDetection stops the loop and releases the camera.
func (c *Controller) StopDetection() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.session.Stop()
	c.releaseSource()
}

// SwitchCamera changes the active device. While a session is running the
// loop is stopped, the old stream fully released, the new one acquired and
// awaited, and the loop resumed against it.
func (c *Controller) SwitchCamera(ctx context.Context, deviceID string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	wasActive := c.session.Status().Active
	if wasActive {
		c.session.Stop()
	}
	c.releaseSource()

	if err := c.prefs.SetSelectedDevice(deviceID); err != nil {
		return fmt.Errorf("failed to persist camera selection: %w", err)
	}
	if !wasActive {
		return nil
	}

	source, err := c.capture.Acquire(ctx, c.request(deviceID))
	if err != nil {
		c.reportCaptureError(err)
		return err
	}

	c.source = source
	c.session.Start(ctx, source, c.language())
	return nil
}

// SetLanguage switches the target language for future enrichment and
// persists the selection.
func (c *Controller) SetLanguage(code string) error {
	if err := c.prefs.SetSelectedLanguage(code); err != nil {
		return fmt.Errorf("failed to persist language selection: %w", err)
	}
	c.session.SetLanguage(code)
	return nil
}

// MarkLearned submits an accumulated detection to the progress backend and
// emits the resulting score. Matching is case-insensitive on the card name.
func (c *Controller) MarkLearned(ctx context.Context, name string) (domain.ProgressResult, error) {
	det, ok := c.acc.Find(name)
	if !ok {
		return domain.ProgressResult{}, fmt.Errorf("%w: %q", ErrNoSuchDetection, name)
	}

	lang, err := c.languageByCode(ctx, c.language())
	if err != nil {
		c.sink.SessionError(domain.ErrorCodeProgressSync, err.Error())
		return domain.ProgressResult{}, err
	}

	result, err := c.backend.AddLearnedWord(ctx, c.cfg.UserID, det.Name, det.Translation, lang.ID)
	if err != nil {
		c.sink.SessionError(domain.ErrorCodeProgressSync, err.Error())
		return domain.ProgressResult{}, err
	}

	c.sink.ScoreUpdated(result)
	return result, nil
}

// Cameras enumerates available capture devices.
func (c *Controller) Cameras(ctx context.Context) ([]domain.CaptureDevice, error) {
	return c.capture.Devices(ctx)
}

// Languages lists learnable languages from the backend.
func (c *Controller) Languages(ctx context.Context) ([]domain.Language, error) {
	return c.backend.Languages(ctx)
}

// LearnedWords lists the user's persisted vocabulary.
func (c *Controller) LearnedWords(ctx context.Context) ([]domain.LearnedWord, error) {
	return c.backend.LearnedWords(ctx, c.cfg.UserID)
}

// Detections returns the accumulated window in append order.
func (c *Controller) Detections() []domain.EnrichedDetection {
	return c.acc.Snapshot()
}

// Status reports session state plus the active language.
func (c *Controller) Status() domain.Status {
	status := c.session.Status()
	if status.Language == "" {
		status.Language = c.language()
	}
	return status
}

func (c *Controller) releaseSource() {
	if c.source != nil {
		_ = c.source.Close()
		c.source = nil
	}
}

func (c *Controller) request(deviceID string) ports.CaptureRequest {
	return ports.CaptureRequest{
		DeviceID: deviceID,
		Facing:   c.cfg.Facing,
		Width:    c.cfg.FrameWidth,
		Height:   c.cfg.FrameHeight,
	}
}

func (c *Controller) language() string {
	if code := c.prefs.SelectedLanguage(); code != "" {
		return code
	}
	return c.cfg.DefaultLanguage
}

// languageByCode resolves a code against the backend catalog, refreshing
// the cache once on a miss.
func (c *Controller) languageByCode(ctx context.Context, code string) (domain.Language, error) {
	c.langMu.Lock()
	defer c.langMu.Unlock()

	if lang, ok := c.languages[code]; ok {
		return lang, nil
	}

	languages, err := c.backend.Languages(ctx)
	if err != nil {
		return domain.Language{}, fmt.Errorf("failed to fetch languages: %w", err)
	}
	c.languages = make(map[string]domain.Language, len(languages))
	for _, lang := range languages {
		c.languages[lang.Code] = lang
	}

	lang, ok := c.languages[code]
	if !ok {
		return domain.Language{}, fmt.Errorf("unknown language code %q", code)
	}
	return lang, nil
}

func (c *Controller) reportCaptureError(err error) {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		c.sink.SessionError(domain.ErrorCodePermissionDenied, err.Error())
	default:
		c.sink.SessionError(domain.ErrorCodeAcquisitionFailed, err.Error())
	}
}
