package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

// SessionConfig tunes the detection loop. Zero values fall back to the
// defaults below.
type SessionConfig struct {
	// ConfidenceThreshold drops detections at or below this score.
	ConfidenceThreshold float32
	// TickInterval is the pause between the end of one tick and the next.
	TickInterval time.Duration
	// ModelWait bounds how long start waits for the model before
	// proceeding anyway.
	ModelWait time.Duration
	// StreamWait bounds how long start waits for the stream to become
	// decodable before proceeding anyway.
	StreamWait time.Duration
	// FailureStreakLimit stops the session after this many consecutive
	// failed ticks.
	FailureStreakLimit int
	// DedupRadiusPx is the duplicate radius in capture-resolution pixels.
	DedupRadiusPx float32
	// DedupRadiusFrac, when non-zero, scales the radius with frame width
	// instead of using DedupRadiusPx.
	DedupRadiusFrac float32
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.35
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.ModelWait <= 0 {
		c.ModelWait = 8 * time.Second
	}
	if c.StreamWait <= 0 {
		c.StreamWait = 3 * time.Second
	}
	if c.FailureStreakLimit <= 0 {
		c.FailureStreakLimit = 5
	}
	if c.DedupRadiusPx <= 0 && c.DedupRadiusFrac <= 0 {
		c.DedupRadiusPx = 50
	}
	return c
}

// DetectionSession owns the inference loop: it repeatedly infers on the
// current frame, filters by confidence, deduplicates against the
// accumulator, normalizes coordinates, enriches, and emits each tick's new
// detections as one batch. Exactly one inference call is in flight at a
// time; a slow call just delays the next tick.
type DetectionSession struct {
	model    ports.ModelSource
	enricher ports.Enricher
	sink     ports.EventSink
	acc      *Accumulator
	cfg      SessionConfig
	logger   *slog.Logger

	mu         sync.Mutex
	state      domain.SessionState
	generation uint64
	source     ports.CaptureSession
	language   string
	cancel     context.CancelFunc
	loopDone   chan struct{}
	streak     int
}

func NewDetectionSession(
	model ports.ModelSource,
	enricher ports.Enricher,
	sink ports.EventSink,
	acc *Accumulator,
	cfg SessionConfig,
	logger *slog.Logger,
) *DetectionSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionSession{
		model:    model,
		enricher: enricher,
		sink:     sink,
		acc:      acc,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		state:    domain.SessionStateIdle,
	}
}

// Start spins up the detection loop against source. It is idempotent:
// calling while a loop is active (in any non-idle state) is a no-op, so
// repeated "start detection" gestures never duplicate loops. Start does not
// acquire the stream; it only requires a readable source handle and waits a
// bounded time for model and stream readiness before ticking.
func (s *DetectionSession) Start(ctx context.Context, source ports.CaptureSession, languageCode string) {
	s.mu.Lock()
	if s.state != domain.SessionStateIdle {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.generation++
	gen := s.generation
	s.state = domain.SessionStateAwaitingModel
	s.source = source
	s.language = languageCode
	s.cancel = cancel
	s.loopDone = done
	s.streak = 0
	s.mu.Unlock()

	s.sink.SessionStateChanged(domain.SessionStateAwaitingModel, domain.SessionReasonModelCold)
	go s.run(loopCtx, gen, source, done)
}

// Stop cancels the pending reschedule and blocks until no further tick can
// produce side effects. An in-flight inference call is allowed to complete,
// but its results are discarded. Stop releases no external resources and is
// safe to call from any state.
func (s *DetectionSession) Stop() {
	s.mu.Lock()
	if s.state == domain.SessionStateIdle {
		s.mu.Unlock()
		return
	}
	s.state = domain.SessionStateStopping
	s.generation++
	cancel := s.cancel
	done := s.loopDone
	s.cancel = nil
	s.loopDone = nil
	s.mu.Unlock()

	s.sink.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonDetectionStopped)
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.state = domain.SessionStateIdle
	s.source = nil
	s.mu.Unlock()
	s.sink.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonDetectionStopped)
}

// SetLanguage switches the target language for subsequent ticks. Already
// accumulated detections keep their original enrichment.
func (s *DetectionSession) SetLanguage(code string) {
	s.mu.Lock()
	changed := s.language != code
	s.language = code
	state := s.state
	s.mu.Unlock()

	if changed && state == domain.SessionStateRunning {
		s.sink.SessionStateChanged(state, domain.SessionReasonLanguageChanged)
	}
}

// Status reports the current session state.
func (s *DetectionSession) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.Status{
		State:      s.state,
		Active:     s.state != domain.SessionStateIdle,
		ModelReady: s.model.Ready(),
		Language:   s.language,
	}
	if s.source != nil {
		status.DeviceID = s.source.DeviceID()
	}
	return status
}

func (s *DetectionSession) run(ctx context.Context, gen uint64, source ports.CaptureSession, done chan struct{}) {
	defer close(done)

	s.awaitModel(ctx)
	if ctx.Err() != nil {
		return
	}

	if !s.transition(gen, domain.SessionStateAwaitingStream, domain.SessionReasonAwaitingStream) {
		return
	}
	s.awaitStream(ctx, source)
	if ctx.Err() != nil {
		return
	}

	if !s.transition(gen, domain.SessionStateRunning, domain.SessionReasonDetectionStarted) {
		return
	}

	for {
		if stop := s.tick(ctx, gen, source); stop || ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.TickInterval):
		}
	}
}

// awaitModel waits for the model load, bounded by ModelWait. The session
// proceeds after the wait regardless; a genuinely broken model is then
// caught by the failure streak.
func (s *DetectionSession) awaitModel(ctx context.Context) {
	if s.model.Ready() {
		return
	}

	loaded := make(chan error, 1)
	go func() {
		_, err := s.model.Load(context.Background())
		loaded <- err
	}()

	select {
	case err := <-loaded:
		if err != nil {
			s.sink.SessionError(domain.ErrorCodeModelLoadFailed, err.Error())
		}
	case <-time.After(s.cfg.ModelWait):
		s.logger.Warn("model not ready after wait, proceeding", "wait", s.cfg.ModelWait)
	case <-ctx.Done():
	}
}

func (s *DetectionSession) awaitStream(ctx context.Context, source ports.CaptureSession) {
	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.StreamWait)
	defer cancel()
	if err := source.AwaitReadable(readyCtx); err != nil && ctx.Err() == nil {
		s.logger.Warn("stream not decodable after wait, proceeding", "device", source.DeviceID())
	}
}

// tick runs one loop iteration. A true result stops the loop.
func (s *DetectionSession) tick(ctx context.Context, gen uint64, source ports.CaptureSession) bool {
	if !s.isCurrent(gen) {
		return true
	}

	width, height := source.Dimensions()
	if width <= 0 || height <= 0 {
		return false
	}
	detector := s.model.Get()
	if detector == nil {
		return false
	}

	frame, err := source.Grab(ctx)
	if err != nil {
		return s.noteFailure(gen, err)
	}
	raws, err := detector.Detect(ctx, frame)
	frame.Close()
	if err != nil {
		return s.noteFailure(gen, err)
	}
	s.resetStreak(gen)

	language := s.currentLanguage()
	radius := s.dedupRadius(width)

	batch := make([]domain.EnrichedDetection, 0, len(raws))
	origins := make([]domain.BoundingBox, 0, len(raws))
	for _, raw := range raws {
		if raw.Confidence <= s.cfg.ConfidenceThreshold {
			continue
		}
		norm, ok := domain.NormalizeBox(raw.Box, width, height)
		if !ok {
			continue
		}
		name := domain.DisplayName(raw.Label)
		if s.acc.IsDuplicate(name, raw.Box, radius) {
			continue
		}
		if batchHasNearby(batch, origins, name, raw.Box, radius) {
			continue
		}

		bundle := s.enricher.Enrich(raw.Label, language)
		batch = append(batch, domain.EnrichedDetection{
			ID:            uuid.NewString(),
			Name:          name,
			Translation:   bundle.Translation,
			Confidence:    raw.Confidence,
			Box:           norm,
			Categories:    bundle.Categories,
			Pronunciation: bundle.Pronunciation,
		})
		origins = append(origins, raw.Box)
	}

	if len(batch) > 0 {
		s.publish(gen, batch, origins)
	}
	return false
}

// publish appends a tick's batch and notifies the sink once, unless the
// session stopped or restarted while inference was in flight.
func (s *DetectionSession) publish(gen uint64, batch []domain.EnrichedDetection, origins []domain.BoundingBox) {
	s.mu.Lock()
	live := s.generation == gen && s.state == domain.SessionStateRunning
	s.mu.Unlock()
	if !live {
		return
	}

	s.acc.Append(batch, origins)
	s.sink.DetectionsAccumulated(batch)
}

// noteFailure records a failed tick. Individual failures are absorbed and
// logged; a full streak escalates to an automatic stop.
func (s *DetectionSession) noteFailure(gen uint64, err error) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return true
	}
	s.streak++
	streak := s.streak
	s.mu.Unlock()

	s.logger.Warn("tick failed", "error", err, "streak", streak)
	if streak >= s.cfg.FailureStreakLimit {
		s.finishFromLoop(gen, domain.SessionReasonInferenceStreak)
		return true
	}
	return false
}

func (s *DetectionSession) resetStreak(gen uint64) {
	s.mu.Lock()
	if s.generation == gen {
		s.streak = 0
	}
	s.mu.Unlock()
}

// finishFromLoop transitions to idle from inside the loop goroutine, where
// Stop's wait-for-done would deadlock.
func (s *DetectionSession) finishFromLoop(gen uint64, reason domain.SessionStateReason) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.state = domain.SessionStateIdle
	cancel := s.cancel
	s.cancel = nil
	s.loopDone = nil
	s.source = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.sink.SessionStateChanged(domain.SessionStateIdle, reason)
}

func (s *DetectionSession) transition(gen uint64, state domain.SessionState, reason domain.SessionStateReason) bool {
	s.mu.Lock()
	if s.generation != gen || s.state == domain.SessionStateStopping {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.mu.Unlock()

	s.sink.SessionStateChanged(state, reason)
	return true
}

func (s *DetectionSession) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen && s.state == domain.SessionStateRunning
}

func (s *DetectionSession) currentLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *DetectionSession) dedupRadius(frameWidth int) float32 {
	if s.cfg.DedupRadiusFrac > 0 {
		return s.cfg.DedupRadiusFrac * float32(frameWidth)
	}
	return s.cfg.DedupRadiusPx
}

func batchHasNearby(batch []domain.EnrichedDetection, origins []domain.BoundingBox, name string, origin domain.BoundingBox, radius float32) bool {
	for i := range batch {
		if batch[i].Name != name {
			continue
		}
		if absDiff(origins[i].X, origin.X) < radius && absDiff(origins[i].Y, origin.Y) < radius {
			return true
		}
	}
	return false
}
