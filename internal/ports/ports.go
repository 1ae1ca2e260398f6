package ports

import (
	"context"

	"lexilens/internal/domain"
)

// Frame is one decoded video frame handed to inference. Callers must Close
// a frame once inference is done with it.
type Frame interface {
	Width() int
	Height() int
	Close()
}

// CaptureSession is a live camera stream bound to one device.
type CaptureSession interface {
	// Grab decodes the next available frame.
	Grab(ctx context.Context) (Frame, error)
	// Dimensions reports the source frame size. Zero values mean the
	// stream is not yet decodable.
	Dimensions() (width, height int)
	// AwaitReadable blocks until the stream delivers a decodable frame or
	// ctx expires.
	AwaitReadable(ctx context.Context) error
	DeviceID() string
	Close() error
}

// CaptureRequest selects which camera to open. Explicit DeviceID wins over
// the facing hint; with neither, the first enumerated device is used.
type CaptureRequest struct {
	DeviceID string
	Facing   domain.FacingMode
	Width    int
	Height   int
}

// Capture acquires and enumerates camera streams. Acquire fully releases a
// previously acquired session before opening the next one.
type Capture interface {
	Acquire(ctx context.Context, req CaptureRequest) (CaptureSession, error)
	Devices(ctx context.Context) ([]domain.CaptureDevice, error)
}

// Detector runs object inference on a single frame.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]domain.RawDetection, error)
	Close() error
}

// ModelSource loads and caches the inference model. Load is idempotent:
// concurrent callers share one in-flight load; a failed load may be retried
// by calling Load again, but the source never retries on its own.
type ModelSource interface {
	Load(ctx context.Context) (Detector, error)
	Ready() bool
	// Get returns the cached detector, or nil before a successful load.
	Get() Detector
}

// Enricher maps a raw label to its display bundle. Pure: misses fall back
// to documented defaults and never fail.
type Enricher interface {
	Enrich(label string, languageCode string) domain.Enrichment
}

// ProgressBackend is the learned-word/score REST collaborator. It is only
// invoked on explicit user action, never from the detection loop.
type ProgressBackend interface {
	AddLearnedWord(ctx context.Context, userID int, word, translation string, languageID int) (domain.ProgressResult, error)
	Languages(ctx context.Context) ([]domain.Language, error)
	LearnedWords(ctx context.Context, userID int) ([]domain.LearnedWord, error)
}

// PreferenceStore persists camera and language selection across launches.
type PreferenceStore interface {
	SelectedDevice() string
	SetSelectedDevice(id string) error
	SelectedLanguage() string
	SetSelectedLanguage(code string) error
}

// EventSink emits backend state and detection batches to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	DetectionsAccumulated(batch []domain.EnrichedDetection)
	ScoreUpdated(result domain.ProgressResult)
	SessionError(code domain.ErrorCode, detail string)
}
