package domain

import "strings"

// SessionState models the detection session lifecycle.
type SessionState string

const (
	SessionStateIdle           SessionState = "idle"
	SessionStateAwaitingModel  SessionState = "awaiting_model"
	SessionStateAwaitingStream SessionState = "awaiting_stream"
	SessionStateRunning        SessionState = "running"
	SessionStateStopping       SessionState = "stopping"
	SessionStateError          SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonModelCold         SessionStateReason = "model_cold"
	SessionReasonAwaitingStream    SessionStateReason = "awaiting_stream"
	SessionReasonDetectionStarted  SessionStateReason = "detection_started"
	SessionReasonDetectionResumed  SessionStateReason = "detection_resumed"
	SessionReasonCameraSwitching   SessionStateReason = "camera_switching"
	SessionReasonDetectionStopped  SessionStateReason = "detection_stopped"
	SessionReasonInferenceStreak   SessionStateReason = "inference_failure_streak"
	SessionReasonLanguageChanged   SessionStateReason = "language_changed"
	SessionReasonCameraUnavailable SessionStateReason = "camera_unavailable"
)

// ErrorCode identifies user-visible backend errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodePermissionDenied  ErrorCode = "camera_permission_denied"
	ErrorCodeAcquisitionFailed ErrorCode = "camera_acquisition_failed"
	ErrorCodeModelLoadFailed   ErrorCode = "model_load_failed"
	ErrorCodeInference         ErrorCode = "inference"
	ErrorCodeProgressSync      ErrorCode = "progress_sync"
)

// FacingMode hints which camera to prefer when no explicit device is selected.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// BoundingBox locates a detection in source-frame pixel units.
type BoundingBox struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// NormalizedBoundingBox locates a detection relative to frame dimensions,
// every field in [0,1].
type NormalizedBoundingBox struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// RawDetection is the output of one inference call for one object. It lives
// for a single tick.
type RawDetection struct {
	Label      string
	Confidence float32
	Box        BoundingBox
}

// Enrichment is the display bundle produced for a raw label.
type Enrichment struct {
	Translation   string
	Categories    [2]string
	Pronunciation string
}

// EnrichedDetection is a flashcard-ready detection. Immutable once created.
type EnrichedDetection struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Translation   string                `json:"translation"`
	Confidence    float32               `json:"confidence"`
	Box           NormalizedBoundingBox `json:"boundingBox"`
	Categories    [2]string             `json:"categories"`
	Pronunciation string                `json:"pronunciation,omitempty"`
}

// CaptureDevice is an enumerated camera.
type CaptureDevice struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
}

// User is a word-server account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Language is a learnable target language.
type Language struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	WordCount int    `json:"wordCount"`
}

// LearnedWord is one persisted vocabulary entry for a user.
type LearnedWord struct {
	ID          int    `json:"id"`
	UserID      int    `json:"userId"`
	Word        string `json:"word"`
	Translation string `json:"translation"`
	LanguageID  int    `json:"languageId"`
	LearnedAt   string `json:"learnedAt"`
}

// UserScore tracks cumulative points and the derived level.
type UserScore struct {
	ID     int `json:"id"`
	UserID int `json:"userId"`
	Score  int `json:"score"`
	Level  int `json:"level"`
}

// ProgressResult is returned by the backend after a word is marked learned.
type ProgressResult struct {
	Score       int         `json:"score"`
	Level       int         `json:"level"`
	LearnedWord LearnedWord `json:"learnedWord"`
}

// VocabularyList groups learned words under a user-defined collection.
type VocabularyList struct {
	ID          int    `json:"id"`
	UserID      int    `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// VocabularyListWord links a learned word into a list.
type VocabularyListWord struct {
	ID      int    `json:"id"`
	ListID  int    `json:"listId"`
	WordID  int    `json:"wordId"`
	AddedAt string `json:"addedAt"`
	Notes   string `json:"notes,omitempty"`
}

// Status summarizes the current detection runtime status.
type Status struct {
	State      SessionState `json:"state"`
	Active     bool         `json:"active"`
	ModelReady bool         `json:"modelReady"`
	Language   string       `json:"language"`
	DeviceID   string       `json:"deviceId,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// DisplayName converts a raw model label into the card name shown to the
// user: first letter upper-cased, rest untouched.
func DisplayName(label string) string {
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
