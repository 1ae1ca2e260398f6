package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"lexilens/internal/bootstrap"
	"lexilens/internal/config"
	"lexilens/internal/domain"
	"lexilens/internal/usecase"
)

const (
	eventSession    = "lexilens:session"
	eventDetections = "lexilens:detections"
	eventScore      = "lexilens:score"
	eventError      = "lexilens:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.Controller
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, slog.Default())
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCameraUnavailable)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.StopDetection()
	}
}

// StartDetection acquires the camera and starts the detection loop.
func (a *App) StartDetection() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.StartDetection(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopDetection stops the loop and releases the camera. Accumulated
// flashcards survive the stop.
func (a *App) StopDetection() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.controller.StopDetection()
	return a.controller.Status(), nil
}

// SwitchCamera changes the active capture device.
func (a *App) SwitchCamera(deviceID string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.SwitchCamera(a.ctx, deviceID); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// SetLanguage switches the target language for future detections.
func (a *App) SetLanguage(code string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SetLanguage(code)
}

// GetCameras enumerates available capture devices.
func (a *App) GetCameras() ([]domain.CaptureDevice, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.Cameras(a.ctx)
}

// GetLanguages lists the learnable languages.
func (a *App) GetLanguages() ([]domain.Language, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.Languages(a.ctx)
}

// GetDetections returns the accumulated flashcards in append order.
func (a *App) GetDetections() ([]domain.EnrichedDetection, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.Detections(), nil
}

// GetLearnedWords lists the user's persisted vocabulary.
func (a *App) GetLearnedWords() ([]domain.LearnedWord, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.LearnedWords(a.ctx)
}

// MarkLearned saves an accumulated flashcard to the word server and
// returns the updated score.
func (a *App) MarkLearned(name string) (domain.ProgressResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.ProgressResult{}, err
	}
	return a.controller.MarkLearned(a.ctx, name)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"modelPath":       a.cfg.Model.PrimaryModel,
		"backendUrl":      a.cfg.Backend.BaseURL,
		"defaultLanguage": a.cfg.User.DefaultLanguage,
		"tickInterval":    a.cfg.Detection.TickInterval.String(),
		"confidence":      fmt.Sprintf("%.2f", a.cfg.Detection.ConfidenceThreshold),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// DetectionsAccumulated emits one tick's new flashcards as a batch.
func (a *App) DetectionsAccumulated(batch []domain.EnrichedDetection) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDetections, batch)
}

// ScoreUpdated emits the user's updated score after a word is learned.
func (a *App) ScoreUpdated(result domain.ProgressResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventScore, result)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonModelCold:
		return "Loading detection model..."
	case domain.SessionReasonAwaitingStream:
		return "Waiting for camera stream..."
	case domain.SessionReasonDetectionStarted:
		return "Detection running"
	case domain.SessionReasonDetectionResumed:
		return "Detection resumed"
	case domain.SessionReasonCameraSwitching:
		return "Switching camera..."
	case domain.SessionReasonDetectionStopped:
		return "Detection stopped"
	case domain.SessionReasonInferenceStreak:
		return "Detection stopped after repeated failures"
	case domain.SessionReasonLanguageChanged:
		return "Language changed"
	case domain.SessionReasonCameraUnavailable:
		return "Camera not active"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Camera access denied. Check camera permissions."
	case domain.ErrorCodeAcquisitionFailed:
		return "Could not open the camera"
	case domain.ErrorCodeModelLoadFailed:
		return "Could not load the detection model"
	case domain.ErrorCodeInference:
		return "Object detection failed"
	case domain.ErrorCodeProgressSync:
		return "Could not save progress to the word server"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
