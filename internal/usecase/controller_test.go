package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

func TestControllerStartStopReleasesCamera(t *testing.T) {
	t.Parallel()

	source := &fakeSource{id: "cam0", width: 640, height: 480}
	capture := &fakeCapture{sessions: []*fakeSource{source}}
	sink := &fakeEventSink{}

	controller := newTestController(capture, &fakeBackend{}, &fakePrefs{}, sink, NewAccumulator(0))

	if err := controller.StartDetection(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, func() bool { return controller.Status().State == domain.SessionStateRunning })

	controller.StopDetection()

	if source.closeCalls() != 1 {
		t.Fatalf("expected the camera to be released once, got %d", source.closeCalls())
	}
	if status := controller.Status(); status.Active {
		t.Fatalf("expected idle status, got %+v", status)
	}
}

func TestControllerStartPermissionDenied(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{err: fmt.Errorf("open /dev/video0: %w", domain.ErrPermissionDenied)}
	sink := &fakeEventSink{}

	controller := newTestController(capture, &fakeBackend{}, &fakePrefs{}, sink, NewAccumulator(0))

	if err := controller.StartDetection(context.Background()); err == nil {
		t.Fatalf("expected start to fail")
	}

	errs := sink.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodePermissionDenied {
		t.Fatalf("expected a permission error event, got %+v", errs)
	}
}

func TestControllerStartAcquisitionFailed(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{err: errors.New("device busy")}
	sink := &fakeEventSink{}

	controller := newTestController(capture, &fakeBackend{}, &fakePrefs{}, sink, NewAccumulator(0))

	if err := controller.StartDetection(context.Background()); err == nil {
		t.Fatalf("expected start to fail")
	}

	errs := sink.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeAcquisitionFailed {
		t.Fatalf("expected an acquisition error event, got %+v", errs)
	}
}

func TestControllerSwitchCameraWhileIdlePersistsOnly(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	prefs := &fakePrefs{}

	controller := newTestController(capture, &fakeBackend{}, prefs, &fakeEventSink{}, NewAccumulator(0))

	if err := controller.SwitchCamera(context.Background(), "cam1"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if prefs.SelectedDevice() != "cam1" {
		t.Fatalf("expected selection persisted, got %q", prefs.SelectedDevice())
	}
	if capture.acquireCalls() != 0 {
		t.Fatalf("expected no acquisition while idle, got %d", capture.acquireCalls())
	}
}

func TestControllerSwitchCameraWhileRunning(t *testing.T) {
	t.Parallel()

	first := &fakeSource{id: "cam0", width: 640, height: 480}
	second := &fakeSource{id: "cam1", width: 640, height: 480}
	capture := &fakeCapture{sessions: []*fakeSource{first, second}}
	prefs := &fakePrefs{}

	controller := newTestController(capture, &fakeBackend{}, prefs, &fakeEventSink{}, NewAccumulator(0))

	if err := controller.StartDetection(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, func() bool { return controller.Status().State == domain.SessionStateRunning })

	if err := controller.SwitchCamera(context.Background(), "cam1"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	waitFor(t, func() bool { return controller.Status().State == domain.SessionStateRunning })

	if first.closeCalls() != 1 {
		t.Fatalf("expected the previous stream to be released, got %d closes", first.closeCalls())
	}
	if got := capture.lastRequest().DeviceID; got != "cam1" {
		t.Fatalf("expected re-acquisition of cam1, got %q", got)
	}
	if status := controller.Status(); status.DeviceID != "cam1" {
		t.Fatalf("expected session bound to cam1, got %+v", status)
	}

	controller.StopDetection()
}

func TestControllerMarkLearnedEmitsScore(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(0)
	acc.Append(
		[]domain.EnrichedDetection{{ID: "d1", Name: "Cup", Translation: "taza"}},
		[]domain.BoundingBox{{X: 100, Y: 100}},
	)
	backend := &fakeBackend{
		languages: []domain.Language{{ID: 2, Name: "Spanish", Code: "es"}},
		addResult: domain.ProgressResult{Score: 10, Level: 1},
	}
	sink := &fakeEventSink{}

	controller := newTestController(&fakeCapture{}, backend, &fakePrefs{language: "es"}, sink, acc)

	result, err := controller.MarkLearned(context.Background(), "cup")
	if err != nil {
		t.Fatalf("mark learned failed: %v", err)
	}
	if result.Score != 10 || result.Level != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	call := backend.lastAdd()
	if call.word != "Cup" || call.translation != "taza" || call.languageID != 2 {
		t.Fatalf("unexpected backend call: %+v", call)
	}
	scores := sink.snapshotScores()
	if len(scores) != 1 || scores[0].Score != 10 {
		t.Fatalf("expected one score event, got %+v", scores)
	}
}

func TestControllerMarkLearnedUnknownWord(t *testing.T) {
	t.Parallel()

	controller := newTestController(&fakeCapture{}, &fakeBackend{}, &fakePrefs{}, &fakeEventSink{}, NewAccumulator(0))

	_, err := controller.MarkLearned(context.Background(), "ghost")
	if !errors.Is(err, ErrNoSuchDetection) {
		t.Fatalf("expected ErrNoSuchDetection, got %v", err)
	}
}

func TestControllerMarkLearnedBackendFailure(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(0)
	acc.Append(
		[]domain.EnrichedDetection{{ID: "d1", Name: "Cup", Translation: "taza"}},
		[]domain.BoundingBox{{X: 100, Y: 100}},
	)
	backend := &fakeBackend{
		languages: []domain.Language{{ID: 2, Name: "Spanish", Code: "es"}},
		addErr:    errors.New("backend unreachable"),
	}
	sink := &fakeEventSink{}

	controller := newTestController(&fakeCapture{}, backend, &fakePrefs{language: "es"}, sink, acc)

	if _, err := controller.MarkLearned(context.Background(), "Cup"); err == nil {
		t.Fatalf("expected backend failure to surface")
	}

	errs := sink.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeProgressSync {
		t.Fatalf("expected a progress_sync error event, got %+v", errs)
	}
}

func TestControllerSetLanguagePersists(t *testing.T) {
	t.Parallel()

	prefs := &fakePrefs{}
	controller := newTestController(&fakeCapture{}, &fakeBackend{}, prefs, &fakeEventSink{}, NewAccumulator(0))

	if err := controller.SetLanguage("fr"); err != nil {
		t.Fatalf("set language failed: %v", err)
	}
	if prefs.SelectedLanguage() != "fr" {
		t.Fatalf("expected language persisted, got %q", prefs.SelectedLanguage())
	}
	if status := controller.Status(); status.Language != "fr" {
		t.Fatalf("expected status language fr, got %+v", status)
	}
}

func newTestController(capture ports.Capture, backend ports.ProgressBackend, prefs ports.PreferenceStore, sink ports.EventSink, acc *Accumulator) *Controller {
	session := NewDetectionSession(
		&fakeModel{detector: &scriptedDetector{}, ready: true},
		&fakeEnricher{},
		sink,
		acc,
		SessionConfig{TickInterval: time.Millisecond, StreamWait: 50 * time.Millisecond},
		nil,
	)
	return NewController(session, capture, backend, prefs, acc, sink, ControllerConfig{
		UserID:          1,
		DefaultLanguage: "es",
	})
}

type fakeCapture struct {
	mu       sync.Mutex
	sessions []*fakeSource
	err      error
	calls    int
	requests []ports.CaptureRequest
}

func (f *fakeCapture) Acquire(_ context.Context, req ports.CaptureRequest) (ports.CaptureSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no capture session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

func (f *fakeCapture) Devices(_ context.Context) ([]domain.CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	devices := make([]domain.CaptureDevice, 0, len(f.sessions))
	for _, s := range f.sessions {
		devices = append(devices, domain.CaptureDevice{DeviceID: s.id, Label: s.id})
	}
	return devices, nil
}

func (f *fakeCapture) acquireCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCapture) lastRequest() ports.CaptureRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ports.CaptureRequest{}
	}
	return f.requests[len(f.requests)-1]
}

type addCall struct {
	userID      int
	word        string
	translation string
	languageID  int
}

type fakeBackend struct {
	mu        sync.Mutex
	languages []domain.Language
	words     []domain.LearnedWord
	addResult domain.ProgressResult
	addErr    error
	langErr   error
	adds      []addCall
}

func (f *fakeBackend) AddLearnedWord(_ context.Context, userID int, word, translation string, languageID int) (domain.ProgressResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, addCall{userID: userID, word: word, translation: translation, languageID: languageID})
	if f.addErr != nil {
		return domain.ProgressResult{}, f.addErr
	}
	return f.addResult, nil
}

func (f *fakeBackend) Languages(_ context.Context) ([]domain.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.languages, f.langErr
}

func (f *fakeBackend) LearnedWords(_ context.Context, _ int) ([]domain.LearnedWord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.words, nil
}

func (f *fakeBackend) lastAdd() addCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.adds) == 0 {
		return addCall{}
	}
	return f.adds[len(f.adds)-1]
}

type fakePrefs struct {
	mu       sync.Mutex
	device   string
	language string
}

func (f *fakePrefs) SelectedDevice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.device
}

func (f *fakePrefs) SetSelectedDevice(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.device = id
	return nil
}

func (f *fakePrefs) SelectedLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.language
}

func (f *fakePrefs) SetSelectedLanguage(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.language = code
	return nil
}
