package bootstrap

import (
	"log/slog"

	"lexilens/internal/capture"
	"lexilens/internal/config"
	"lexilens/internal/domain"
	"lexilens/internal/enrich"
	"lexilens/internal/ports"
	"lexilens/internal/prefs"
	"lexilens/internal/progress"
	"lexilens/internal/usecase"
	"lexilens/internal/vision"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime. The model
// itself is loaded lazily on the first detection start, not here; a missing
// model file must not block app launch.
func Build(eventSink ports.EventSink, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	enricher, err := enrich.NewService()
	if err != nil {
		return Services{}, err
	}

	store, err := prefs.NewStore("lexilens")
	if err != nil {
		return Services{}, err
	}

	model := vision.NewManager(
		vision.ModelPaths{Model: cfg.Model.PrimaryModel, Config: cfg.Model.PrimaryConfig},
		vision.ModelPaths{Model: cfg.Model.FallbackModel, Config: cfg.Model.FallbackConfig},
		nil,
		logger,
	)

	accumulator := usecase.NewAccumulator(cfg.Detection.AccumulatorLimit)

	session := usecase.NewDetectionSession(
		model,
		enricher,
		eventSink,
		accumulator,
		usecase.SessionConfig{
			ConfidenceThreshold: float32(cfg.Detection.ConfidenceThreshold),
			TickInterval:        cfg.Detection.TickInterval,
			ModelWait:           cfg.Model.LoadWait,
			StreamWait:          cfg.Capture.StreamWait,
			FailureStreakLimit:  cfg.Detection.FailureStreakLimit,
			DedupRadiusPx:       float32(cfg.Detection.DedupRadiusPx),
			DedupRadiusFrac:     float32(cfg.Detection.DedupRadiusFrac),
		},
		logger,
	)

	controller := usecase.NewController(
		session,
		capture.NewManager(nil, nil, capture.Config{
			SettleDelay: cfg.Capture.SettleDelay,
			Attempts:    cfg.Capture.Attempts,
			Backoff:     cfg.Capture.Backoff,
		}, logger),
		progress.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		store,
		accumulator,
		eventSink,
		usecase.ControllerConfig{
			UserID:          cfg.User.ID,
			DefaultLanguage: cfg.User.DefaultLanguage,
			Facing:          domain.FacingEnvironment,
			FrameWidth:      cfg.Capture.FrameWidth,
			FrameHeight:     cfg.Capture.FrameHeight,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}
