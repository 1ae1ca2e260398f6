package domain

import "errors"

// Camera and model failures the UI is allowed to see. Everything else is
// absorbed inside the session loop.
var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrAcquisitionFailed = errors.New("camera acquisition failed")
	ErrModelLoadFailed   = errors.New("detection model load failed")
)
