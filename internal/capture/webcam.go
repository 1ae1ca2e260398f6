package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

// matFrame wraps a decoded frame. Close releases the underlying matrix.
type matFrame struct {
	mat gocv.Mat
}

func (f *matFrame) Width() int    { return f.mat.Cols() }
func (f *matFrame) Height() int   { return f.mat.Rows() }
func (f *matFrame) Mat() gocv.Mat { return f.mat }
func (f *matFrame) Close()        { f.mat.Close() }

// webcamSession is one open V4L capture stream.
type webcamSession struct {
	deviceID string

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	width  int
	height int
	closed bool
}

// openWebcam opens the device node and applies the requested frame size.
// Permission failures on the node map to the dedicated sentinel so the UI
// can explain itself.
func openWebcam(_ context.Context, deviceID string, width, height int) (ports.CaptureSession, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", deviceID, classifyOpenError(deviceID, err))
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: %w", deviceID, classifyOpenError(deviceID, nil))
	}
	if width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &webcamSession{deviceID: deviceID, vc: vc}, nil
}

func classifyOpenError(deviceID string, openErr error) error {
	if strings.HasPrefix(deviceID, "/dev/") {
		if _, statErr := os.Open(deviceID); errors.Is(statErr, fs.ErrPermission) {
			return domain.ErrPermissionDenied
		}
	}
	if openErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrAcquisitionFailed, openErr)
	}
	return domain.ErrAcquisitionFailed
}

func (s *webcamSession) Grab(ctx context.Context) (ports.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("capture session %s is closed", s.deviceID)
	}

	mat := gocv.NewMat()
	if ok := s.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("read frame from %s: no data", s.deviceID)
	}
	s.width = mat.Cols()
	s.height = mat.Rows()
	return &matFrame{mat: mat}, nil
}

// Dimensions reports the size of the last decoded frame, zero until the
// stream has delivered one.
func (s *webcamSession) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// AwaitReadable polls for the first decodable frame.
func (s *webcamSession) AwaitReadable(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := s.Grab(ctx)
		if err == nil {
			frame.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *webcamSession) DeviceID() string { return s.deviceID }

func (s *webcamSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.vc.Close()
}

// enumerateWebcams lists V4L devices via sysfs. A machine without cameras
// yields an empty, non-error result.
func enumerateWebcams() ([]domain.CaptureDevice, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("enumerate cameras: %w", err)
	}

	var devices []domain.CaptureDevice
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "video") {
			continue
		}
		label := entry.Name()
		if raw, err := os.ReadFile("/sys/class/video4linux/" + entry.Name() + "/name"); err == nil {
			label = strings.TrimSpace(string(raw))
		}
		devices = append(devices, domain.CaptureDevice{
			DeviceID: "/dev/" + entry.Name(),
			Label:    label,
		})
	}
	return devices, nil
}
