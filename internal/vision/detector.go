package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"lexilens/internal/domain"
	"lexilens/internal/ports"
)

// MatFrame is implemented by frames that expose their raw pixel matrix.
type MatFrame interface {
	Mat() gocv.Mat
}

// ssdDetector runs an SSD MobileNet network over single frames. Calls are
// serialized: the network holds internal state across SetInput/Forward.
type ssdDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	closed bool
}

// NewSSDDetector loads the frozen graph at modelPath with the text graph at
// configPath.
func NewSSDDetector(modelPath, configPath string) (ports.Detector, error) {
	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot read network from %s", domain.ErrModelLoadFailed, modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, err)
	}
	return &ssdDetector{net: net}, nil
}

func (d *ssdDetector) Detect(ctx context.Context, frame ports.Frame) ([]domain.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, ok := frame.(MatFrame)
	if !ok {
		return nil, fmt.Errorf("frame does not expose a pixel matrix")
	}
	mat := source.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("detector is closed")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	width := float32(frame.Width())
	height := float32(frame.Height())

	// Each detection is 7 floats: [batch, classID, confidence, x1, y1, x2, y2]
	// with coordinates normalized to the input frame.
	var results []domain.RawDetection
	for i := 0; i < output.Total(); i += 7 {
		classID := int(output.GetFloatAt(0, i+1))
		label, known := cocoLabels[classID]
		if !known {
			continue
		}
		confidence := output.GetFloatAt(0, i+2)
		left := output.GetFloatAt(0, i+3) * width
		top := output.GetFloatAt(0, i+4) * height
		right := output.GetFloatAt(0, i+5) * width
		bottom := output.GetFloatAt(0, i+6) * height

		results = append(results, domain.RawDetection{
			Label:      label,
			Confidence: confidence,
			Box: domain.BoundingBox{
				X:      left,
				Y:      top,
				Width:  right - left,
				Height: bottom - top,
			},
		})
	}
	return results, nil
}

func (d *ssdDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
