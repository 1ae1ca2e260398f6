package domain

// NormalizeBox converts a pixel-space box into frame-relative coordinates.
// The second return value is false when the frame dimensions are unusable;
// such detections are dropped rather than propagated as NaN or Inf.
func NormalizeBox(box BoundingBox, frameWidth, frameHeight int) (NormalizedBoundingBox, bool) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return NormalizedBoundingBox{}, false
	}

	w := float32(frameWidth)
	h := float32(frameHeight)
	norm := NormalizedBoundingBox{
		X:      clamp01(box.X / w),
		Y:      clamp01(box.Y / h),
		Width:  clamp01(box.Width / w),
		Height: clamp01(box.Height / h),
	}
	return norm, true
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
