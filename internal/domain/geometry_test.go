package domain

import "testing"

func TestNormalizeBox(t *testing.T) {
	t.Parallel()

	norm, ok := NormalizeBox(BoundingBox{X: 100, Y: 200, Width: 50, Height: 80}, 1000, 800)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}
	if norm.X != 0.1 || norm.Y != 0.25 || norm.Width != 0.05 || norm.Height != 0.1 {
		t.Fatalf("unexpected normalized box: %+v", norm)
	}
}

func TestNormalizeBoxRejectsUnusableDimensions(t *testing.T) {
	t.Parallel()

	if _, ok := NormalizeBox(BoundingBox{X: 10, Y: 10}, 0, 480); ok {
		t.Fatalf("expected zero width to be rejected")
	}
	if _, ok := NormalizeBox(BoundingBox{X: 10, Y: 10}, 640, 0); ok {
		t.Fatalf("expected zero height to be rejected")
	}
	if _, ok := NormalizeBox(BoundingBox{X: 10, Y: 10}, -640, -480); ok {
		t.Fatalf("expected negative dimensions to be rejected")
	}
}

func TestNormalizeBoxClampsOutOfFrameCoordinates(t *testing.T) {
	t.Parallel()

	norm, ok := NormalizeBox(BoundingBox{X: -30, Y: 900, Width: 2000, Height: 100}, 1000, 800)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}
	if norm.X != 0 || norm.Y != 1 || norm.Width != 1 || norm.Height != 0.125 {
		t.Fatalf("expected clamped values, got %+v", norm)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"cup":           "Cup",
		"Cup":           "Cup",
		"traffic light": "Traffic light",
		"":              "",
	}
	for input, want := range cases {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
