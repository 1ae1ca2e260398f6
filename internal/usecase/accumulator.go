package usecase

import (
	"strings"
	"sync"

	"lexilens/internal/domain"
)

type accumulated struct {
	detection domain.EnrichedDetection
	origin    domain.BoundingBox
}

// Accumulator is the session's output sink: the enriched detections the UI
// consumes, in append order. It keeps a bounded most-recent window; the
// oldest entries are evicted so dedup scans stay cheap. The pixel-space
// origin of every entry is retained for the duplicate rule.
type Accumulator struct {
	mu      sync.Mutex
	limit   int
	entries []accumulated
}

const defaultAccumulatorLimit = 50

func NewAccumulator(limit int) *Accumulator {
	if limit <= 0 {
		limit = defaultAccumulatorLimit
	}
	return &Accumulator{limit: limit}
}

// IsDuplicate reports whether a detection with the same name already sits
// within radius pixels on both axes. Names compare case-sensitively.
func (a *Accumulator) IsDuplicate(name string, origin domain.BoundingBox, radius float32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.entries {
		if e.detection.Name != name {
			continue
		}
		if absDiff(e.origin.X, origin.X) < radius && absDiff(e.origin.Y, origin.Y) < radius {
			return true
		}
	}
	return false
}

// Append adds a tick's batch in order. origins must parallel batch.
func (a *Accumulator) Append(batch []domain.EnrichedDetection, origins []domain.BoundingBox) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, det := range batch {
		a.entries = append(a.entries, accumulated{detection: det, origin: origins[i]})
	}
	if over := len(a.entries) - a.limit; over > 0 {
		remaining := make([]accumulated, len(a.entries)-over)
		copy(remaining, a.entries[over:])
		a.entries = remaining
	}
}

// Snapshot returns all accumulated detections in append order.
func (a *Accumulator) Snapshot() []domain.EnrichedDetection {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.EnrichedDetection, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.detection
	}
	return out
}

// Latest returns up to n most recent detections, oldest first.
func (a *Accumulator) Latest(n int) []domain.EnrichedDetection {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]domain.EnrichedDetection, 0, n)
	for _, e := range a.entries[len(a.entries)-n:] {
		out = append(out, e.detection)
	}
	return out
}

// Find returns the most recent detection matching name case-insensitively.
func (a *Accumulator) Find(name string) (domain.EnrichedDetection, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.entries) - 1; i >= 0; i-- {
		if strings.EqualFold(a.entries[i].detection.Name, name) {
			return a.entries[i].detection, true
		}
	}
	return domain.EnrichedDetection{}, false
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Reset drops the window, e.g. when a session is discarded.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}
