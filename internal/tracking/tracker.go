package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"ecodrop-backend/internal/geo"
)

// Configuration constants
const (
	// ProximityRadiusMeters is the dwell-gate radius around the destination bin.
	// NOTE: this is intentionally smaller than the 100m QR proximity radius
	// enforced server-side at drop-off; the two checks are independent.
	ProximityRadiusMeters = 50.0

	// DwellThresholdSeconds is how long a user must stay continuously inside
	// the radius before the confirm action unlocks
	DwellThresholdSeconds = 30

	// maxConsecutiveFixErrors is how many position failures in a row are
	// tolerated before a TrackingError is surfaced to the caller
	maxConsecutiveFixErrors = 3
)

// ErrPermissionDenied is returned by a PositionSource when the platform
// refuses location access. It is terminal for the session: callers should
// offer a non-GPS fallback.
var ErrPermissionDenied = errors.New("location permission denied")

// TrackingError reports repeated transient position failures (signal loss,
// timeouts). It does not reset accumulated dwell time.
type TrackingError struct {
	Failures int
	Err      error
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("position tracking failed %d times in a row: %v", e.Failures, e.Err)
}

func (e *TrackingError) Unwrap() error { return e.Err }

// Position is one geolocation fix
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Timestamp time.Time
}

// Fix is one delivery from a PositionSource: a position or a transient error
type Fix struct {
	Position *Position
	Err      error
}

// PositionSource is a subscription-style provider of geolocation fixes.
// Watch returns ErrPermissionDenied when location access is refused; any
// transient failure is delivered in-band as a Fix with Err set.
type PositionSource interface {
	Watch(ctx context.Context) (<-chan Fix, error)
}

// Destination is the bin currently targeted for verification
type Destination struct {
	BinID     string  `json:"binId"`
	BinName   string  `json:"binName"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationState is the derived tracking state pushed to the caller on every
// fix. It is ephemeral and never persisted.
type LocationState struct {
	IsNearBin           bool     `json:"isNearBin"`
	Distance            *float64 `json:"distance,omitempty"` // meters, rounded for display; nil until first fix
	WithinRadiusSeconds int      `json:"withinRadiusTime"`   // whole seconds continuously inside the radius
	CanConfirm          bool     `json:"canConfirm"`
}

// UpdateFunc receives a LocationState synchronously for each successful fix
type UpdateFunc func(LocationState)

// ErrorFunc receives tracking errors that do not end the session
type ErrorFunc func(error)

// Tracker owns at most one tracking session at a time. Starting a new
// session supersedes the previous one; Stop is safe to call repeatedly,
// including when nothing is being tracked.
type Tracker struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Start begins observing the source and deriving dwell state for dest.
// It returns ErrPermissionDenied (wrapped) when the source refuses access.
func (t *Tracker) Start(dest Destination, source PositionSource, onUpdate UpdateFunc, onError ErrorFunc) error {
	// Supersede any running session before subscribing, so two dwell
	// accumulators never race on the same state.
	t.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	fixes, err := source.Watch(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, ErrPermissionDenied) {
			return fmt.Errorf("cannot track destination %s: %w", dest.BinID, ErrPermissionDenied)
		}
		return fmt.Errorf("failed to start position source: %w", err)
	}

	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	go t.run(ctx, dest, fixes, onUpdate, onError, done)

	return nil
}

// Stop halts the active session, if any, and clears accumulated dwell state.
// It blocks until the session goroutine has exited.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *Tracker) run(ctx context.Context, dest Destination, fixes <-chan Fix, onUpdate UpdateFunc, onError ErrorFunc, done chan struct{}) {
	defer close(done)

	var (
		inside          bool
		dwellSeconds    float64
		lastFixTime     time.Time
		consecutiveErrs int
	)

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				return
			}

			if fix.Err != nil {
				consecutiveErrs++
				if consecutiveErrs >= maxConsecutiveFixErrors {
					if onError != nil {
						onError(&TrackingError{Failures: consecutiveErrs, Err: fix.Err})
					}
					consecutiveErrs = 0
				}
				// Transient failure: dwell time is preserved, only a
				// radius exit resets it
				continue
			}
			consecutiveErrs = 0

			pos := fix.Position
			at := pos.Timestamp
			if at.IsZero() {
				at = time.Now()
			}

			distance := geo.DistanceMeters(pos.Latitude, pos.Longitude, dest.Latitude, dest.Longitude)
			nowInside := distance <= ProximityRadiusMeters

			if nowInside {
				if inside && !lastFixTime.IsZero() {
					dwellSeconds += at.Sub(lastFixTime).Seconds()
				}
				// First fix inside the radius starts the timer at 0
			} else {
				// No forgiveness window: stepping outside restarts accumulation
				if inside {
					log.Printf("tracker: left %.0fm radius of bin %s, dwell reset", ProximityRadiusMeters, dest.BinID)
				}
				dwellSeconds = 0
			}
			inside = nowInside
			lastFixTime = at

			displayDistance := math.Round(distance)
			state := LocationState{
				IsNearBin:           nowInside,
				Distance:            &displayDistance,
				WithinRadiusSeconds: int(dwellSeconds),
				CanConfirm:          nowInside && dwellSeconds >= DwellThresholdSeconds,
			}

			if onUpdate != nil {
				onUpdate(state)
			}
		}
	}
}
