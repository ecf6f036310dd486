package tracking

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testDest = Destination{
	BinID:     "bin-002",
	BinName:   "Civil Lines E-Bin",
	Address:   "Civil Lines, Near Hanuman Mandir, Prayagraj",
	Latitude:  25.4534,
	Longitude: 81.8340,
}

// offsetPosition returns a position roughly meters north of the destination
func offsetPosition(meters float64, at time.Time) Position {
	// 1 degree of latitude is ~111,195m on the spherical model
	return Position{
		Latitude:  testDest.Latitude + meters/111195.0,
		Longitude: testDest.Longitude,
		Timestamp: at,
	}
}

// collectStates starts a tracker around a fresh ChannelSource and returns
// everything needed to script fixes and observe the resulting states.
func collectStates(t *testing.T) (*Tracker, *ChannelSource, chan LocationState, chan error) {
	t.Helper()

	tracker := NewTracker()
	source := NewChannelSource()
	states := make(chan LocationState, 256)
	trackErrs := make(chan error, 16)

	err := tracker.Start(testDest,
		source,
		func(s LocationState) { states <- s },
		func(err error) { trackErrs <- err },
	)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(tracker.Stop)
	t.Cleanup(source.Close)

	return tracker, source, states, trackErrs
}

func nextState(t *testing.T, states chan LocationState) LocationState {
	t.Helper()
	select {
	case s := <-states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state update")
		return LocationState{}
	}
}

func TestDwellUnlocksAtThreshold(t *testing.T) {
	_, source, states, _ := collectStates(t)

	start := time.Now()
	for i := 0; i <= DwellThresholdSeconds; i++ {
		source.Deliver(offsetPosition(10, start.Add(time.Duration(i)*time.Second)))
		s := nextState(t, states)

		if !s.IsNearBin {
			t.Fatalf("fix %d: expected to be near bin", i)
		}
		if s.WithinRadiusSeconds != i {
			t.Fatalf("fix %d: WithinRadiusSeconds = %d, want %d", i, s.WithinRadiusSeconds, i)
		}
		wantConfirm := i >= DwellThresholdSeconds
		if s.CanConfirm != wantConfirm {
			t.Fatalf("fix %d: CanConfirm = %v, want %v (dwell %ds)", i, s.CanConfirm, wantConfirm, s.WithinRadiusSeconds)
		}
	}
}

func TestRadiusExitResetsDwell(t *testing.T) {
	_, source, states, _ := collectStates(t)

	start := time.Now()
	// 29 seconds inside the radius
	for i := 0; i <= 29; i++ {
		source.Deliver(offsetPosition(25, start.Add(time.Duration(i)*time.Second)))
		nextState(t, states)
	}

	// One tick outside
	source.Deliver(offsetPosition(80, start.Add(30*time.Second)))
	s := nextState(t, states)
	if s.IsNearBin {
		t.Fatal("80m away should be outside the 50m radius")
	}
	if s.CanConfirm {
		t.Fatal("CanConfirm must drop when the user exits the radius")
	}
	if s.WithinRadiusSeconds != 0 {
		t.Fatalf("dwell should reset on exit, got %ds", s.WithinRadiusSeconds)
	}

	// Back inside: accumulation restarts from zero
	source.Deliver(offsetPosition(25, start.Add(31*time.Second)))
	s = nextState(t, states)
	if !s.IsNearBin || s.WithinRadiusSeconds != 0 {
		t.Fatalf("re-entry should start dwell at 0, got near=%v dwell=%ds", s.IsNearBin, s.WithinRadiusSeconds)
	}
}

func TestDistanceIsReportedRounded(t *testing.T) {
	_, source, states, _ := collectStates(t)

	source.Deliver(offsetPosition(120, time.Now()))
	s := nextState(t, states)

	if s.Distance == nil {
		t.Fatal("Distance should be set after the first fix")
	}
	if *s.Distance < 119 || *s.Distance > 121 {
		t.Errorf("Distance = %v, want ~120", *s.Distance)
	}
	if *s.Distance != float64(int64(*s.Distance)) {
		t.Errorf("Distance should be rounded to whole meters, got %v", *s.Distance)
	}
	if s.IsNearBin {
		t.Error("120m away must not count as near a 50m radius")
	}
}

func TestTransientErrorsPreserveDwell(t *testing.T) {
	_, source, states, trackErrs := collectStates(t)

	start := time.Now()
	for i := 0; i <= 10; i++ {
		source.Deliver(offsetPosition(10, start.Add(time.Duration(i)*time.Second)))
		nextState(t, states)
	}

	// Two transient failures: below tolerance, nothing surfaced
	source.Fail(errors.New("gps timeout"))
	source.Fail(errors.New("gps timeout"))
	select {
	case err := <-trackErrs:
		t.Fatalf("unexpected tracking error before tolerance: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Third consecutive failure crosses the tolerance
	source.Fail(errors.New("gps timeout"))
	select {
	case err := <-trackErrs:
		var te *TrackingError
		if !errors.As(err, &te) {
			t.Fatalf("expected a *TrackingError, got %T: %v", err, err)
		}
		if te.Failures != maxConsecutiveFixErrors {
			t.Errorf("Failures = %d, want %d", te.Failures, maxConsecutiveFixErrors)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a TrackingError after repeated failures")
	}

	// Dwell survived the error streak
	source.Deliver(offsetPosition(10, start.Add(14*time.Second)))
	s := nextState(t, states)
	if s.WithinRadiusSeconds < 10 {
		t.Errorf("dwell should be preserved across transient errors, got %ds", s.WithinRadiusSeconds)
	}
}

type deniedSource struct{}

func (deniedSource) Watch(ctx context.Context) (<-chan Fix, error) {
	return nil, ErrPermissionDenied
}

func TestStartPermissionDenied(t *testing.T) {
	tracker := NewTracker()
	err := tracker.Start(testDest, deniedSource{}, nil, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start = %v, want ErrPermissionDenied", err)
	}
	// Must still be safe to stop a tracker that never started
	tracker.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	tracker, source, _, _ := collectStates(t)
	_ = source

	tracker.Stop()
	tracker.Stop()
	tracker.Stop()
}

func TestStartSupersedesPriorSession(t *testing.T) {
	tracker := NewTracker()

	first := NewChannelSource()
	firstStates := make(chan LocationState, 16)
	if err := tracker.Start(testDest, first, func(s LocationState) { firstStates <- s }, nil); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	second := NewChannelSource()
	secondStates := make(chan LocationState, 16)
	if err := tracker.Start(testDest, second, func(s LocationState) { secondStates <- s }, nil); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	defer tracker.Stop()

	// The first session is cancelled; only the second session's source feeds updates
	second.Deliver(offsetPosition(10, time.Now()))
	select {
	case <-secondStates:
	case <-time.After(2 * time.Second):
		t.Fatal("second session should receive updates")
	}

	first.Deliver(offsetPosition(10, time.Now()))
	select {
	case <-firstStates:
		t.Fatal("superseded session must not receive updates")
	case <-time.After(100 * time.Millisecond):
	}
}
