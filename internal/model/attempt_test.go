package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to AttemptStatus
		want     bool
	}{
		{AttemptStatusInProgress, AttemptStatusSubmitted, true},
		{AttemptStatusInProgress, AttemptStatusExpired, true},
		{AttemptStatusInProgress, AttemptStatusAbandoned, true},
		{AttemptStatusInProgress, AttemptStatusGraded, false},
		{AttemptStatusSubmitted, AttemptStatusGraded, true},
		{AttemptStatusSubmitted, AttemptStatusInProgress, false},
		{AttemptStatusSubmitted, AttemptStatusExpired, false},
		{AttemptStatusGraded, AttemptStatusSubmitted, false},
		{AttemptStatusExpired, AttemptStatusInProgress, false},
		{AttemptStatusAbandoned, AttemptStatusInProgress, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if AttemptStatusInProgress.Terminal() {
		t.Error("IN_PROGRESS should not be terminal")
	}
	for _, s := range []AttemptStatus{AttemptStatusSubmitted, AttemptStatusGraded, AttemptStatusExpired, AttemptStatusAbandoned} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	start := time.Now()
	a := &StudentAttempt{StartedAt: start}

	if got := a.TimeRemaining(60, start.Add(15*time.Minute)); got != 45*time.Minute {
		t.Errorf("TimeRemaining = %v, want 45m", got)
	}

	// Past the deadline the clock floors at zero, never negative.
	if got := a.TimeRemaining(60, start.Add(2*time.Hour)); got != 0 {
		t.Errorf("TimeRemaining past deadline = %v, want 0", got)
	}
}

func TestDeadline(t *testing.T) {
	start := time.Now()
	a := &StudentAttempt{StartedAt: start}
	if got := a.Deadline(90); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("Deadline = %v, want %v", got, start.Add(90*time.Minute))
	}
}
