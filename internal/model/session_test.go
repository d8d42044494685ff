package model

import (
	"testing"
	"time"
)

func TestEnterable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name    string
		session ExamSession
		want    bool
	}{
		{"active no window", ExamSession{IsActive: true}, true},
		{"inactive", ExamSession{IsActive: false}, false},
		{"inside window", ExamSession{IsActive: true, StartTime: &past, EndTime: &future}, true},
		{"before window", ExamSession{IsActive: true, StartTime: &future}, false},
		{"after window", ExamSession{IsActive: true, EndTime: &past}, false},
		{"open-ended start", ExamSession{IsActive: true, EndTime: &future}, true},
		{"open-ended end", ExamSession{IsActive: true, StartTime: &past}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.session.Enterable(now); got != tc.want {
				t.Errorf("Enterable = %v, want %v", got, tc.want)
			}
		})
	}
}
