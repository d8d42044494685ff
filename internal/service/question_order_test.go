package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/thiexam/thiexam-backend/internal/model"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), OrderIndex: i}
	}
	return qs
}

func ids(qs []model.Question) []uuid.UUID {
	out := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestOrderForAttemptStableAcrossReloads(t *testing.T) {
	questions := makeQuestions(20)
	attemptID := uuid.New()

	first := ids(orderForAttempt(questions, true, attemptID))
	for i := 0; i < 5; i++ {
		again := ids(orderForAttempt(questions, true, attemptID))
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("reload %d: order differs at position %d", i, j)
			}
		}
	}
}

func TestOrderForAttemptIsPermutation(t *testing.T) {
	questions := makeQuestions(20)
	shuffled := orderForAttempt(questions, true, uuid.New())

	if len(shuffled) != len(questions) {
		t.Fatalf("len = %d, want %d", len(shuffled), len(questions))
	}
	seen := make(map[uuid.UUID]bool)
	for _, q := range shuffled {
		seen[q.ID] = true
	}
	for _, q := range questions {
		if !seen[q.ID] {
			t.Errorf("question %s missing after shuffle", q.ID)
		}
	}
}

func TestOrderForAttemptNotRandomKeepsOrder(t *testing.T) {
	questions := makeQuestions(10)
	ordered := orderForAttempt(questions, false, uuid.New())
	for i, q := range ordered {
		if q.ID != questions[i].ID {
			t.Fatalf("position %d changed without randomization", i)
		}
	}
}

func TestOrderForAttemptDoesNotMutateInput(t *testing.T) {
	questions := makeQuestions(10)
	original := ids(questions)

	orderForAttempt(questions, true, uuid.New())

	for i, q := range questions {
		if q.ID != original[i] {
			t.Fatalf("input slice mutated at position %d", i)
		}
	}
}
