package service

import (
	"encoding/binary"
	"math/rand"

	"github.com/google/uuid"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// orderForAttempt returns the question presentation order for one attempt.
// Randomized exams shuffle with a seed derived from the attempt id, so every
// reload of the same attempt sees the same order without persisting it.
func orderForAttempt(questions []model.Question, isRandom bool, attemptID uuid.UUID) []model.Question {
	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	if !isRandom {
		return ordered
	}

	seed := int64(binary.BigEndian.Uint64(attemptID[:8]))
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	return ordered
}
