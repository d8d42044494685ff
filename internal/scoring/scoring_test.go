package scoring

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/thiexam/thiexam-backend/internal/model"
)

func mcKey(points float64) (QuestionKey, uuid.UUID) {
	correct := uuid.New()
	return QuestionKey{
		QuestionID:      uuid.New(),
		Type:            model.QuestionTypeMultipleChoice,
		Points:          points,
		CorrectOptionID: &correct,
	}, correct
}

func TestScoreFullAndZeroCredit(t *testing.T) {
	// 10 questions at 1 point each, 6 answered correctly.
	keys := make([]QuestionKey, 0, 10)
	answers := make([]Answer, 0, 10)
	for i := 0; i < 10; i++ {
		k, correct := mcKey(1)
		keys = append(keys, k)

		picked := correct
		if i >= 6 {
			picked = uuid.New() // wrong option
		}
		answers = append(answers, Answer{QuestionID: k.QuestionID, SelectedOptionID: &picked})
	}

	pass := 50.0
	res, err := Score(keys, answers, &pass)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScore != 6 {
		t.Errorf("TotalScore = %v, want 6", res.TotalScore)
	}
	if res.Passed == nil || *res.Passed {
		t.Errorf("Passed = %v, want false", res.Passed)
	}
}

func TestScoreUnansweredIsZeroNotError(t *testing.T) {
	k, _ := mcKey(5)
	res, err := Score([]QuestionKey{k}, nil, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScore != 0 {
		t.Errorf("TotalScore = %v, want 0", res.TotalScore)
	}
	if res.Passed != nil {
		t.Errorf("Passed = %v, want nil without pass score", res.Passed)
	}
}

func TestScoreEssayExcluded(t *testing.T) {
	mc, correct := mcKey(4)
	essay := QuestionKey{
		QuestionID: uuid.New(),
		Type:       model.QuestionTypeEssay,
		Points:     10,
	}
	answers := []Answer{{QuestionID: mc.QuestionID, SelectedOptionID: &correct}}

	res, err := Score([]QuestionKey{mc, essay}, answers, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScore != 4 {
		t.Errorf("TotalScore = %v, want 4 (essay points excluded)", res.TotalScore)
	}
}

func TestScoreMissingAnswerKey(t *testing.T) {
	broken := QuestionKey{
		QuestionID: uuid.New(),
		Type:       model.QuestionTypeMultipleChoice,
		Points:     1,
	}
	_, err := Score([]QuestionKey{broken}, nil, nil)
	if !errors.Is(err, ErrMissingAnswerKey) {
		t.Fatalf("err = %v, want ErrMissingAnswerKey", err)
	}
}

func TestScorePassBoundary(t *testing.T) {
	k, correct := mcKey(50)
	answers := []Answer{{QuestionID: k.QuestionID, SelectedOptionID: &correct}}

	pass := 50.0
	res, err := Score([]QuestionKey{k}, answers, &pass)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Passed == nil || !*res.Passed {
		t.Errorf("Passed = %v, want true at exact pass score", res.Passed)
	}
}

func TestScoreDeterministic(t *testing.T) {
	k1, c1 := mcKey(2.5)
	k2, _ := mcKey(2.5)
	keys := []QuestionKey{k1, k2}
	answers := []Answer{{QuestionID: k1.QuestionID, SelectedOptionID: &c1}}

	first, err := Score(keys, answers, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Score(keys, answers, nil)
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if again != first {
			t.Fatalf("run %d: result %+v differs from %+v", i, again, first)
		}
	}
}

func TestScoreRounding(t *testing.T) {
	var keys []QuestionKey
	var answers []Answer
	for i := 0; i < 3; i++ {
		k, correct := mcKey(0.1)
		keys = append(keys, k)
		picked := correct
		answers = append(answers, Answer{QuestionID: k.QuestionID, SelectedOptionID: &picked})
	}

	res, err := Score(keys, answers, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScore != 0.3 {
		t.Errorf("TotalScore = %v, want 0.3 after rounding", res.TotalScore)
	}
}
