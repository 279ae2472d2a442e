package grading

import (
	"errors"
	"math"

	"skillbridge/internal/database"
)

// PassThreshold is the inclusive minimum score for passing a quiz.
const PassThreshold = 80.0

// ErrNoQuestions is returned when a quiz has no questions to grade against.
var ErrNoQuestions = errors.New("quiz has no questions")

// AnswerSubmission is one submitted (question, chosen answer) pair.
type AnswerSubmission struct {
	QuestionID uint `json:"questionId"`
	AnswerID   uint `json:"answerId"`
}

// Result is the outcome of grading one submission.
type Result struct {
	Correct int
	Total   int
	Score   float64
	Passed  bool
}

// RoundedScore is the score rounded to zero decimals, as reported to callers.
func (r Result) RoundedScore() int {
	return int(math.Round(r.Score))
}

// Grade scores a submission against the quiz's questions. A question counts
// as correct when the submitted pair references the answer flagged correct;
// unanswered or unknown question ids simply do not match. Per-question
// correctness is never part of the result.
func Grade(questions []database.Question, submitted []AnswerSubmission) (Result, error) {
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	chosen := make(map[uint]uint, len(submitted))
	for _, s := range submitted {
		chosen[s.QuestionID] = s.AnswerID
	}

	correct := 0
	for _, q := range questions {
		correctID, ok := correctAnswerID(q)
		if !ok {
			continue
		}
		if answerID, answered := chosen[q.ID]; answered && answerID == correctID {
			correct++
		}
	}

	score := 100 * float64(correct) / float64(len(questions))
	return Result{
		Correct: correct,
		Total:   len(questions),
		Score:   score,
		Passed:  score >= PassThreshold,
	}, nil
}

// correctAnswerID returns the first answer flagged correct. Creation enforces
// exactly one flagged answer; legacy rows with none are unanswerable.
func correctAnswerID(q database.Question) (uint, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID, true
		}
	}
	return 0, false
}
