// Package quizstore keeps quizzes and graded attempts for the reference
// grading backend.
package quizstore

import (
	"context"
	"errors"
	"time"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrKeyConflict: an idempotency key already names a submission by
	// another student or for another quiz.
	ErrKeyConflict = errors.New("idempotency key already used for another submission")
)

// Attempt is one graded submission.
type Attempt struct {
	ID            string
	QuizID        int64
	StudentID     int64
	AttemptNumber int
	Answers       map[int64]quiz.Letter
	Result        quiz.GradedResult
	CompletedAt   time.Time
}

func (a Attempt) Summary() quiz.AttemptSummary {
	at := a.CompletedAt
	return quiz.AttemptSummary{
		AttemptNumber:  a.AttemptNumber,
		Score:          a.Result.Score,
		Total:          a.Result.Total,
		XPAwarded:      a.Result.XPAwarded,
		IsFirstAttempt: a.AttemptNumber == 1,
		CreatedAt:      &at,
	}
}

// Summary is a quiz list entry from one student's point of view.
type Summary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	Attempts      int    `json:"attempts"`
	BestScore     *int   `json:"best_score"`
	Status        string `json:"status"` // not_started|completed
}

type Store interface {
	// PutQuiz creates or replaces a quiz; zero ids are assigned.
	PutQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error)
	// GetQuiz returns the full quiz, answer keys included.
	GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error)
	ListQuizzes(ctx context.Context, studentID int64) ([]Summary, error)

	// RecordAttempt numbers the attempt and settles its first-attempt flag,
	// XP, best score and message against the student's earlier attempts in
	// the same critical section that stores it. An id that is already stored
	// for the same student and quiz returns the stored attempt.
	RecordAttempt(ctx context.Context, a Attempt) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// ListAttempts returns attempts ordered by attempt number.
	ListAttempts(ctx context.Context, quizID, studentID int64) ([]Attempt, error)
}

// settle fills the parts of a graded result that depend on earlier attempts.
// prior is their count and priorBest their highest score.
func settle(a *Attempt, prior, priorBest int) {
	a.AttemptNumber = prior + 1
	res := &a.Result
	res.IsFirstAttempt = prior == 0
	best := res.Score
	if prior > 0 && priorBest > best {
		best = priorBest
	}
	res.BestScore = &best
	if res.IsFirstAttempt {
		res.XPAwarded = res.Score * XPPerCorrect
		res.Message = "Great work!"
	} else {
		res.XPAwarded = 0
		res.Message = "Score updated (no XP for retakes)"
	}
}

// sameSubmission decides what a repeated attempt id means.
func sameSubmission(prev, a Attempt) (Attempt, error) {
	if prev.QuizID == a.QuizID && prev.StudentID == a.StudentID {
		return prev, nil
	}
	return Attempt{}, ErrKeyConflict
}

// StudentSafe strips answer keys and explanations.
func StudentSafe(q quiz.Quiz) quiz.Quiz {
	out := q
	out.Questions = make([]quiz.Question, len(q.Questions))
	for i, x := range q.Questions {
		x.CorrectAnswers = nil
		x.Explanation = ""
		out.Questions[i] = x
	}
	out.QuestionCount = len(out.Questions)
	return out
}

func summarize(q quiz.Quiz, attempts []Attempt) Summary {
	s := Summary{ID: q.ID, Title: q.Title, QuestionCount: len(q.Questions), Attempts: len(attempts), Status: "not_started"}
	for i, a := range attempts {
		if i == 0 || a.Result.Score > *s.BestScore {
			best := a.Result.Score
			s.BestScore = &best
		}
	}
	if len(attempts) > 0 {
		s.Status = "completed"
	}
	return s
}
