package quizstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/nexus-academy/quizengine/internal/grading"
	"github.com/nexus-academy/quizengine/internal/quiz"
	syncx "github.com/nexus-academy/quizengine/internal/sync"
)

var (
	ErrBadAnswer = errors.New("invalid answer")
	ErrEmptyQuiz = errors.New("invalid quiz (no questions)")
)

// XPPerCorrect is awarded per correct answer on a first attempt only.
const XPPerCorrect = 10

type Events interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Service implements the grading backend's quiz operations on a Store.
type Service struct {
	store  Store
	grader grading.Grader
	events Events
	log    *log.Logger
	SiteID string
}

// NewService wires a store and grader. events may be nil.
func NewService(store Store, grader grading.Grader, events Events, logger *log.Logger) *Service {
	if grader == nil {
		grader = grading.NewDefaultGrader()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, grader: grader, events: events, log: logger, SiteID: "local"}
}

func (s *Service) Store() Store { return s.store }

// QuizForStudent returns the quiz without answer keys plus the student's
// attempt history, oldest first.
func (s *Service) QuizForStudent(ctx context.Context, quizID, studentID int64) (quiz.Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	out := StudentSafe(q)
	out.Attempts = []quiz.AttemptSummary{}
	if studentID > 0 {
		attempts, err := s.store.ListAttempts(ctx, quizID, studentID)
		if err != nil {
			return quiz.Quiz{}, err
		}
		for _, a := range attempts {
			out.Attempts = append(out.Attempts, a.Summary())
		}
	}
	return out, nil
}

// Submit grades and records an attempt. A repeated idempotency key for the
// same student and quiz returns the stored result without a new attempt.
func (s *Service) Submit(ctx context.Context, quizID, studentID int64, raw map[string]string, idemKey string) (quiz.GradedResult, error) {
	if idemKey != "" {
		prev, err := s.store.GetAttempt(ctx, idemKey)
		switch {
		case err == nil && prev.QuizID == quizID && prev.StudentID == studentID:
			return prev.Result, nil
		case err == nil:
			return quiz.GradedResult{}, fmt.Errorf("%w: %s", ErrKeyConflict, idemKey)
		case !errors.Is(err, ErrNotFound):
			return quiz.GradedResult{}, err
		}
	}

	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.GradedResult{}, err
	}
	if len(q.Questions) == 0 {
		return quiz.GradedResult{}, ErrEmptyQuiz
	}
	answers, err := ResolveAnswers(q.Questions, raw)
	if err != nil {
		return quiz.GradedResult{}, err
	}
	rows, score, err := grading.GradeSheet(ctx, s.grader, q.Questions, answers)
	if err != nil {
		return quiz.GradedResult{}, err
	}

	a, err := s.store.RecordAttempt(ctx, Attempt{
		ID:        idemKey,
		QuizID:    quizID,
		StudentID: studentID,
		Answers:   answers,
		Result:    quiz.GradedResult{Score: score, Total: len(q.Questions), Results: rows},
	})
	if errors.Is(err, ErrKeyConflict) {
		return quiz.GradedResult{}, fmt.Errorf("%w: %s", err, idemKey)
	}
	if err != nil {
		return quiz.GradedResult{}, err
	}
	res := a.Result
	s.log.Printf("quiz %d: student %d attempt %d scored %d/%d (+%d xp)",
		quizID, studentID, a.AttemptNumber, res.Score, res.Total, res.XPAwarded)

	if s.events != nil {
		ev, err := syncx.NewQuizSubmitted(s.SiteID, syncx.QuizSubmitted{
			AttemptID: a.ID, QuizID: quizID, StudentID: studentID, AttemptNumber: a.AttemptNumber,
			Score: res.Score, Total: res.Total, XPAwarded: res.XPAwarded,
		})
		if err == nil {
			err = s.events.Append(ctx, ev)
		}
		if err != nil {
			s.log.Printf("quiz %d: event log append: %v", quizID, err)
		}
	}
	return res, nil
}

// Review returns the latest attempt with the full canonical questions.
func (s *Service) Review(ctx context.Context, quizID, studentID int64) (quiz.ReviewData, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.ReviewData{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, studentID)
	if err != nil {
		return quiz.ReviewData{}, err
	}
	if len(attempts) == 0 {
		return quiz.ReviewData{}, fmt.Errorf("no attempts for quiz %d: %w", quizID, ErrNotFound)
	}
	latest := attempts[len(attempts)-1]
	return quiz.ReviewData{GradedResult: latest.Result, QuizID: q.ID, Title: q.Title, Questions: q.Questions}, nil
}

// ResolveAnswers maps submitted keys to question ids. A key is a question id
// or, failing that, a 1-based question number. Blank values are unanswered;
// anything other than A..E is rejected.
func ResolveAnswers(questions []quiz.Question, raw map[string]string) (map[int64]quiz.Letter, error) {
	byID := make(map[int64]bool, len(questions))
	for _, q := range questions {
		byID[q.ID] = true
	}
	out := make(map[int64]quiz.Letter, len(raw))
	for k, v := range raw {
		if strings.TrimSpace(v) == "" {
			continue
		}
		l, err := quiz.ParseLetter(v)
		if err != nil {
			return nil, fmt.Errorf("%w: question %s: %q", ErrBadAnswer, k, v)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: question key %q", ErrBadAnswer, k)
		}
		switch {
		case byID[n]:
			out[n] = l
		case n >= 1 && n <= int64(len(questions)):
			id := questions[n-1].ID
			if _, taken := out[id]; !taken {
				out[id] = l
			}
		}
	}
	return out, nil
}
