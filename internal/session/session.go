// Package session drives one student's pass through a quiz: load, answer,
// submit, review and retake.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/nexus-academy/quizengine/internal/progress"
	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/review"
)

// Oracle is the grading backend as seen by a session.
type Oracle interface {
	FetchQuiz(ctx context.Context, quizID, studentID int64) (quiz.Quiz, error)
	SubmitQuizAnswers(ctx context.Context, quizID int64, sub quiz.Submission) (quiz.GradedResult, error)
}

type Profile struct {
	StudentID int64
	Name      string
}

type Config struct {
	QuizID  int64
	Profile Profile
	Oracle  Oracle
	// Progress may be nil; answers are then lost on reload.
	Progress *progress.Store
	// Source defaults to a clock-seeded source.
	Source quiz.Source
	Logger *log.Logger
}

// Session is safe for concurrent use. The oracle is called without holding
// the lock, so readers observe Submitting while a submit is in flight.
type Session struct {
	mu sync.Mutex

	quizID   int64
	profile  Profile
	oracle   Oracle
	progress *progress.Store
	src      quiz.Source
	log      *log.Logger

	state   State
	quiz    quiz.Quiz
	plan    quiz.AttemptPlan
	cursor  int
	answers map[int64]quiz.Letter // real letters
	result  *quiz.GradedResult
	lastErr error
	// submitKey names the current attempt to the oracle. It is kept across
	// failed submits and replaced when a new attempt starts.
	submitKey string
}

func New(cfg Config) *Session {
	if cfg.Source == nil {
		cfg.Source = quiz.NewTimeSource()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Session{
		quizID:   cfg.QuizID,
		profile:  cfg.Profile,
		oracle:   cfg.Oracle,
		progress: cfg.Progress,
		src:      cfg.Source,
		log:      cfg.Logger,
		state:    Loading,
		answers:  map[int64]quiz.Letter{},
	}
}

// Load fetches the quiz and prior attempts, plans the attempt and restores
// any saved progress. It may be called again after LoadFailed.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return &StateError{Op: "load", State: s.state}
	}
	s.state = Loading
	s.mu.Unlock()

	qz, err := s.oracle.FetchQuiz(ctx, s.quizID, s.profile.StudentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = LoadFailed
		s.lastErr = err
		return fmt.Errorf("load quiz %d: %w", s.quizID, err)
	}

	retake := len(qz.Attempts) > 0
	plan := quiz.PlanAttempt(qz.Questions, retake, s.src)
	for _, sk := range plan.Skipped {
		s.log.Printf("session: quiz %d: skipping question %d: %v", s.quizID, sk.QuestionID, sk.Err)
	}
	if plan.Len() == 0 {
		s.state = LoadFailed
		s.lastErr = ErrNoPlayable
		return fmt.Errorf("load quiz %d: %w", s.quizID, ErrNoPlayable)
	}

	s.quiz = qz
	s.plan = plan
	s.cursor = 0
	s.answers = map[int64]quiz.Letter{}
	s.result = nil
	s.lastErr = nil
	s.submitKey = uuid.NewString()
	s.restoreLocked(ctx)

	if retake {
		s.state = History
	} else {
		s.state = Taking
	}
	return nil
}

func (s *Session) restoreLocked(ctx context.Context) {
	if s.progress == nil {
		return
	}
	snap, ok := s.progress.Load(ctx, s.quizID)
	if !ok {
		return
	}
	if snap.Submitted {
		s.log.Printf("session: quiz %d: ignoring snapshot of a submitted attempt", s.quizID)
		return
	}
	for qid, real := range snap.Answers {
		i, ok := s.plan.IndexOf(qid)
		if !ok {
			s.log.Printf("session: quiz %d: dropping saved answer for unknown question %d", s.quizID, qid)
			continue
		}
		if _, ok := s.plan.Questions[i].Display(real); !ok {
			s.log.Printf("session: quiz %d: dropping saved answer %s for question %d", s.quizID, real, qid)
			continue
		}
		s.answers[qid] = real
	}

	cursor := snap.Cursor
	if snap.CurrentQuestionID != 0 {
		if i, ok := s.plan.IndexOf(snap.CurrentQuestionID); ok {
			cursor = i
		}
	}
	s.cursor = clamp(cursor, 0, s.plan.Len()-1)
}

// Start leaves the attempt history screen.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Taking:
		return nil
	case History:
		s.state = Taking
		return nil
	default:
		return &StateError{Op: "start", State: s.state}
	}
}

// Select records the option shown under display for the current question.
func (s *Session) Select(display quiz.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(s.cursor, display)
}

// SelectAt moves to question i and selects display there.
func (s *Session) SelectAt(i int, display quiz.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Taking {
		return &StateError{Op: "select", State: s.state}
	}
	if i < 0 || i >= s.plan.Len() {
		return fmt.Errorf("select: question %d out of range [0,%d)", i, s.plan.Len())
	}
	s.cursor = i
	return s.selectLocked(i, display)
}

func (s *Session) selectLocked(i int, display quiz.Letter) error {
	if s.state != Taking {
		return &StateError{Op: "select", State: s.state}
	}
	qp := s.plan.Questions[i]
	real, ok := qp.Real(display)
	if !ok {
		return fmt.Errorf("%w: %q for question %d", ErrUnknownOption, display, qp.Question.ID)
	}
	s.answers[qp.Question.ID] = real
	s.saveLocked()
	return nil
}

func (s *Session) Next() error {
	return s.move("next", func(c int) int { return c + 1 })
}

func (s *Session) Previous() error {
	return s.move("previous", func(c int) int { return c - 1 })
}

// JumpTo moves the cursor to question i. Answers are untouched.
func (s *Session) JumpTo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Taking {
		return &StateError{Op: "jump", State: s.state}
	}
	if i < 0 || i >= s.plan.Len() {
		return fmt.Errorf("jump: question %d out of range [0,%d)", i, s.plan.Len())
	}
	s.cursor = i
	s.saveLocked()
	return nil
}

func (s *Session) move(op string, step func(int) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Taking {
		return &StateError{Op: op, State: s.state}
	}
	next := clamp(step(s.cursor), 0, s.plan.Len()-1)
	if next == s.cursor {
		return nil
	}
	s.cursor = next
	s.saveLocked()
	return nil
}

// Submit grades the attempt. With unanswered questions it returns
// *UnansweredError unless allowIncomplete is set. Only one submit may be in
// flight; the others get ErrSubmitInFlight without reaching the oracle.
func (s *Session) Submit(ctx context.Context, allowIncomplete bool) (quiz.GradedResult, error) {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return quiz.GradedResult{}, ErrSubmitInFlight
	}
	if s.state != Taking {
		st := s.state
		s.mu.Unlock()
		return quiz.GradedResult{}, &StateError{Op: "submit", State: st}
	}
	if n := s.unansweredLocked(); n > 0 && !allowIncomplete {
		s.mu.Unlock()
		return quiz.GradedResult{}, &UnansweredError{Count: n}
	}
	if s.submitKey == "" {
		s.submitKey = uuid.NewString()
	}
	sub := quiz.Submission{StudentID: s.profile.StudentID, Answers: s.answersLocked(), IdempotencyKey: s.submitKey}
	s.state = Submitting
	s.lastErr = nil
	s.mu.Unlock()

	res, err := s.oracle.SubmitQuizAnswers(ctx, s.quizID, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Taking
		se := &SubmitError{Err: err}
		s.lastErr = se
		s.log.Printf("session: quiz %d: submit failed: %v", s.quizID, err)
		return quiz.GradedResult{}, se
	}

	res.Normalize(s.quiz.Questions)
	s.submitKey = ""
	s.result = &res
	s.state = Results
	s.quiz.Attempts = append(s.quiz.Attempts, quiz.AttemptSummary{
		AttemptNumber:  len(s.quiz.Attempts) + 1,
		Score:          res.Score,
		Total:          res.Total,
		XPAwarded:      res.XPAwarded,
		IsFirstAttempt: res.IsFirstAttempt,
	})
	if s.progress != nil {
		if err := s.progress.Clear(ctx, s.quizID); err != nil {
			s.log.Printf("session: quiz %d: %v", s.quizID, err)
		}
	}
	return res, nil
}

// Retake starts a fresh, reshuffled attempt after results.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Results {
		return &StateError{Op: "retake", State: s.state}
	}
	plan := quiz.PlanAttempt(s.quiz.Questions, true, s.src)
	if plan.Len() == 0 {
		return ErrNoPlayable
	}
	s.plan = plan
	s.answers = map[int64]quiz.Letter{}
	s.cursor = 0
	s.result = nil
	s.lastErr = nil
	s.submitKey = uuid.NewString()
	s.state = Taking
	return nil
}

// Review renders the graded attempt. Only valid in Results.
func (s *Session) Review() (review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Results || s.result == nil {
		return review.Review{}, &StateError{Op: "review", State: s.state}
	}
	rv := review.Render(s.quiz.Questions, *s.result)
	rv.Title = s.quiz.Title
	return rv, nil
}

func (s *Session) saveLocked() {
	if s.progress == nil {
		return
	}
	snap := progress.Snapshot{
		Answers: s.answersLocked(),
		Cursor:  s.cursor,
	}
	if s.cursor < s.plan.Len() {
		snap.CurrentQuestionID = s.plan.Questions[s.cursor].Question.ID
	}
	if err := s.progress.Save(context.Background(), s.quizID, snap); err != nil {
		s.log.Printf("session: quiz %d: %v", s.quizID, err)
	}
}

func (s *Session) answersLocked() map[int64]quiz.Letter {
	out := make(map[int64]quiz.Letter, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Session) unansweredLocked() int {
	n := 0
	for _, qp := range s.plan.Questions {
		if _, ok := s.answers[qp.Question.ID]; !ok {
			n++
		}
	}
	return n
}

func (s *Session) Profile() Profile { return s.profile }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Quiz() quiz.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

func (s *Session) Plan() quiz.AttemptPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Current returns the plan of the question under the cursor.
func (s *Session) Current() (quiz.QuestionPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= s.plan.Len() {
		return quiz.QuestionPlan{}, false
	}
	return s.plan.Questions[s.cursor], true
}

// SelectedDisplay returns the display letter chosen for question i.
func (s *Session) SelectedDisplay(i int) (quiz.Letter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.plan.Len() {
		return "", false
	}
	qp := s.plan.Questions[i]
	real, ok := s.answers[qp.Question.ID]
	if !ok {
		return "", false
	}
	return qp.Display(real)
}

// Answers returns a copy of the answers, keyed by question id, real letters.
func (s *Session) Answers() map[int64]quiz.Letter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersLocked()
}

func (s *Session) Unanswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unansweredLocked()
}

func (s *Session) PercentComplete() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.plan.Len()
	if n == 0 {
		return 0
	}
	return quiz.Percent(n-s.unansweredLocked(), n)
}

func (s *Session) Attempts() []quiz.AttemptSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]quiz.AttemptSummary(nil), s.quiz.Attempts...)
}

// Result returns the graded result while in Results.
func (s *Session) Result() (quiz.GradedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return quiz.GradedResult{}, false
	}
	return *s.result, true
}

// LastError is the most recent load or submit failure, cleared on success.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
