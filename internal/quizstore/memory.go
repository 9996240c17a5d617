package quizstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[int64]quiz.Quiz
	attempts map[string]Attempt
	nextQuiz int64
	nextQ    int64
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[int64]quiz.Quiz{},
		attempts: map[string]Attempt{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == 0 {
		m.nextQuiz++
		q.ID = m.nextQuiz
	} else if q.ID > m.nextQuiz {
		m.nextQuiz = q.ID
	}
	qs := make([]quiz.Question, len(q.Questions))
	for i, x := range q.Questions {
		if x.ID == 0 {
			m.nextQ++
			x.ID = m.nextQ
		} else if x.ID > m.nextQ {
			m.nextQ = x.ID
		}
		x.Number = i + 1
		qs[i] = x
	}
	q.Questions = qs
	q.QuestionCount = len(qs)
	q.Attempts = nil
	m.quizzes[q.ID] = q
	return q, nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id int64) (quiz.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return quiz.Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, studentID int64) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		out = append(out, summarize(q, m.attemptsLocked(q.ID, studentID)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) RecordAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return Attempt{}, ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if prev, ok := m.attempts[a.ID]; ok {
		return sameSubmission(prev, a)
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}
	prior := m.attemptsLocked(a.QuizID, a.StudentID)
	best := 0
	for _, p := range prior {
		if p.Result.Score > best {
			best = p.Result.Score
		}
	}
	settle(&a, len(prior), best)
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, quizID, studentID int64) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attemptsLocked(quizID, studentID), nil
}

func (m *memoryStore) attemptsLocked(quizID, studentID int64) []Attempt {
	var out []Attempt
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out
}
