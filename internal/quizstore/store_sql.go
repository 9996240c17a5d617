package quizstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-academy/quizengine/internal/db"
	"github.com/nexus-academy/quizengine/internal/quiz"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(dbh *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: dbh, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, err
	}
	defer func() { _ = tx.Rollback() }()

	urls := q.SourceURLs
	if urls == nil {
		urls = []string{}
	}
	uj, _ := json.Marshal(urls)
	now := time.Now().Unix()

	if q.ID == 0 {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO quizzes (title, source_urls_json, created_at) VALUES ($1,$2,$3) RETURNING id`,
			q.Title, string(uj), now).Scan(&q.ID)
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO quizzes (id, title, source_urls_json, created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, source_urls_json=EXCLUDED.source_urls_json`,
			q.ID, q.Title, string(uj), now)
		if err == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, q.ID)
		}
	}
	if err != nil {
		return quiz.Quiz{}, err
	}

	explicit := false
	qs := make([]quiz.Question, len(q.Questions))
	for i, x := range q.Questions {
		oj, _ := json.Marshal(x.Options)
		key := joinKey(x.CorrectAnswers)
		if x.ID == 0 {
			err = tx.QueryRowContext(ctx, `INSERT INTO questions
				(quiz_id, position, question_text, options_json, correct_answers, explanation)
				VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				q.ID, i, x.Text, string(oj), key, x.Explanation).Scan(&x.ID)
		} else {
			explicit = true
			_, err = tx.ExecContext(ctx, `INSERT INTO questions
				(id, quiz_id, position, question_text, options_json, correct_answers, explanation)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				x.ID, q.ID, i, x.Text, string(oj), key, x.Explanation)
		}
		if err != nil {
			return quiz.Quiz{}, err
		}
		x.Number = i + 1
		qs[i] = x
	}

	if s.driver == db.DriverPostgres {
		// explicit ids do not advance BIGSERIAL sequences
		if explicit {
			if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('questions','id'), (SELECT MAX(id) FROM questions))`); err != nil {
				return quiz.Quiz{}, err
			}
		}
		if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('quizzes','id'), (SELECT MAX(id) FROM quizzes))`); err != nil {
			return quiz.Quiz{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return quiz.Quiz{}, err
	}
	q.Questions = qs
	q.QuestionCount = len(qs)
	q.Attempts = nil
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error) {
	var q quiz.Quiz
	var uj string
	err := s.db.QueryRowContext(ctx, `SELECT id, title, source_urls_json FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.Title, &uj)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Quiz{}, ErrNotFound
	}
	if err != nil {
		return quiz.Quiz{}, err
	}
	_ = json.Unmarshal([]byte(uj), &q.SourceURLs)

	rows, err := s.db.QueryContext(ctx, `SELECT id, question_text, options_json, correct_answers, explanation
		FROM questions WHERE quiz_id=$1 ORDER BY position, id`, id)
	if err != nil {
		return quiz.Quiz{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var x quiz.Question
		var oj, key string
		if err := rows.Scan(&x.ID, &x.Text, &oj, &key, &x.Explanation); err != nil {
			return quiz.Quiz{}, err
		}
		if err := json.Unmarshal([]byte(oj), &x.Options); err != nil {
			return quiz.Quiz{}, err
		}
		x.CorrectAnswers = quiz.SplitAnswerKey(key)
		x.Number = len(q.Questions) + 1
		q.Questions = append(q.Questions, x)
	}
	if err := rows.Err(); err != nil {
		return quiz.Quiz{}, err
	}
	q.QuestionCount = len(q.Questions)
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, studentID int64) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT q.id, q.title,
		(SELECT COUNT(*) FROM questions x WHERE x.quiz_id=q.id),
		(SELECT COUNT(*) FROM quiz_attempts a WHERE a.quiz_id=q.id AND a.student_id=$1),
		(SELECT MAX(a.score) FROM quiz_attempts a WHERE a.quiz_id=q.id AND a.student_id=$1)
		FROM quizzes q ORDER BY q.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		var best sql.NullInt64
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.QuestionCount, &sm.Attempts, &best); err != nil {
			return nil, err
		}
		sm.Status = "not_started"
		if best.Valid {
			b := int(best.Int64)
			sm.BestScore = &b
			sm.Status = "completed"
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLStore) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// row lock on the quiz serializes attempt numbering per quiz; SQLite
	// runs on a single connection so its transactions are already serial
	lock := `SELECT 1 FROM quizzes WHERE id=$1`
	if s.driver == db.DriverPostgres {
		lock += ` FOR UPDATE`
	}
	var exist int
	if err := tx.QueryRowContext(ctx, lock, a.QuizID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else {
		prev, err := scanAttempt(tx.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts WHERE id=$1`, a.ID))
		switch {
		case err == nil:
			return sameSubmission(prev, a)
		case !errors.Is(err, sql.ErrNoRows):
			return Attempt{}, err
		}
	}
	var n, best int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(score), 0) FROM quiz_attempts WHERE quiz_id=$1 AND student_id=$2`,
		a.QuizID, a.StudentID).Scan(&n, &best); err != nil {
		return Attempt{}, err
	}
	settle(&a, n, best)
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}

	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	rj, err := json.Marshal(a.Result)
	if err != nil {
		return Attempt{}, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id, quiz_id, student_id, attempt_number, answers_json, results_json, score, total, xp_awarded, best_score, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.QuizID, a.StudentID, a.AttemptNumber, string(aj), string(rj),
		a.Result.Score, a.Result.Total, a.Result.XPAwarded, *a.Result.BestScore, a.CompletedAt.Unix())
	if err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

const attemptCols = `id, quiz_id, student_id, attempt_number, answers_json, results_json, completed_at`

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, quizID, studentID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts
		WHERE quiz_id=$1 AND student_id=$2 ORDER BY attempt_number`, quizID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (Attempt, error) {
	var a Attempt
	var aj, rj string
	var completed int64
	if err := sc.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.AttemptNumber, &aj, &rj, &completed); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
		a.Answers = map[int64]quiz.Letter{}
	}
	if err := json.Unmarshal([]byte(rj), &a.Result); err != nil {
		return Attempt{}, err
	}
	a.CompletedAt = time.Unix(completed, 0)
	return a, nil
}

func joinKey(ls []quiz.Letter) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}
