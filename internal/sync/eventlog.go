package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const TypeQuizSubmitted = "QuizSubmitted"

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// QuizSubmitted is the payload of a TypeQuizSubmitted event.
type QuizSubmitted struct {
	AttemptID     string `json:"attempt_id"`
	QuizID        int64  `json:"quiz_id"`
	StudentID     int64  `json:"student_id"`
	AttemptNumber int    `json:"attempt_number"`
	Score         int    `json:"score"`
	Total         int    `json:"total"`
	XPAwarded     int    `json:"xp_awarded"`
}

// NewQuizSubmitted builds the event; the key is the attempt id.
func NewQuizSubmitted(siteID string, p QuizSubmitted) (Event, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{SiteID: siteID, Type: TypeQuizSubmitted, Key: p.AttemptID, DataJSON: string(buf)}, nil
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Since returns up to limit events with an offset greater than after.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
