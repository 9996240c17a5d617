// Package progress persists in-progress quiz answers between reloads.
//
// Snapshots hold real (canonical) letters only, so they survive a reshuffled
// layout. They are device scratch state: the server's attempt count, not the
// presence of a snapshot, decides whether an attempt is a retake.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

// Key returns the storage key for a quiz.
func Key(quizID int64) string { return fmt.Sprintf("quiz_%d_progress", quizID) }

// Snapshot is the saved scratch state for one quiz.
type Snapshot struct {
	Answers           map[int64]quiz.Letter `json:"answers"`
	Cursor            int                   `json:"currentQuestion"`
	CurrentQuestionID int64                 `json:"currentQuestionId,omitempty"`
	Submitted         bool                  `json:"submitted"`
}

type Store struct {
	kv  KV
	log *log.Logger
}

func NewStore(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{kv: kv, log: logger}
}

// Load returns the saved snapshot. Anything unreadable is reported as absent.
func (s *Store) Load(ctx context.Context, quizID int64) (Snapshot, bool) {
	key := Key(quizID)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Printf("progress: read %s: %v", key, err)
		return Snapshot{}, false
	}
	if !ok || raw == "" || raw == "null" {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Printf("progress: discarding corrupt snapshot %s: %v", key, err)
		return Snapshot{}, false
	}
	for qid, l := range snap.Answers {
		if !l.Valid() {
			s.log.Printf("progress: discarding snapshot %s: bad letter %q for question %d", key, l, qid)
			return Snapshot{}, false
		}
	}
	if snap.Answers == nil {
		snap.Answers = map[int64]quiz.Letter{}
	}
	if snap.Cursor < 0 {
		snap.Cursor = 0
	}
	return snap, true
}

// Save overwrites the snapshot for a quiz.
func (s *Store) Save(ctx context.Context, quizID int64, snap Snapshot) error {
	if snap.Answers == nil {
		snap.Answers = map[int64]quiz.Letter{}
	}
	buf, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, Key(quizID), string(buf)); err != nil {
		return fmt.Errorf("progress: save %s: %w", Key(quizID), err)
	}
	return nil
}

// Clear removes the snapshot; clearing a missing snapshot is not an error.
func (s *Store) Clear(ctx context.Context, quizID int64) error {
	if err := s.kv.Remove(ctx, Key(quizID)); err != nil {
		return fmt.Errorf("progress: clear %s: %w", Key(quizID), err)
	}
	return nil
}
