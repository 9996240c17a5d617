// Package review turns a graded attempt into a per-question breakdown in
// canonical order, independent of how the attempt was shuffled.
package review

import (
	"context"
	"fmt"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

type Mark int

const (
	MarkNeutral Mark = iota
	MarkCorrect
	MarkWrongPick
)

type Status int

const (
	NotAnswered Status = iota
	Correct
	Incorrect
)

func (s Status) String() string {
	switch s {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "not_answered"
	}
}

// Option is one canonical option row, labelled with its real letter.
type Option struct {
	Letter quiz.Letter
	Text   string
	Mark   Mark
	Note   string // "Correct", "Correct answer", "Your answer" or empty
}

type Item struct {
	Number        int
	QuestionID    int64
	Text          string
	Status        Status
	StudentAnswer quiz.Letter
	Accepted      []quiz.Letter
	Options       []Option
	Explanation   string
}

type Review struct {
	Title          string
	Score          int
	Total          int
	Percent        int
	XPAwarded      int
	BestScore      *int
	IsFirstAttempt bool
	Message        string
	Items          []Item
}

// Correct counts items graded correct.
func (r Review) Correct() int { return r.count(Correct) }

func (r Review) Wrong() int { return r.count(Incorrect) }

func (r Review) Unanswered() int { return r.count(NotAnswered) }

func (r Review) count(s Status) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Render builds the review. Correctness comes from the oracle's is_correct
// and is never re-derived; questions without a row render as NotAnswered.
func Render(questions []quiz.Question, res quiz.GradedResult) Review {
	rv := Review{
		Score:          res.Score,
		Total:          res.Total,
		Percent:        quiz.Percent(res.Score, res.Total),
		XPAwarded:      res.XPAwarded,
		BestScore:      res.BestScore,
		IsFirstAttempt: res.IsFirstAttempt,
		Message:        headline(res),
		Items:          make([]Item, 0, len(questions)),
	}

	for i, q := range questions {
		row, ok := res.Row(q.ID)
		it := Item{
			Number:      i + 1,
			QuestionID:  q.ID,
			Text:        q.Text,
			Explanation: q.Explanation,
		}
		texts := q.OptionMap()
		accepted := q.CorrectAnswers
		if ok {
			it.StudentAnswer = row.StudentAnswer
			if a := row.Accepted(); len(a) > 0 {
				accepted = a
			}
			for l, t := range row.Options {
				if t != "" {
					texts[l] = t
				}
			}
			if row.Explanation != "" {
				it.Explanation = row.Explanation
			}
			switch {
			case row.IsCorrect:
				it.Status = Correct
			case row.StudentAnswer != "":
				it.Status = Incorrect
			}
		}
		it.Accepted = accepted
		it.Options = optionRows(texts, accepted, it.StudentAnswer)
		rv.Items = append(rv.Items, it)
	}
	return rv
}

func optionRows(texts map[quiz.Letter]string, accepted []quiz.Letter, picked quiz.Letter) []Option {
	out := make([]Option, 0, len(texts))
	for i := 0; i < quiz.MaxOptions; i++ {
		l := quiz.LetterAt(i)
		t, ok := texts[l]
		if !ok || t == "" {
			continue
		}
		o := Option{Letter: l, Text: t}
		switch {
		case contains(accepted, l) && picked == l:
			o.Mark, o.Note = MarkCorrect, "Correct"
		case contains(accepted, l):
			o.Mark, o.Note = MarkCorrect, "Correct answer"
		case picked == l:
			o.Mark, o.Note = MarkWrongPick, "Your answer"
		}
		out = append(out, o)
	}
	return out
}

func headline(res quiz.GradedResult) string {
	if res.Message != "" {
		return res.Message
	}
	if res.IsFirstAttempt {
		return fmt.Sprintf("Quiz completed! +%d XP earned", res.XPAwarded)
	}
	return "Score updated (no XP for retakes)"
}

func contains(ls []quiz.Letter, l quiz.Letter) bool {
	for _, x := range ls {
		if x == l {
			return true
		}
	}
	return false
}

// Fetcher is the review half of the oracle.
type Fetcher interface {
	FetchQuizReview(ctx context.Context, quizID, studentID int64) (quiz.ReviewData, error)
}

// Load renders the latest attempt for a student. Callers treat an error as
// "no attempt found".
func Load(ctx context.Context, f Fetcher, quizID, studentID int64) (Review, error) {
	data, err := f.FetchQuizReview(ctx, quizID, studentID)
	if err != nil {
		return Review{}, fmt.Errorf("review quiz %d: %w", quizID, err)
	}
	data.Normalize(data.Questions)
	rv := Render(data.Questions, data.GradedResult)
	rv.Title = data.Title
	return rv, nil
}
