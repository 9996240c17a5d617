package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxOptions is the number of option slots a question can carry (A..E).
const MaxOptions = 5

// Letter is a canonical option label. Display letters reuse the same type.
type Letter string

const (
	A Letter = "A"
	B Letter = "B"
	C Letter = "C"
	D Letter = "D"
	E Letter = "E"
)

var letters = [MaxOptions]Letter{A, B, C, D, E}

var ErrInvalidLetter = errors.New("invalid option letter")

// LetterAt returns the letter for slot i (0 => A).
func LetterAt(i int) Letter {
	if i < 0 || i >= MaxOptions {
		return ""
	}
	return letters[i]
}

// Index returns the slot index of l, or -1.
func (l Letter) Index() int {
	for i, x := range letters {
		if x == l {
			return i
		}
	}
	return -1
}

func (l Letter) Valid() bool { return l.Index() >= 0 }

// ParseLetter accepts "a", " B " etc.
func ParseLetter(s string) (Letter, error) {
	l := Letter(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLetter, s)
	}
	return l, nil
}

// Question is a canonical question as authored. Options is indexed by slot;
// an empty string means the slot is absent.
type Question struct {
	ID             int64
	Number         int
	Text           string
	Options        [MaxOptions]string
	CorrectAnswers []Letter // empty on student-facing fetches
	Explanation    string
}

// Populated lists letters with non-empty option text, in canonical order.
func (q Question) Populated() []Letter {
	out := make([]Letter, 0, MaxOptions)
	for i, t := range q.Options {
		if strings.TrimSpace(t) != "" {
			out = append(out, letters[i])
		}
	}
	return out
}

// OptionText returns the text stored under a real letter.
func (q Question) OptionText(l Letter) string {
	i := l.Index()
	if i < 0 {
		return ""
	}
	return q.Options[i]
}

func (q Question) IsMultiSelect() bool { return len(q.CorrectAnswers) > 1 }

// OptionMap returns the populated options keyed by real letter.
func (q Question) OptionMap() map[Letter]string {
	m := make(map[Letter]string, MaxOptions)
	for _, l := range q.Populated() {
		m[l] = q.OptionText(l)
	}
	return m
}

type wireQuestion struct {
	ID             int64           `json:"id"`
	Number         int             `json:"question_number,omitempty"`
	Text           string          `json:"question_text"`
	OptionA        string          `json:"option_a"`
	OptionB        string          `json:"option_b"`
	OptionC        string          `json:"option_c"`
	OptionD        string          `json:"option_d"`
	OptionE        string          `json:"option_e,omitempty"`
	CorrectAnswer  Letter          `json:"correct_answer,omitempty"`
	CorrectAnswers json.RawMessage `json:"correct_answers,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := wireQuestion{
		ID:          q.ID,
		Number:      q.Number,
		Text:        q.Text,
		OptionA:     q.Options[0],
		OptionB:     q.Options[1],
		OptionC:     q.Options[2],
		OptionD:     q.Options[3],
		OptionE:     q.Options[4],
		Explanation: q.Explanation,
	}
	if len(q.CorrectAnswers) > 0 {
		w.CorrectAnswer = q.CorrectAnswers[0]
		raw, err := json.Marshal(q.CorrectAnswers)
		if err != nil {
			return nil, err
		}
		w.CorrectAnswers = raw
	}
	return json.Marshal(w)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Question{
		ID:          w.ID,
		Number:      w.Number,
		Text:        w.Text,
		Options:     [MaxOptions]string{w.OptionA, w.OptionB, w.OptionC, w.OptionD, w.OptionE},
		Explanation: w.Explanation,
	}
	keys, err := parseAnswerKey(w.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("question %d: %w", w.ID, err)
	}
	if len(keys) == 0 && w.CorrectAnswer != "" {
		keys = []Letter{w.CorrectAnswer}
	}
	q.CorrectAnswers = keys
	return nil
}

// parseAnswerKey accepts either ["A","C"] or the backend's "A,C" column form.
func parseAnswerKey(raw json.RawMessage) ([]Letter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []Letter
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var csv string
	if err := json.Unmarshal(raw, &csv); err != nil {
		return nil, fmt.Errorf("correct_answers: %w", err)
	}
	return SplitAnswerKey(csv), nil
}

// SplitAnswerKey parses "A, C" into letters, skipping blanks.
func SplitAnswerKey(s string) []Letter {
	var out []Letter
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Letter(strings.ToUpper(p)))
		}
	}
	return out
}

// AttemptSummary is one prior attempt as reported by the backend.
type AttemptSummary struct {
	AttemptNumber  int        `json:"attempt_number"`
	Score          int        `json:"score"`
	Total          int        `json:"total"`
	XPAwarded      int        `json:"xp_awarded"`
	IsFirstAttempt bool       `json:"is_first_attempt"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

func (a AttemptSummary) Percent() int { return Percent(a.Score, a.Total) }

// BestScore returns the highest score among attempts; ok is false when empty.
func BestScore(attempts []AttemptSummary) (best int, ok bool) {
	for i, a := range attempts {
		if i == 0 || a.Score > best {
			best = a.Score
		}
	}
	return best, len(attempts) > 0
}

// Quiz is immutable once loaded for an attempt.
type Quiz struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	QuestionCount int              `json:"question_count,omitempty"`
	SourceURLs    []string         `json:"source_urls,omitempty"`
	Questions     []Question       `json:"questions"`
	Attempts      []AttemptSummary `json:"attempts"`
}

// Submission carries real letters only. IdempotencyKey names the attempt
// and stays the same across retries of one attempt; it travels as a header.
type Submission struct {
	StudentID      int64            `json:"student_id"`
	Answers        map[int64]Letter `json:"answers"`
	IdempotencyKey string           `json:"-"`
}

// GradedRow is one per-question outcome. Options is always populated by the
// client adapter, even when the backend omitted it.
type GradedRow struct {
	QuestionID     int64             `json:"question_id"`
	QuestionNumber int               `json:"question_number,omitempty"`
	QuestionText   string            `json:"question_text,omitempty"`
	StudentAnswer  Letter            `json:"student_answer,omitempty"`
	CorrectAnswer  Letter            `json:"correct_answer,omitempty"`
	CorrectAnswers []Letter          `json:"correct_answers,omitempty"`
	IsCorrect      bool              `json:"is_correct"`
	Explanation    string            `json:"explanation,omitempty"`
	Options        map[Letter]string `json:"options,omitempty"`
}

// Accepted returns the accepted letters, falling back to the single key.
func (r GradedRow) Accepted() []Letter {
	if len(r.CorrectAnswers) > 0 {
		return r.CorrectAnswers
	}
	if r.CorrectAnswer != "" {
		return []Letter{r.CorrectAnswer}
	}
	return nil
}

// GradedResult is returned by the grading oracle. XPAwarded and BestScore are
// passed through as-is.
type GradedResult struct {
	Score          int         `json:"score"`
	Total          int         `json:"total"`
	XPAwarded      int         `json:"xp_awarded"`
	BestScore      *int        `json:"best_score,omitempty"`
	IsFirstAttempt bool        `json:"is_first_attempt"`
	Message        string      `json:"message,omitempty"`
	Results        []GradedRow `json:"results"`
}

// Row returns the row for a question id.
func (g GradedResult) Row(questionID int64) (GradedRow, bool) {
	for _, r := range g.Results {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return GradedRow{}, false
}

// Normalize makes every row carry an explicit options map and accepted
// letters, synthesizing them from canonical questions when the backend
// omitted them. Rows for unknown questions keep whatever they had.
func (g *GradedResult) Normalize(canonical []Question) {
	byID := make(map[int64]Question, len(canonical))
	for _, q := range canonical {
		byID[q.ID] = q
	}
	for i := range g.Results {
		row := &g.Results[i]
		q, known := byID[row.QuestionID]
		if len(row.Options) == 0 {
			if known {
				row.Options = q.OptionMap()
			} else {
				row.Options = map[Letter]string{}
			}
		}
		if len(row.CorrectAnswers) == 0 {
			switch {
			case row.CorrectAnswer != "":
				row.CorrectAnswers = []Letter{row.CorrectAnswer}
			case known && len(q.CorrectAnswers) > 0:
				row.CorrectAnswers = append([]Letter(nil), q.CorrectAnswers...)
			}
		}
		if row.QuestionText == "" && known {
			row.QuestionText = q.Text
		}
	}
}

// ReviewData is what fetchQuizReview returns: the latest graded attempt plus
// canonical questions.
type ReviewData struct {
	GradedResult
	QuizID    int64      `json:"quiz_id,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Percent rounds score/total to the nearest integer; total<=0 counts as 1.
func Percent(score, total int) int {
	if total <= 0 {
		total = 1
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
