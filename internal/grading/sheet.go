package grading

import (
	"context"
	"fmt"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

// QuestionQ maps a quiz question to the grader's view. Questions with more
// than one accepted letter route to the multi strategy.
func QuestionQ(q quiz.Question) Q {
	key := make([]string, len(q.CorrectAnswers))
	for i, l := range q.CorrectAnswers {
		key[i] = string(l)
	}
	typ := TypeSingle
	if q.IsMultiSelect() {
		typ = TypeMulti
	}
	return Q{Type: typ, Points: 1, AnswerKey: key}
}

// GradeSheet grades real-letter answers against canonical questions, one
// row per question in the given order. Missing answers are incorrect.
func GradeSheet(ctx context.Context, g Grader, questions []quiz.Question, answers map[int64]quiz.Letter) ([]quiz.GradedRow, int, error) {
	rows := make([]quiz.GradedRow, 0, len(questions))
	score := 0
	for i, q := range questions {
		row := quiz.GradedRow{
			QuestionID:     q.ID,
			QuestionNumber: i + 1,
			QuestionText:   q.Text,
			StudentAnswer:  answers[q.ID],
			CorrectAnswers: append([]quiz.Letter(nil), q.CorrectAnswers...),
			Explanation:    q.Explanation,
			Options:        q.OptionMap(),
		}
		if len(q.CorrectAnswers) > 0 {
			row.CorrectAnswer = q.CorrectAnswers[0]
		}
		if row.StudentAnswer != "" {
			res, err := g.Grade(ctx, QuestionQ(q), string(row.StudentAnswer))
			if err != nil {
				return nil, 0, fmt.Errorf("grade question %d: %w", q.ID, err)
			}
			row.IsCorrect = res.Correct
		}
		if row.IsCorrect {
			score++
		}
		rows = append(rows, row)
	}
	return rows, score, nil
}
