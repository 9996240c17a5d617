package review_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/quiz/quiztest"
	"github.com/nexus-academy/quizengine/internal/review"
)

func gradedAllCorrect(qz quiz.Quiz) quiz.GradedResult {
	res := quiz.GradedResult{Score: len(qz.Questions), Total: len(qz.Questions), XPAwarded: 10 * len(qz.Questions), IsFirstAttempt: true}
	for _, q := range qz.Questions {
		res.Results = append(res.Results, quiz.GradedRow{
			QuestionID:    q.ID,
			StudentAnswer: q.CorrectAnswers[0],
			CorrectAnswer: q.CorrectAnswers[0],
			IsCorrect:     true,
		})
	}
	res.Normalize(qz.Questions)
	return res
}

func TestRender_AllCorrect(t *testing.T) {
	qz := quiztest.Quiz(1, 3)
	rv := review.Render(qz.Questions, gradedAllCorrect(qz))

	assert.Equal(t, 100, rv.Percent)
	assert.Equal(t, "Quiz completed! +30 XP earned", rv.Message)
	require.Len(t, rv.Items, 3)
	for i, it := range rv.Items {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, review.Correct, it.Status)
		require.Len(t, it.Options, 4)
		for _, o := range it.Options {
			if o.Letter == it.StudentAnswer {
				assert.Equal(t, review.MarkCorrect, o.Mark)
				assert.Equal(t, "Correct", o.Note)
			} else {
				assert.Equal(t, review.MarkNeutral, o.Mark)
				assert.Empty(t, o.Note)
			}
		}
	}
}

func TestRender_WrongPickAndMissingRow(t *testing.T) {
	qz := quiztest.Quiz(1, 2) // 101 key A, 102 key D
	res := quiz.GradedResult{
		Score: 0, Total: 2,
		Results: []quiz.GradedRow{{QuestionID: 101, StudentAnswer: quiz.C, CorrectAnswer: quiz.A}},
	}
	rv := review.Render(qz.Questions, res)

	require.Len(t, rv.Items, 2)
	wrong := rv.Items[0]
	assert.Equal(t, review.Incorrect, wrong.Status)
	assert.Equal(t, review.MarkCorrect, wrong.Options[0].Mark)
	assert.Equal(t, "Correct answer", wrong.Options[0].Note)
	assert.Equal(t, review.MarkWrongPick, wrong.Options[2].Mark)
	assert.Equal(t, "Your answer", wrong.Options[2].Note)

	missing := rv.Items[1]
	assert.Equal(t, review.NotAnswered, missing.Status)
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, texts(missing.Options))
	assert.Equal(t, "Score updated (no XP for retakes)", rv.Message)
}

func TestRender_TrustsOracleVerdict(t *testing.T) {
	qz := quiztest.Quiz(1, 1)
	res := quiz.GradedResult{Score: 1, Total: 1, Results: []quiz.GradedRow{
		// oracle says correct even though the key disagrees
		{QuestionID: 101, StudentAnswer: quiz.B, CorrectAnswer: quiz.A, IsCorrect: true},
	}}
	rv := review.Render(qz.Questions, res)
	assert.Equal(t, review.Correct, rv.Items[0].Status)
}

func TestRender_UnansweredRow(t *testing.T) {
	qz := quiztest.Quiz(1, 1)
	res := quiz.GradedResult{Total: 1, Results: []quiz.GradedRow{{QuestionID: 101, CorrectAnswer: quiz.A}}}
	res.Normalize(qz.Questions)

	rv := review.Render(qz.Questions, res)
	it := rv.Items[0]
	assert.Equal(t, review.NotAnswered, it.Status)
	assert.Equal(t, "Correct answer", it.Options[0].Note)
	assert.Equal(t, 0, rv.Correct())
	assert.Equal(t, 0, rv.Wrong())
	assert.Equal(t, 1, rv.Unanswered())
}

func TestRender_MultiAnswer(t *testing.T) {
	q := quiztest.Question(7, "pick both", quiz.A, quiz.C)
	res := quiz.GradedResult{Score: 1, Total: 1, Results: []quiz.GradedRow{
		{QuestionID: 7, StudentAnswer: quiz.C, CorrectAnswers: []quiz.Letter{quiz.A, quiz.C}, IsCorrect: true},
	}}
	rv := review.Render([]quiz.Question{q}, res)
	opts := rv.Items[0].Options
	assert.Equal(t, "Correct answer", opts[0].Note)
	assert.Equal(t, "Correct", opts[2].Note)
}

// The breakdown is in canonical order and labelled with real letters, so
// it does not depend on which layout the student saw.
func TestRender_StableAcrossPlans(t *testing.T) {
	qz := quiztest.Quiz(1, 4)
	res := gradedAllCorrect(qz)
	want := review.Render(qz.Questions, res)

	for seed := uint64(1); seed <= 5; seed++ {
		plan := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(seed))
		require.Equal(t, 4, plan.Len())

		// the student clicks whatever display letter shows the key
		got := quiz.GradedResult{Score: res.Score, Total: res.Total, XPAwarded: res.XPAwarded, IsFirstAttempt: true}
		for _, qp := range plan.Questions {
			key := qp.Question.CorrectAnswers[0]
			display, ok := qp.Display(key)
			require.True(t, ok)
			real, _ := qp.Real(display)
			got.Results = append(got.Results, quiz.GradedRow{QuestionID: qp.Question.ID, StudentAnswer: real, CorrectAnswer: key, IsCorrect: true})
		}
		got.Normalize(qz.Questions)
		assert.Equal(t, want, review.Render(qz.Questions, got))
	}
}

type fakeFetcher struct {
	data quiz.ReviewData
	err  error
}

func (f fakeFetcher) FetchQuizReview(context.Context, int64, int64) (quiz.ReviewData, error) {
	return f.data, f.err
}

func TestLoad(t *testing.T) {
	qz := quiztest.Quiz(9, 2)
	data := quiz.ReviewData{GradedResult: quiz.GradedResult{Score: 1, Total: 2, Results: []quiz.GradedRow{
		{QuestionID: 101, StudentAnswer: quiz.A, CorrectAnswer: quiz.A, IsCorrect: true},
		{QuestionID: 102, StudentAnswer: quiz.B, CorrectAnswer: quiz.D},
	}}, QuizID: 9, Title: qz.Title, Questions: qz.Questions}

	rv, err := review.Load(context.Background(), fakeFetcher{data: data}, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, "Networking Basics", rv.Title)
	assert.Equal(t, 50, rv.Percent)
	assert.Equal(t, review.Incorrect, rv.Items[1].Status)

	boom := errors.New("no attempt")
	_, err = review.Load(context.Background(), fakeFetcher{err: boom}, 9, 1)
	assert.ErrorIs(t, err, boom)
}

func TestWriteText(t *testing.T) {
	qz := quiztest.Quiz(1, 2)
	res := quiz.GradedResult{Score: 1, Total: 2, XPAwarded: 10, IsFirstAttempt: true, Results: []quiz.GradedRow{
		{QuestionID: 101, StudentAnswer: quiz.A, CorrectAnswer: quiz.A, IsCorrect: true},
		{QuestionID: 102, StudentAnswer: quiz.B, CorrectAnswer: quiz.D},
	}}
	rv := review.Render(qz.Questions, res)
	rv.Title = qz.Title

	var buf bytes.Buffer
	require.NoError(t, review.WriteText(&buf, rv, review.TextOptions{NoColor: true}))
	out := buf.String()
	assert.Contains(t, out, "Score: 1/2 (50%)")
	assert.Contains(t, out, "Correct: 1  Wrong: 1  Not answered: 0")
	assert.Contains(t, out, "+10 XP earned")
	assert.Contains(t, out, "B) bravo  [Your answer]")
	assert.Contains(t, out, "D) delta  [Correct answer]")
	assert.NotContains(t, out, "A) alpha  [Correct]", "correct items stay collapsed")

	buf.Reset()
	require.NoError(t, review.WriteText(&buf, rv, review.TextOptions{NoColor: true, ShowAll: true}))
	assert.Contains(t, buf.String(), "A) alpha  [Correct]")
}

func texts(opts []review.Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Text)
	}
	return out
}
