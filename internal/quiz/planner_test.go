package quiz_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/quiz/quiztest"
)

// layout renders a plan's question order and option order as a string.
func layout(p quiz.AttemptPlan) string {
	s := ""
	for _, qp := range p.Questions {
		s += fmt.Sprintf("%d:", qp.Question.ID)
		for _, o := range qp.Options {
			s += string(o.Real)
		}
		s += " "
	}
	return s
}

func TestPlanAttempt_FirstAttemptIsCanonical(t *testing.T) {
	qz := quiztest.Quiz(1, 6)

	p := quiz.PlanAttempt(qz.Questions, false, quiz.NewSource(99))

	assert.False(t, p.Retake)
	require.Equal(t, 6, p.Len())
	for i, qp := range p.Questions {
		assert.Equal(t, qz.Questions[i].ID, qp.Question.ID, "canonical order")
		for d, r := range qp.DisplayToReal {
			assert.Equal(t, d, r)
		}
	}
}

func TestPlanAttempt_FirstAttemptIgnoresSource(t *testing.T) {
	qz := quiztest.Quiz(1, 4)
	src := &quiztest.Scripted{Values: []int{1, 2, 3}}

	quiz.PlanAttempt(qz.Questions, false, src)

	assert.Zero(t, src.Calls, "first attempts must not consume randomness")
}

func TestPlanAttempt_RetakeShuffles(t *testing.T) {
	qz := quiztest.Quiz(1, 5)

	a := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(1))
	b := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(2))

	assert.True(t, a.Retake)
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, 5, b.Len())
	assert.NotEqual(t, layout(a), layout(b), "two retakes should get different layouts")
}

func TestPlanAttempt_SameSeedSameLayout(t *testing.T) {
	qz := quiztest.Quiz(1, 5)

	a := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(7))
	b := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(7))

	assert.Equal(t, layout(a), layout(b))
}

func TestPlanAttempt_RetakeSharedSourceKeepsChanging(t *testing.T) {
	qz := quiztest.Quiz(1, 5)
	src := quiz.NewSource(3)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		seen[layout(quiz.PlanAttempt(qz.Questions, true, src))] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestPlanAttempt_RetakeKeepsEveryQuestion(t *testing.T) {
	qz := quiztest.Quiz(1, 8)
	p := quiz.PlanAttempt(qz.Questions, true, quiz.NewSource(5))

	for _, q := range qz.Questions {
		i, ok := p.IndexOf(q.ID)
		require.True(t, ok, "question %d missing", q.ID)
		assert.Equal(t, q.ID, p.Questions[i].Question.ID)
	}
}

func TestPlanAttempt_SkipsMalformedQuestions(t *testing.T) {
	qz := quiztest.Quiz(1, 3)
	qz.Questions[1].Options = [quiz.MaxOptions]string{}

	for _, retake := range []bool{false, true} {
		p := quiz.PlanAttempt(qz.Questions, retake, quiz.NewSource(11))

		assert.Equal(t, 2, p.Len())
		require.Len(t, p.Skipped, 1)
		assert.Equal(t, qz.Questions[1].ID, p.Skipped[0].QuestionID)
		assert.True(t, errors.Is(p.Skipped[0].Err, quiz.ErrNoOptions))
		_, ok := p.IndexOf(qz.Questions[1].ID)
		assert.False(t, ok)
	}
}

func TestPlanAttempt_RetakeWithoutSource(t *testing.T) {
	qz := quiztest.Quiz(1, 3)

	var p quiz.AttemptPlan
	require.NotPanics(t, func() { p = quiz.PlanAttempt(qz.Questions, true, nil) })
	assert.Zero(t, p.Len())
	require.Len(t, p.Skipped, 3)
	for _, sk := range p.Skipped {
		assert.ErrorIs(t, sk.Err, quiz.ErrNoSource)
	}

	first := quiz.PlanAttempt(qz.Questions, false, nil)
	assert.Equal(t, 3, first.Len(), "first attempts never consume the source")
}
