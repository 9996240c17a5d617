package quiz_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

func TestQuestionUnmarshal_BackendShape(t *testing.T) {
	raw := `{"id":12,"question_text":"Default gateway?","option_a":"x","option_b":"y","option_c":"z","option_d":"w","correct_answer":"C","explanation":"because"}`

	var q quiz.Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.EqualValues(t, 12, q.ID)
	assert.Equal(t, [quiz.MaxOptions]string{"x", "y", "z", "w", ""}, q.Options)
	assert.Equal(t, []quiz.Letter{quiz.C}, q.CorrectAnswers)
	assert.False(t, q.IsMultiSelect())
}

func TestQuestionUnmarshal_MultiAnswerColumn(t *testing.T) {
	raw := `{"id":1,"question_text":"pick two","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_answer":"A","correct_answers":"A, C"}`

	var q quiz.Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Equal(t, []quiz.Letter{quiz.A, quiz.C}, q.CorrectAnswers)
	assert.True(t, q.IsMultiSelect())
}

func TestQuestionUnmarshal_StudentSafeHasNoKey(t *testing.T) {
	raw := `{"id":1,"question_text":"q","option_a":"a","option_b":"b","option_c":"","option_d":""}`

	var q quiz.Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Empty(t, q.CorrectAnswers)
	assert.Equal(t, []quiz.Letter{quiz.A, quiz.B}, q.Populated())
}

func TestSubmissionEncodesStringKeys(t *testing.T) {
	b, err := json.Marshal(quiz.Submission{StudentID: 3, Answers: map[int64]quiz.Letter{101: quiz.D}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"student_id":3,"answers":{"101":"D"}}`, string(b))
}

func TestParseLetter(t *testing.T) {
	l, err := quiz.ParseLetter(" b ")
	require.NoError(t, err)
	assert.Equal(t, quiz.B, l)

	_, err = quiz.ParseLetter("F")
	assert.ErrorIs(t, err, quiz.ErrInvalidLetter)
}

func TestPercentRoundsToNearest(t *testing.T) {
	assert.Equal(t, 67, quiz.Percent(2, 3))
	assert.Equal(t, 33, quiz.Percent(1, 3))
	assert.Equal(t, 100, quiz.Percent(2, 2))
	assert.Equal(t, 0, quiz.Percent(0, 0))
}

func TestBestScore(t *testing.T) {
	_, ok := quiz.BestScore(nil)
	assert.False(t, ok)

	best, ok := quiz.BestScore([]quiz.AttemptSummary{{Score: 3}, {Score: 8}, {Score: 5}})
	assert.True(t, ok)
	assert.Equal(t, 8, best)
}
