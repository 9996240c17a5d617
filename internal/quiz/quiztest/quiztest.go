// Package quiztest holds fixtures shared by engine tests.
package quiztest

import "github.com/nexus-academy/quizengine/internal/quiz"

// Scripted replays fixed values (mod n); once exhausted it returns 0.
type Scripted struct {
	Values []int
	Calls  int
}

func (s *Scripted) IntN(n int) int {
	if s.Calls >= len(s.Values) {
		s.Calls++
		return 0
	}
	v := s.Values[s.Calls] % n
	s.Calls++
	return v
}

// Question builds a four-option question whose key is correct.
func Question(id int64, text string, correct ...quiz.Letter) quiz.Question {
	return quiz.Question{
		ID:             id,
		Text:           text,
		Options:        [quiz.MaxOptions]string{"alpha", "bravo", "charlie", "delta", ""},
		CorrectAnswers: correct,
		Explanation:    "see lesson notes",
	}
}

// Quiz returns a quiz with n four-option questions (ids 101..), key D for
// even ids and A for odd ones.
func Quiz(id int64, n int, attempts ...quiz.AttemptSummary) quiz.Quiz {
	qz := quiz.Quiz{ID: id, Title: "Networking Basics", QuestionCount: n, Attempts: attempts}
	for i := 0; i < n; i++ {
		qid := int64(101 + i)
		key := quiz.A
		if qid%2 == 0 {
			key = quiz.D
		}
		qz.Questions = append(qz.Questions, Question(qid, "question text", key))
	}
	return qz
}
