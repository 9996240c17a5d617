package quiz

// SkippedQuestion records a question the planner could not lay out.
type SkippedQuestion struct {
	QuestionID int64
	Err        error
}

// AttemptPlan is the question sequence for one attempt.
type AttemptPlan struct {
	Retake    bool
	Questions []QuestionPlan
	Skipped   []SkippedQuestion
}

func (p AttemptPlan) Len() int { return len(p.Questions) }

// IndexOf returns the attempt position of a question id.
func (p AttemptPlan) IndexOf(questionID int64) (int, bool) {
	for i, qp := range p.Questions {
		if qp.Question.ID == questionID {
			return i, true
		}
	}
	return -1, false
}

// PlanAttempt decides question order and option layout. First attempts keep
// the canonical layout; retakes shuffle both the question order and every
// question's options. Malformed questions are skipped, not fatal. A retake
// without a source skips every question with ErrNoSource.
func PlanAttempt(questions []Question, retake bool, src Source) AttemptPlan {
	order := make([]Question, len(questions))
	copy(order, questions)
	if retake && src != nil {
		Shuffle(len(order), src, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	plan := AttemptPlan{Retake: retake, Questions: make([]QuestionPlan, 0, len(order))}
	for _, q := range order {
		qp, err := BuildQuestionPlan(q, retake, src)
		if err != nil {
			plan.Skipped = append(plan.Skipped, SkippedQuestion{QuestionID: q.ID, Err: err})
			continue
		}
		plan.Questions = append(plan.Questions, qp)
	}
	return plan
}
