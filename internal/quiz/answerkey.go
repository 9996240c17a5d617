package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNoOptions = errors.New("question has no options")
	ErrNoSource  = errors.New("shuffle requested without a random source")
)

// DisplayOption pairs the letter shown to the student with the canonical one.
type DisplayOption struct {
	Display Letter `json:"display"`
	Real    Letter `json:"real"`
	Text    string `json:"text"`
}

// QuestionPlan is how one question is laid out for one attempt.
// DisplayToReal and RealToDisplay are exact inverses over populated slots.
type QuestionPlan struct {
	Question      Question
	Options       []DisplayOption
	DisplayToReal map[Letter]Letter
	RealToDisplay map[Letter]Letter
}

// Real maps a clicked display letter to the canonical letter.
func (p QuestionPlan) Real(display Letter) (Letter, bool) {
	l, ok := p.DisplayToReal[display]
	return l, ok
}

// Display maps a canonical letter to where it is shown in this attempt.
func (p QuestionPlan) Display(real Letter) (Letter, bool) {
	l, ok := p.RealToDisplay[real]
	return l, ok
}

// Shuffled reports whether any option moved away from its canonical slot.
func (p QuestionPlan) Shuffled() bool {
	for _, o := range p.Options {
		if o.Display != o.Real {
			return true
		}
	}
	return false
}

// BuildQuestionPlan lays out q's populated options, permuting them when
// shuffle is set. A question without any option text is rejected.
func BuildQuestionPlan(q Question, shuffle bool, src Source) (QuestionPlan, error) {
	reals := q.Populated()
	if len(reals) == 0 {
		return QuestionPlan{}, fmt.Errorf("question %d: %w", q.ID, ErrNoOptions)
	}
	if shuffle {
		if src == nil {
			return QuestionPlan{}, fmt.Errorf("question %d: %w", q.ID, ErrNoSource)
		}
		Shuffle(len(reals), src, func(i, j int) { reals[i], reals[j] = reals[j], reals[i] })
	}

	p := QuestionPlan{
		Question:      q,
		Options:       make([]DisplayOption, len(reals)),
		DisplayToReal: make(map[Letter]Letter, len(reals)),
		RealToDisplay: make(map[Letter]Letter, len(reals)),
	}
	for i, real := range reals {
		display := LetterAt(i)
		p.Options[i] = DisplayOption{Display: display, Real: real, Text: q.OptionText(real)}
		p.DisplayToReal[display] = real
		p.RealToDisplay[real] = display
	}
	return p, nil
}
