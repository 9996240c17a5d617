package grading

import (
	"context"
	"errors"
	"strings"
)

// Q is the minimal view of a question needed for grading.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

const (
	TypeSingle = "mcq_single"
	TypeMulti  = "mcq_multi"
)

// Result is the outcome of grading a single response.
type Result struct {
	AutoPoints float64
	MaxPoints  float64
	Correct    bool
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

var ErrNoStrategy = errors.New("no grading strategy for question type")

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points}, ErrNoStrategy
	}
	return s.Grade(ctx, q, response)
}

type Option func(*config)

type config struct {
	AllowPartialMulti bool
}

// WithPartialMulti grants partial credit for list responses to multi-answer
// questions that contain no wrong letters.
func WithPartialMulti(b bool) Option { return func(c *config) { c.AllowPartialMulti = b } }

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeSingle: mcqSingleStrategy{},
			TypeMulti:  mcqMultiStrategy{allowPartial: cfg.AllowPartialMulti},
		},
	}
}

// --- Strategies ---

type mcqSingleStrategy struct{}

func (mcqSingleStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	resp, ok := response.(string)
	if !ok {
		return res, errors.New("response must be string")
	}
	if len(q.AnswerKey) > 0 && sameLetter(resp, q.AnswerKey[0]) {
		res.AutoPoints, res.Correct = q.Points, true
	}
	return res, nil
}

// mcqMultiStrategy accepts a single pick matching any key letter, or a list
// that must equal the key as a set.
type mcqMultiStrategy struct{ allowPartial bool }

func (s mcqMultiStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if one, ok := response.(string); ok {
		for _, k := range q.AnswerKey {
			if sameLetter(one, k) {
				res.AutoPoints, res.Correct = q.Points, true
				break
			}
		}
		return res, nil
	}

	respSlice, ok := toStringSlice(response)
	if !ok {
		return res, errors.New("response must be string or []string")
	}
	correct := toSet(q.AnswerKey)
	resp := toSet(respSlice)
	if setEqual(correct, resp) {
		res.AutoPoints, res.Correct = q.Points, true
		return res, nil
	}
	inter := 0
	for r := range resp {
		if _, ok := correct[r]; !ok {
			return res, nil
		}
		inter++
	}
	if s.allowPartial && len(correct) > 0 {
		res.AutoPoints = q.Points * (float64(inter) / float64(len(correct)))
	}
	return res, nil
}

// helpers

func sameLetter(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
