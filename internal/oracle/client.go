// Package oracle talks to the grading backend over HTTP/JSON.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nexus-academy/quizengine/internal/quiz"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

type Config struct {
	BaseURL string
	// Token is sent as a static bearer token when TokenURL is empty.
	Token string

	TokenURL     string
	ClientID     string
	ClientSecret string

	Timeout time.Duration
}

type Client struct {
	base  string
	token string
	http  *http.Client
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
		cfg.Token = ""
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{base: strings.TrimSuffix(cfg.BaseURL, "/"), token: cfg.Token, http: h}
}

// envelope is the backend's {"success":true,"data":...} wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  json.RawMessage `json:"detail"`
}

// FetchQuiz loads student-safe questions plus the student's prior attempts.
func (c *Client) FetchQuiz(ctx context.Context, quizID, studentID int64) (quiz.Quiz, error) {
	var out quiz.Quiz
	err := c.do(ctx, "fetch quiz", http.MethodGet, c.quizURL(quizID, "", studentID), nil, nil, &out)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if out.ID == 0 {
		out.ID = quizID
	}
	return out, nil
}

// SubmitQuizAnswers sends real-letter answers and returns the graded result.
// Rows are normalized against nothing here; callers holding the canonical
// questions should call GradedResult.Normalize.
func (c *Client) SubmitQuizAnswers(ctx context.Context, quizID int64, sub quiz.Submission) (quiz.GradedResult, error) {
	if sub.Answers == nil {
		sub.Answers = map[int64]quiz.Letter{}
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return quiz.GradedResult{}, err
	}
	key := sub.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", key)

	var out quiz.GradedResult
	if err := c.do(ctx, "submit quiz", http.MethodPost, c.quizURL(quizID, "/submit", 0), body, hdr, &out); err != nil {
		return quiz.GradedResult{}, err
	}
	out.Normalize(nil)
	return out, nil
}

// FetchQuizReview loads the latest graded attempt with canonical questions.
func (c *Client) FetchQuizReview(ctx context.Context, quizID, studentID int64) (quiz.ReviewData, error) {
	var out quiz.ReviewData
	if err := c.do(ctx, "fetch review", http.MethodGet, c.quizURL(quizID, "/review", studentID), nil, nil, &out); err != nil {
		return quiz.ReviewData{}, err
	}
	if out.QuizID == 0 {
		out.QuizID = quizID
	}
	out.Normalize(out.Questions)
	return out, nil
}

func (c *Client) quizURL(quizID int64, suffix string, studentID int64) string {
	u := c.base + "/api/quizzes/" + strconv.FormatInt(quizID, 10) + suffix
	if studentID > 0 {
		u += "?" + url.Values{"student_id": {strconv.FormatInt(studentID, 10)}}.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, u string, body []byte, hdr http.Header, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if res.StatusCode/100 != 2 {
		return &StatusError{Op: op, Code: res.StatusCode, Detail: detailOf(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	data := env.Data
	if len(data) == 0 {
		// tolerate unwrapped payloads
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

// detailOf extracts FastAPI-style {"detail": "..."} messages.
func detailOf(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			return s
		}
		return string(env.Detail)
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
