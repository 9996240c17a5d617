package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	api "github.com/nexus-academy/quizengine/internal/api/http"
	authmw "github.com/nexus-academy/quizengine/internal/auth/middleware"
	"github.com/nexus-academy/quizengine/internal/oracle"
	"github.com/nexus-academy/quizengine/internal/progress"
	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/quizstore"
	"github.com/nexus-academy/quizengine/internal/review"
	"github.com/nexus-academy/quizengine/internal/session"
)

const seedJSON = `{"title":"Ports","questions":[
	{"question_text":"SSH?","option_a":"21","option_b":"22","option_c":"23","option_d":"25","correct_answer":"B","explanation":"22/tcp"},
	{"question_text":"DNS?","option_a":"53","option_b":"67","option_c":"80","option_d":"443","correct_answers":"A"}]}`

type fixture struct {
	srv   *httptest.Server
	store quizstore.Store
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newWrappedFixture(t, nil)
}

// newWrappedFixture lets a test put middleware in front of the router.
func newWrappedFixture(t *testing.T, wrap func(http.Handler) http.Handler) *fixture {
	t.Helper()
	accounts, err := authmw.ParseAccounts([]string{
		"teach:teacher:" + hash(t, "t-pass"),
		"sam:student:" + hash(t, "s-pass") + ":7",
		"kim:student:" + hash(t, "k-pass") + ":8",
	})
	require.NoError(t, err)

	store := quizstore.NewInMemoryStore()
	svc := quizstore.NewService(store, nil, nil, log.New(io.Discard, "", 0))
	h := api.NewRouter(svc, authmw.NewAuthService("test-secret", accounts), api.RouterOptions{Quiet: true})
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store}
}

func (f *fixture) login(t *testing.T, user, pass string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
	res, err := http.Post(f.srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out.AccessToken
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	return res, string(raw)
}

func (f *fixture) seed(t *testing.T) int64 {
	t.Helper()
	res, body := f.do(t, http.MethodPost, "/api/quizzes", f.login(t, "teach", "t-pass"), seedJSON)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var out struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out.Data.ID
}

func TestAuthAndPermissions(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	res, _ := f.do(t, http.MethodGet, "/api/quizzes", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	bad, _ := json.Marshal(map[string]string{"username": "sam", "password": "nope"})
	lr, err := http.Post(f.srv.URL+"/auth/login", "application/json", bytes.NewReader(bad))
	require.NoError(t, err)
	lr.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, lr.StatusCode)

	sam := f.login(t, "sam", "s-pass")
	res, _ = f.do(t, http.MethodPost, "/api/quizzes", sam, seedJSON)
	assert.Equal(t, http.StatusForbidden, res.StatusCode, "students cannot create quizzes")

	res, _ = f.do(t, http.MethodGet, "/api/quizzes/"+itoa(id)+"?student_id=8", sam, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode, "students only see their own history")

	res, _ = f.do(t, http.MethodPost, "/api/quizzes/"+itoa(id)+"/submit", sam, `{"student_id":8,"answers":{}}`)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body := f.do(t, http.MethodPost, "/api/quizzes/"+itoa(id)+"/submit", sam, `{"answers":{"1":"Q"}}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body, `"detail"`)

	res, body = f.do(t, http.MethodGet, "/api/quizzes/"+itoa(id)+"/review?student_id=7", sam, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "No attempts found")

	res, _ = f.do(t, http.MethodGet, "/api/quizzes/999", sam, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	teach := f.login(t, "teach", "t-pass")
	res, _ = f.do(t, http.MethodGet, "/api/quizzes/"+itoa(id)+"?student_id=8", teach, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = f.do(t, http.MethodPost, "/api/quizzes", teach, `{"title":"x","questions":[{"question_text":"q","option_a":"a","correct_answer":"C"}]}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, "key must name a populated option")
}

func TestStudentFetchHasNoKeys(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	res, body := f.do(t, http.MethodGet, "/api/quizzes/"+itoa(id)+"?student_id=7", f.login(t, "sam", "s-pass"), "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"success":true`)
	assert.NotContains(t, body, "correct_answer")
	assert.NotContains(t, body, "22/tcp")
}

// A full pass through the engine against the reference backend: the client
// authenticates with client credentials, takes the quiz, retakes it with a
// shuffled layout and reviews the result.
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t)

	client := oracle.New(oracle.Config{
		BaseURL:      f.srv.URL,
		TokenURL:     f.srv.URL + "/auth/token",
		ClientID:     "sam",
		ClientSecret: "s-pass",
	})
	store := progress.NewStore(progress.NewMemoryKV(), log.New(io.Discard, "", 0))
	s := session.New(session.Config{
		QuizID:   id,
		Profile:  session.Profile{StudentID: 7, Name: "Sam"},
		Oracle:   client,
		Progress: store,
		Source:   quiz.NewSource(3),
		Logger:   log.New(io.Discard, "", 0),
	})

	require.NoError(t, s.Load(ctx))
	require.Equal(t, session.Taking, s.State())
	require.NoError(t, s.Select(quiz.B))
	require.NoError(t, s.Next())
	require.NoError(t, s.Select(quiz.C))

	res, err := s.Submit(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 10, res.XPAwarded)
	assert.True(t, res.IsFirstAttempt)

	// retake: click whatever display letter shows each key
	require.NoError(t, s.Retake())
	for i, qp := range s.Plan().Questions {
		var key quiz.Letter
		switch qp.Question.Text {
		case "SSH?":
			key = quiz.B
		case "DNS?":
			key = quiz.A
		}
		d, ok := qp.Display(key)
		require.True(t, ok)
		require.NoError(t, s.SelectAt(i, d))
	}
	res, err = s.Submit(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Zero(t, res.XPAwarded)
	require.NotNil(t, res.BestScore)
	assert.Equal(t, 2, *res.BestScore)

	rv, err := review.Load(ctx, client, id, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ports", rv.Title)
	assert.Equal(t, 100, rv.Percent)
	assert.Equal(t, "Score updated (no XP for retakes)", rv.Message)
	for _, it := range rv.Items {
		assert.Equal(t, review.Correct, it.Status)
	}

	// a fresh session sees two attempts and starts on the history screen
	again := session.New(session.Config{QuizID: id, Profile: session.Profile{StudentID: 7}, Oracle: client, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, session.History, again.State())
	assert.Len(t, again.Attempts(), 2)
}

// The first submit is committed by the server but its response is lost. The
// session's retry must replay that attempt, not grade a second one.
func TestSubmitRetryAfterLostResponse(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var keys []string
	dropped := false
	f := newWrappedFixture(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/submit") {
				next.ServeHTTP(w, r)
				return
			}
			mu.Lock()
			keys = append(keys, r.Header.Get("Idempotency-Key"))
			drop := !dropped
			dropped = true
			mu.Unlock()
			if drop {
				next.ServeHTTP(httptest.NewRecorder(), r)
				http.Error(w, `{"detail":"bad gateway"}`, http.StatusBadGateway)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	id := f.seed(t)

	client := oracle.New(oracle.Config{BaseURL: f.srv.URL, Token: f.login(t, "sam", "s-pass")})
	s := session.New(session.Config{
		QuizID:  id,
		Profile: session.Profile{StudentID: 7},
		Oracle:  client,
		Source:  quiz.NewSource(1),
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.SelectAt(0, quiz.B))
	require.NoError(t, s.SelectAt(1, quiz.A))

	_, err := s.Submit(ctx, false)
	var se *session.SubmitError
	require.ErrorAs(t, err, &se)
	require.Equal(t, session.Taking, s.State())

	res, err := s.Submit(ctx, false)
	require.NoError(t, err)
	assert.True(t, res.IsFirstAttempt)
	assert.Equal(t, 20, res.XPAwarded)
	assert.Equal(t, "Great work!", res.Message)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])

	again := session.New(session.Config{QuizID: id, Profile: session.Profile{StudentID: 7}, Oracle: client, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, again.Load(ctx))
	assert.Len(t, again.Attempts(), 1, "one attempt recorded")
}

func TestSubmitKeyReusedByAnotherStudent(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	submit := func(token string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/quizzes/"+itoa(id)+"/submit", strings.NewReader(`{"answers":{"1":"B"}}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "shared-key")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		return res
	}
	assert.Equal(t, http.StatusOK, submit(f.login(t, "sam", "s-pass")).StatusCode)
	assert.Equal(t, http.StatusOK, submit(f.login(t, "sam", "s-pass")).StatusCode, "same student replays")
	assert.Equal(t, http.StatusConflict, submit(f.login(t, "kim", "k-pass")).StatusCode)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
