package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/nexus-academy/quizengine/internal/auth/middleware"
	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/quizstore"
	"github.com/nexus-academy/quizengine/internal/rbac"
)

// MountQuizzes registers the quiz API under r. Callers install
// authentication first; permissions are enforced here.
func MountQuizzes(r chi.Router, svc *quizstore.Service) {
	r.With(rbac.Require("quiz:view")).
		Get("/", ListQuizzesHandler(svc))
	r.With(rbac.Require("quiz:create")).
		Post("/", CreateQuizHandler(svc))

	r.Route("/{quizID}", func(qr chi.Router) {
		qr.With(rbac.Require("quiz:view"), rbac.RequireOwnerOr("attempt:view-all", ownsStudentParam)).
			Get("/", GetQuizHandler(svc))
		qr.With(rbac.Require("quiz:submit")).
			Post("/submit", SubmitQuizHandler(svc))
		qr.With(rbac.RequireOwnerOr("attempt:view-all", ownsStudentParam)).
			Get("/review", ReviewHandler(svc))
	})
}

// ownsStudentParam: the caller is the student named by ?student_id=, or no
// student is named at all.
func ownsStudentParam(r *http.Request) bool {
	raw := r.URL.Query().Get("student_id")
	if raw == "" {
		return true
	}
	sid := authmw.StudentIDFromContext(r.Context())
	return sid > 0 && raw == strconv.FormatInt(sid, 10)
}

func ListQuizzesHandler(svc *quizstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := studentParam(w, r)
		if !ok {
			return
		}
		if sid == 0 {
			sid = authmw.StudentIDFromContext(r.Context())
		}
		list, err := svc.Store().ListQuizzes(r.Context(), sid)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeOK(w, http.StatusOK, list)
	}
}

func GetQuizHandler(svc *quizstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := quizParam(w, r)
		if !ok {
			return
		}
		sid, ok := studentParam(w, r)
		if !ok {
			return
		}
		q, err := svc.QuizForStudent(r.Context(), id, sid)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeOK(w, http.StatusOK, q)
	}
}

func SubmitQuizHandler(svc *quizstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := quizParam(w, r)
		if !ok {
			return
		}
		var req struct {
			StudentID int64             `json:"student_id"`
			Answers   map[string]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		if own := authmw.StudentIDFromContext(r.Context()); own > 0 {
			if req.StudentID == 0 {
				req.StudentID = own
			}
			if req.StudentID != own {
				writeErr(w, http.StatusForbidden, "cannot submit for another student")
				return
			}
		}
		if req.StudentID <= 0 {
			writeErr(w, http.StatusBadRequest, "student_id required")
			return
		}
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		res, err := svc.Submit(r.Context(), id, req.StudentID, req.Answers, key)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeOK(w, http.StatusOK, res)
	}
}

func ReviewHandler(svc *quizstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := quizParam(w, r)
		if !ok {
			return
		}
		sid, ok := studentParam(w, r)
		if !ok {
			return
		}
		if sid == 0 {
			sid = authmw.StudentIDFromContext(r.Context())
		}
		data, err := svc.Review(r.Context(), id, sid)
		if errors.Is(err, quizstore.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "No attempts found")
			return
		}
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeOK(w, http.StatusOK, data)
	}
}

func CreateQuizHandler(svc *quizstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if err := validateQuiz(q); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := svc.Store().PutQuiz(r.Context(), q)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeOK(w, http.StatusCreated, map[string]any{"id": saved.ID, "question_count": len(saved.Questions)})
	}
}

func validateQuiz(q quiz.Quiz) error {
	if strings.TrimSpace(q.Title) == "" {
		return errors.New("title required")
	}
	if len(q.Questions) == 0 {
		return errors.New("at least one question required")
	}
	for i, x := range q.Questions {
		if strings.TrimSpace(x.Text) == "" {
			return errors.New("question " + strconv.Itoa(i+1) + ": text required")
		}
		if len(x.Populated()) == 0 {
			return errors.New("question " + strconv.Itoa(i+1) + ": no options")
		}
		if len(x.CorrectAnswers) == 0 {
			return errors.New("question " + strconv.Itoa(i+1) + ": correct answer required")
		}
		for _, l := range x.CorrectAnswers {
			if !l.Valid() || x.OptionText(l) == "" {
				return errors.New("question " + strconv.Itoa(i+1) + ": key " + string(l) + " is not an option")
			}
		}
	}
	return nil
}

func quizParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "bad quiz id")
		return 0, false
	}
	return id, true
}

func studentParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("student_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		writeErr(w, http.StatusBadRequest, "bad student_id")
		return 0, false
	}
	return id, true
}

func writeOK(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeErr(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quizstore.ErrNotFound):
		writeErr(w, http.StatusNotFound, "Quiz not found")
	case errors.Is(err, quizstore.ErrBadAnswer):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, quizstore.ErrKeyConflict):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		log.Printf("quiz api: %v", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
