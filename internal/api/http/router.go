package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/nexus-academy/quizengine/internal/auth/middleware"
	"github.com/nexus-academy/quizengine/internal/quizstore"
)

type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// Quiet drops the request logger (tests).
	Quiet bool
}

// NewRouter builds the grading backend's HTTP surface.
func NewRouter(svc *quizstore.Service, authSvc *authmw.AuthService, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Post("/auth/login", authmw.LoginHandler(authSvc))
	r.Post("/auth/token", authmw.TokenHandler(authSvc))

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Route("/api/quizzes", func(qr chi.Router) {
			MountQuizzes(qr, svc)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
