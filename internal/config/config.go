package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Client configures the quiz-taking front-end.
type Client struct {
	APIURL   string
	APIToken string

	TokenURL     string
	ClientID     string
	ClientSecret string

	HTTPTimeout time.Duration

	ProgressDriver string // memory|sqlite|redis
	ProgressDSN    string
	RedisAddr      string
	ProgressTTL    time.Duration

	StudentID   int64
	StudentName string

	// ShuffleSeed pins retake layouts; 0 seeds from the clock.
	ShuffleSeed uint64
}

// Server configures the reference grading backend.
type Server struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string
	Accounts       []string // user:role:bcrypthash[:student_id]
	CORSOrigins    []string

	SiteID string
}

// Load reads a .env file when present. Real environment variables win.
func Load(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func ClientFromEnv() Client {
	return Client{
		APIURL:         envOr("QUIZ_API_URL", "http://localhost:8080"),
		APIToken:       os.Getenv("QUIZ_API_TOKEN"),
		TokenURL:       os.Getenv("QUIZ_TOKEN_URL"),
		ClientID:       os.Getenv("QUIZ_CLIENT_ID"),
		ClientSecret:   os.Getenv("QUIZ_CLIENT_SECRET"),
		HTTPTimeout:    envDuration("QUIZ_HTTP_TIMEOUT", 15*time.Second),
		ProgressDriver: envOr("PROGRESS_DRIVER", "sqlite"),
		ProgressDSN:    envOr("PROGRESS_DSN", "file:quiz_progress.db?cache=shared&mode=rwc"),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		ProgressTTL:    envDuration("PROGRESS_TTL", 0),
		StudentID:      int64(envUint("QUIZ_STUDENT_ID", 0)),
		StudentName:    os.Getenv("QUIZ_STUDENT_NAME"),
		ShuffleSeed:    envUint("SHUFFLE_SEED", 0),
	}
}

func ServerFromEnv() Server {
	return Server{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		Accounts:       csvOr("ACCOUNTS", ""),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
		SiteID:         envOr("SITE_ID", "local"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return d
	}
	return def
}

func envUint(k string, def uint64) uint64 {
	if n, err := strconv.ParseUint(os.Getenv(k), 10, 64); err == nil {
		return n
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
