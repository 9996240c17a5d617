package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	api "github.com/nexus-academy/quizengine/internal/api/http"
	auth "github.com/nexus-academy/quizengine/internal/auth/middleware"
	"github.com/nexus-academy/quizengine/internal/config"
	"github.com/nexus-academy/quizengine/internal/db"
	"github.com/nexus-academy/quizengine/internal/grading"
	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/quizstore"
	syncx "github.com/nexus-academy/quizengine/internal/sync"
)

func main() {
	seedFile := flag.String("seed", "", "JSON file with quizzes to load at startup")
	partial := flag.Bool("partial-multi", false, "award partial credit on multi-answer questions")
	flag.Parse()

	config.Load()
	cfg := config.ServerFromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN, db.SchemaOracle)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quizstore.NewSQLStore(dbh, db.Driver(cfg.DBDriver))

	grader := grading.NewDefaultGrader(grading.WithPartialMulti(*partial))
	svc := quizstore.NewService(store, grader, syncx.NewEventRepo(dbh), log.Default())
	svc.SiteID = cfg.SiteID

	if *seedFile != "" {
		n, err := seed(ctx, store, *seedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded %d quiz(zes) from %s", n, *seedFile)
	}

	// --- Auth ---
	accounts, err := auth.ParseAccounts(cfg.Accounts)
	if err != nil {
		log.Fatalf("accounts: %v", err)
	}
	if len(accounts) == 0 {
		log.Printf("warning: ACCOUNTS is empty; nobody can log in")
	}
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, accounts)

	r := api.NewRouter(svc, authSvc, api.RouterOptions{CORSOrigins: cfg.CORSOrigins})

	log.Printf("listening on %s (db=%s, site=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.SiteID)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// seed accepts either one quiz object or an array of them.
func seed(ctx context.Context, store quizstore.Store, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var many []quiz.Quiz
	if err := json.Unmarshal(raw, &many); err != nil {
		var one quiz.Quiz
		if err := json.Unmarshal(raw, &one); err != nil {
			return 0, err
		}
		many = []quiz.Quiz{one}
	}
	for _, q := range many {
		if _, err := store.PutQuiz(ctx, q); err != nil {
			return 0, err
		}
	}
	return len(many), nil
}
