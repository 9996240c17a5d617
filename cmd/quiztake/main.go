package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexus-academy/quizengine/internal/config"
	"github.com/nexus-academy/quizengine/internal/db"
	"github.com/nexus-academy/quizengine/internal/oracle"
	"github.com/nexus-academy/quizengine/internal/progress"
	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/review"
	"github.com/nexus-academy/quizengine/internal/session"
)

func main() {
	quizID := flag.Int64("quiz", 0, "quiz id")
	reviewOnly := flag.Bool("review", false, "print the review of the latest attempt and exit")
	showAll := flag.Bool("all", false, "expand correctly answered questions in reviews")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	config.Load()
	cfg := config.ClientFromEnv()
	if *quizID <= 0 {
		log.Fatal("-quiz is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := oracle.New(oracle.Config{
		BaseURL:      cfg.APIURL,
		Token:        cfg.APIToken,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      cfg.HTTPTimeout,
	})
	text := review.TextOptions{ShowAll: *showAll, NoColor: *noColor}

	if *reviewOnly {
		rv, err := review.Load(ctx, client, *quizID, cfg.StudentID)
		if err != nil {
			log.Fatalf("review: %v", err)
		}
		if err := review.WriteText(os.Stdout, rv, text); err != nil {
			log.Fatal(err)
		}
		return
	}

	kv, closeKV, err := openProgress(ctx, cfg)
	if err != nil {
		log.Fatalf("progress store: %v", err)
	}
	defer closeKV()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	src := quiz.NewTimeSource()
	if cfg.ShuffleSeed != 0 {
		src = quiz.NewSource(cfg.ShuffleSeed)
	}
	s := session.New(session.Config{
		QuizID:   *quizID,
		Profile:  session.Profile{StudentID: cfg.StudentID, Name: cfg.StudentName},
		Oracle:   client,
		Progress: progress.NewStore(kv, logger),
		Source:   src,
		Logger:   logger,
	})

	u := newUI(s, os.Stdin, os.Stdout, text)
	u.reviews = client
	u.quizID = *quizID
	u.student = cfg.StudentID
	if err := u.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openProgress picks the key/value backend for saved answers.
func openProgress(ctx context.Context, cfg config.Client) (progress.KV, func(), error) {
	switch cfg.ProgressDriver {
	case "memory":
		return progress.NewMemoryKV(), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return progress.NewRedisKV(rdb, cfg.ProgressTTL), func() { _ = rdb.Close() }, nil
	case "sqlite", "postgres":
		dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dbh, err := db.Open(dctx, db.Driver(cfg.ProgressDriver), cfg.ProgressDSN, db.SchemaLocal)
		if err != nil {
			return nil, nil, err
		}
		return progress.NewSQLKV(dbh), func() { _ = dbh.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown PROGRESS_DRIVER %q", cfg.ProgressDriver)
	}
}
