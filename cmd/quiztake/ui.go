package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/nexus-academy/quizengine/internal/quiz"
	"github.com/nexus-academy/quizengine/internal/review"
	"github.com/nexus-academy/quizengine/internal/session"
)

// ui is a line-oriented front-end over one session.
type ui struct {
	s       *session.Session
	in      *bufio.Scanner
	out     io.Writer
	reviews review.Fetcher
	quizID  int64
	student int64
	text    review.TextOptions

	title, pick, warn, dim *color.Color
}

func newUI(s *session.Session, in io.Reader, out io.Writer, text review.TextOptions) *ui {
	u := &ui{
		s:     s,
		in:    bufio.NewScanner(in),
		out:   out,
		text:  text,
		title: color.New(color.Bold, color.FgCyan),
		pick:  color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow),
		dim:   color.New(color.Faint),
	}
	if text.NoColor {
		for _, c := range []*color.Color{u.title, u.pick, u.warn, u.dim} {
			c.DisableColor()
		}
	}
	return u
}

var errQuit = errors.New("quit")

// run drives the session until the student quits or input ends.
func (u *ui) run(ctx context.Context) error {
	if err := u.s.Load(ctx); err != nil {
		return err
	}
	if name := u.s.Profile().Name; name != "" {
		fmt.Fprintf(u.out, "Hi %s!\n", name)
	}
	for {
		var err error
		switch u.s.State() {
		case session.History:
			err = u.history(ctx)
		case session.Taking:
			err = u.taking(ctx)
		case session.Results:
			err = u.results()
		case session.LoadFailed:
			if !u.confirm(fmt.Sprintf("Could not load quiz: %v. Retry?", u.s.LastError())) {
				return u.s.LastError()
			}
			err = u.s.Load(ctx)
			if err != nil {
				continue
			}
		default:
			return fmt.Errorf("unexpected state %s", u.s.State())
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			u.warn.Fprintln(u.out, err)
		}
	}
}

func (u *ui) history(ctx context.Context) error {
	qz := u.s.Quiz()
	u.title.Fprintf(u.out, "\n%s\n", qz.Title)
	attempts := u.s.Attempts()
	for _, a := range attempts {
		fmt.Fprintf(u.out, "  Attempt %d: %d/%d (%d%%)", a.AttemptNumber, a.Score, a.Total, a.Percent())
		if a.XPAwarded > 0 {
			fmt.Fprintf(u.out, "  +%d XP", a.XPAwarded)
		}
		fmt.Fprintln(u.out)
	}
	if best, ok := quiz.BestScore(attempts); ok {
		fmt.Fprintf(u.out, "Best score: %d/%d\n", best, len(qz.Questions))
	}
	line, err := u.prompt("[s]tart retake, [v]iew last review, [q]uit")
	if err != nil {
		return err
	}
	switch line {
	case "s", "start":
		return u.s.Start()
	case "v", "review":
		return u.remoteReview(ctx)
	case "q", "quit":
		return errQuit
	}
	return nil
}

func (u *ui) remoteReview(ctx context.Context) error {
	if u.reviews == nil {
		return errors.New("review is not available")
	}
	rv, err := review.Load(ctx, u.reviews, u.quizID, u.student)
	if err != nil {
		return err
	}
	return review.WriteText(u.out, rv, u.text)
}

func (u *ui) taking(ctx context.Context) error {
	qp, ok := u.s.Current()
	if !ok {
		return errors.New("no current question")
	}
	cur, n := u.s.Cursor(), u.s.Plan().Len()
	u.dim.Fprintf(u.out, "\nQuestion %d of %d  (%d%% answered)\n", cur+1, n, u.s.PercentComplete())
	fmt.Fprintln(u.out, qp.Question.Text)
	sel, _ := u.s.SelectedDisplay(cur)
	for _, o := range qp.Options {
		if o.Display == sel {
			u.pick.Fprintf(u.out, "> %s. %s\n", o.Display, o.Text)
		} else {
			fmt.Fprintf(u.out, "  %s. %s\n", o.Display, o.Text)
		}
	}

	line, err := u.prompt("letter to answer, [n]ext, [p]revious, [g N] go to, [s]ubmit, [q]uit")
	if err != nil {
		return err
	}
	switch {
	case line == "n" || line == "next":
		return u.s.Next()
	case line == "p" || line == "prev":
		return u.s.Previous()
	case strings.HasPrefix(line, "g "):
		i, err := strconv.Atoi(strings.TrimSpace(line[2:]))
		if err != nil {
			return fmt.Errorf("go to: %q is not a number", line[2:])
		}
		return u.s.JumpTo(i - 1)
	case line == "s" || line == "submit":
		return u.submit(ctx)
	case line == "q" || line == "quit":
		return errQuit
	}
	l, err := quiz.ParseLetter(line)
	if err != nil {
		return err
	}
	if err := u.s.Select(l); err != nil {
		return err
	}
	if cur < n-1 {
		return u.s.Next()
	}
	return nil
}

func (u *ui) submit(ctx context.Context) error {
	_, err := u.s.Submit(ctx, false)
	var unanswered *session.UnansweredError
	if errors.As(err, &unanswered) {
		if !u.confirm(fmt.Sprintf("%s. Submit anyway?", unanswered.Error())) {
			return nil
		}
		_, err = u.s.Submit(ctx, true)
	}
	var failed *session.SubmitError
	if errors.As(err, &failed) {
		return fmt.Errorf("%w (your answers are kept, submit again to retry)", err)
	}
	return err
}

func (u *ui) results() error {
	res, _ := u.s.Result()
	u.title.Fprintf(u.out, "\nScore: %d/%d (%d%%)\n", res.Score, res.Total, quiz.Percent(res.Score, res.Total))
	if res.Message != "" {
		fmt.Fprintln(u.out, res.Message)
	}
	if res.XPAwarded > 0 {
		u.pick.Fprintf(u.out, "+%d XP\n", res.XPAwarded)
	}
	if res.BestScore != nil {
		fmt.Fprintf(u.out, "Best score: %d/%d\n", *res.BestScore, res.Total)
	}
	line, err := u.prompt("[v]iew review, [r]etake, [q]uit")
	if err != nil {
		return err
	}
	switch line {
	case "v", "review":
		rv, err := u.s.Review()
		if err != nil {
			return err
		}
		return review.WriteText(u.out, rv, u.text)
	case "r", "retake":
		return u.s.Retake()
	case "q", "quit":
		return errQuit
	}
	return nil
}

func (u *ui) prompt(hint string) (string, error) {
	u.dim.Fprintf(u.out, "%s\n> ", hint)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.ToLower(strings.TrimSpace(u.in.Text())), nil
}

func (u *ui) confirm(q string) bool {
	line, err := u.prompt(q + " [y/N]")
	return err == nil && (line == "y" || line == "yes")
}
