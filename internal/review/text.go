package review

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type TextOptions struct {
	// ShowAll expands correctly answered items too.
	ShowAll bool
	NoColor bool
}

type palette struct {
	good, bad, dim, bold *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		good: color.New(color.FgGreen, color.Bold),
		bad:  color.New(color.FgRed),
		dim:  color.New(color.Faint),
		bold: color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.good, p.bad, p.dim, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

// WriteText renders a review for a terminal. Wrong and unanswered items are
// always expanded; correct ones only with ShowAll.
func WriteText(w io.Writer, rv Review, opts TextOptions) error {
	p := newPalette(opts.NoColor)
	ew := &errWriter{w: w}

	if rv.Title != "" {
		p.bold.Fprintln(ew, rv.Title)
	}
	fmt.Fprintf(ew, "Score: %d/%d (%d%%)\n", rv.Score, rv.Total, rv.Percent)
	fmt.Fprintf(ew, "Correct: %d  Wrong: %d  Not answered: %d\n", rv.Correct(), rv.Wrong(), rv.Unanswered())
	if rv.XPAwarded > 0 {
		p.good.Fprintf(ew, "+%d XP earned\n", rv.XPAwarded)
	} else {
		p.dim.Fprintln(ew, "No XP for this attempt")
	}
	if rv.BestScore != nil {
		fmt.Fprintf(ew, "Best score: %d/%d\n", *rv.BestScore, rv.Total)
	}
	if rv.Message != "" {
		fmt.Fprintln(ew, rv.Message)
	}

	for _, it := range rv.Items {
		fmt.Fprintln(ew)
		switch it.Status {
		case Correct:
			p.good.Fprint(ew, "✓ ")
		case Incorrect:
			p.bad.Fprint(ew, "✗ ")
		default:
			p.dim.Fprint(ew, "- ")
		}
		fmt.Fprintf(ew, "Q%d. %s\n", it.Number, it.Text)
		if it.Status == Correct && !opts.ShowAll {
			continue
		}
		for _, o := range it.Options {
			line := fmt.Sprintf("   %s) %s", o.Letter, o.Text)
			if o.Note != "" {
				line += "  [" + o.Note + "]"
			}
			switch o.Mark {
			case MarkCorrect:
				p.good.Fprintln(ew, line)
			case MarkWrongPick:
				p.bad.Fprintln(ew, line)
			default:
				fmt.Fprintln(ew, line)
			}
		}
		if it.Status == NotAnswered {
			p.dim.Fprintln(ew, "   Not answered")
		}
		if ex := strings.TrimSpace(it.Explanation); ex != "" {
			p.dim.Fprintf(ew, "   Tip: %s\n", ex)
		}
	}
	return ew.err
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(b)
	e.err = err
	return n, err
}
