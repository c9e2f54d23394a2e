package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/historyclient"
	"github.com/enem-practice/backend/internal/models"
	"github.com/enem-practice/backend/internal/practice"
	"github.com/enem-practice/backend/internal/questions"
)

var (
	correctColor = color.New(color.FgGreen, color.Bold)
	wrongColor   = color.New(color.FgRed, color.Bold)
	titleColor   = color.New(color.FgCyan, color.Bold)
	hintColor    = color.New(color.FgHiBlack)
)

const help = "letter = select, enter = check, n/p = next/prev, g YEAR-INDEX = go to, l [YEAR] [PAGE] = list, y = exam years, r = retry, s = stats, clear = clear history, q = quit"

// pageLinks is how many page numbers the listing navigator shows.
const pageLinks = 5

// statsSource serves aggregated history computed by the server.
type statsSource interface {
	Stats(ctx context.Context) (*models.HistoryStats, error)
}

type app struct {
	source questions.Source
	state  *historyclient.State
	remote statsSource
	filter questions.Filter
	in     io.Reader
	out    io.Writer
	now    func() time.Time
}

func (a *app) run(ctx context.Context, startID string) error {
	if _, _, err := questions.ParseQuestionID(startID); err != nil {
		return err
	}

	scanner := bufio.NewScanner(a.in)
	currentID := startID
	var session *practice.Session

	load := func(id string) error {
		year, index, err := questions.ParseQuestionID(id)
		if err != nil {
			return err
		}
		q, err := a.source.GetQuestion(ctx, year, index)
		if err != nil {
			return err
		}
		currentID = id
		session = practice.NewSession(*q, a.state)
		a.render(session)
		return nil
	}

	if err := load(currentID); err != nil {
		return fmt.Errorf("load %s: %w", currentID, err)
	}
	hintColor.Fprintln(a.out, help)

	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch strings.ToLower(cmd) {
		case "q", "quit", "exit":
			return nil
		case "":
			a.check(ctx, session)
		case "n":
			next, _ := questions.NextQuestionID(currentID)
			a.reportLoad(next, load(next))
		case "p":
			prev, ok := questions.PrevQuestionID(currentID)
			if !ok {
				hintColor.Fprintln(a.out, "already at the first question")
				continue
			}
			a.reportLoad(prev, load(prev))
		case "g":
			a.reportLoad(arg, load(strings.TrimSpace(arg)))
		case "r":
			if err := session.Reset(); err != nil {
				fmt.Fprintln(a.out, err)
			}
		case "l":
			year, _, _ := questions.ParseQuestionID(currentID)
			a.list(ctx, arg, year)
		case "y":
			a.years(ctx)
		case "s":
			a.stats(ctx)
		case "clear":
			a.clear(ctx)
		case "?", "h", "help":
			hintColor.Fprintln(a.out, help)
		default:
			if err := session.Select(cmd); err != nil {
				fmt.Fprintln(a.out, err)
				continue
			}
			fmt.Fprintf(a.out, "selected %s\n", session.Selection())
		}
	}
}

func (a *app) render(s *practice.Session) {
	q := s.Question()
	titleColor.Fprintf(a.out, "\n%s (%s)\n", q.Title, s.QuestionID())
	if q.Discipline != "" {
		hintColor.Fprintln(a.out, q.Discipline)
	}
	if q.Context != "" {
		fmt.Fprintln(a.out, q.Context)
	}
	if q.AlternativesIntroduction != "" {
		fmt.Fprintln(a.out, q.AlternativesIntroduction)
	}
	for _, alt := range q.Alternatives {
		fmt.Fprintf(a.out, "  %s) %s\n", alt.Letter, alt.Text)
	}
	if res, ok := s.Result(); ok {
		hintColor.Fprintln(a.out, "answered before:")
		a.printResult(res)
	}
}

func (a *app) check(ctx context.Context, s *practice.Session) {
	res, err := s.Check(ctx)
	switch {
	case errors.Is(err, practice.ErrNoSelection):
		fmt.Fprintln(a.out, "pick an alternative first")
		return
	case errors.Is(err, apperr.ErrUnauthenticated):
		wrongColor.Fprintln(a.out, "session expired, answer not saved; sign in again")
		return
	case err != nil:
		wrongColor.Fprintf(a.out, "could not save answer: %v\n", err)
		return
	}
	a.printResult(res)
}

func (a *app) printResult(res practice.Result) {
	if res.IsCorrect {
		correctColor.Fprintf(a.out, "correct! %s\n", res.Selected)
		return
	}
	wrongColor.Fprintf(a.out, "wrong: you chose %s, answer is %s\n", res.Selected, res.Correct)
}

func (a *app) reportLoad(id string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		fmt.Fprintf(a.out, "question %s not found\n", id)
		return
	}
	wrongColor.Fprintf(a.out, "could not load %s: %v\n", id, err)
}

// list prints one listing page of an exam. arg is "[YEAR] [PAGE]"; the year
// defaults to the current question's and out-of-range pages are clamped.
func (a *app) list(ctx context.Context, arg string, year int) {
	page := 1
	fields := strings.Fields(arg)
	if len(fields) > 2 {
		fmt.Fprintln(a.out, "usage: l [YEAR] [PAGE]")
		return
	}
	if len(fields) > 0 {
		y, err := strconv.Atoi(fields[0])
		if err != nil || y <= 0 {
			fmt.Fprintln(a.out, "usage: l [YEAR] [PAGE]")
			return
		}
		year = y
	}
	if len(fields) > 1 {
		p, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintln(a.out, "usage: l [YEAR] [PAGE]")
			return
		}
		page = p
	}
	if page < 1 {
		page = 1
	}

	res, err := a.fetchPage(ctx, year, page)
	if err != nil {
		wrongColor.Fprintf(a.out, "could not list %d: %v\n", year, err)
		return
	}
	totalPages := questions.TotalPages(res.Metadata.Total, questions.DefaultPageSize)
	if clamped := questions.ClampPage(page, totalPages); clamped != page {
		page = clamped
		if res, err = a.fetchPage(ctx, year, page); err != nil {
			wrongColor.Fprintf(a.out, "could not list %d: %v\n", year, err)
			return
		}
	}

	titleColor.Fprintf(a.out, "\nENEM %d, page %d of %d\n", year, page, max(totalPages, 1))
	shown := a.filter.Apply(res.Questions)
	for _, q := range shown {
		fmt.Fprintf(a.out, "  %-8s %s", questions.QuestionID(q.Year, q.Index), q.Title)
		if q.Discipline != "" {
			hintColor.Fprintf(a.out, " [%s]", q.Discipline)
		}
		fmt.Fprintln(a.out)
	}
	if len(shown) == 0 {
		hintColor.Fprintln(a.out, "no questions on this page")
	}

	links := make([]string, 0, pageLinks)
	for _, p := range questions.PageWindow(page, totalPages, pageLinks) {
		if p == page {
			links = append(links, "["+strconv.Itoa(p)+"]")
			continue
		}
		links = append(links, strconv.Itoa(p))
	}
	if len(links) > 1 {
		hintColor.Fprintf(a.out, "pages: %s\n", strings.Join(links, " "))
	}
}

func (a *app) fetchPage(ctx context.Context, year, page int) (*models.QuestionPage, error) {
	offset := questions.PageOffset(page, questions.DefaultPageSize)
	return a.source.ListQuestions(ctx, year, questions.DefaultPageSize, offset)
}

// years prints the available exams, falling back to the built-in range.
func (a *app) years(ctx context.Context) {
	exams, err := a.source.ListExams(ctx)
	if err != nil || len(exams) == 0 {
		exams = questions.DefaultYears()
	}
	years := questions.Years(exams)
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	fmt.Fprintf(a.out, "exams: %s\n", strings.Join(parts, " "))
}

// stats prefers the server's aggregate and falls back to the local snapshot.
func (a *app) stats(ctx context.Context) {
	if !a.state.Authenticated() {
		hintColor.Fprintln(a.out, "not signed in; history is not kept")
		return
	}
	st := a.state.Stats()
	if a.remote != nil {
		remote, err := a.remote.Stats(ctx)
		if err != nil {
			hintColor.Fprintf(a.out, "server stats unavailable, using local history: %v\n", err)
		} else {
			st = *remote
		}
	}
	fmt.Fprintf(a.out, "%d answered, %d correct (%d%%)\n", st.Total, st.Correct, st.CorrectPercentage)
	for _, y := range st.ByYear {
		fmt.Fprintf(a.out, "  %d: %d/%d\n", y.Year, y.Correct, y.Answered)
	}
	if snap := a.state.Snapshot(); len(snap) > 0 {
		hintColor.Fprintf(a.out, "last answer %s ago\n", a.now().Sub(snap[0].AnsweredAt).Round(time.Second))
	}
}

func (a *app) clear(ctx context.Context) {
	if !a.state.Authenticated() {
		hintColor.Fprintln(a.out, "not signed in; nothing to clear")
		return
	}
	if err := a.state.ClearHistory(ctx); err != nil {
		wrongColor.Fprintf(a.out, "could not clear history: %v\n", err)
		return
	}
	fmt.Fprintln(a.out, "history cleared")
}
