package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pavelanni/quizexam/internal/exam"
	appI18n "github.com/pavelanni/quizexam/internal/i18n"
	"github.com/pavelanni/quizexam/internal/model"
)

// explainer produces an explanation for a submitted question.
type explainer interface {
	Explain(ctx context.Context, q model.Question, userAnswer string, correct bool) (string, error)
}

// Arrow keys arrive as escape sequences in cooked terminal input.
var arrowKeys = []struct {
	seq string
	key exam.Key
}{
	{"\x1b[D", exam.KeyLeft},
	{"\x1b[C", exam.KeyRight},
	{"\x1bOD", exam.KeyLeft},
	{"\x1bOC", exam.KeyRight},
}

// splitKeys removes arrow sequences from line and returns them in order
// together with the remaining text. A line holding only "<" or ">" is a key.
func splitKeys(line string) ([]exam.Key, string) {
	var (
		keys []exam.Key
		rest strings.Builder
	)
	for i := 0; i < len(line); {
		matched := false
		for _, a := range arrowKeys {
			if strings.HasPrefix(line[i:], a.seq) {
				keys = append(keys, a.key)
				i += len(a.seq)
				matched = true
				break
			}
		}
		if !matched {
			rest.WriteByte(line[i])
			i++
		}
	}

	text := strings.TrimSpace(rest.String())
	switch text {
	case "<":
		return append(keys, exam.KeyLeft), ""
	case ">":
		return append(keys, exam.KeyRight), ""
	}
	return keys, text
}

// normalizeAnswer adapts typed input to the key format: option labels are
// upper case and a multiple-choice selection carries no spaces.
func normalizeAnswer(t model.QuestionType, text string) string {
	text = strings.TrimSpace(text)
	switch t {
	case model.SingleChoice, model.Judgment:
		return strings.ToUpper(text)
	case model.MultipleChoice:
		return strings.ToUpper(strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, text))
	}
	return text
}

type terminal struct {
	store   *exam.Store
	keys    *exam.KeyBus
	out     io.Writer
	explain explainer
	logger  *slog.Logger

	explanations map[int64]string
}

func newTerminal(store *exam.Store, out io.Writer, ex explainer) *terminal {
	return &terminal{
		store:        store,
		keys:         &exam.KeyBus{},
		out:          out,
		explain:      ex,
		logger:       slog.Default(),
		explanations: make(map[int64]string),
	}
}

// run loads the session, then processes input lines until EOF, ":q" or ctx
// is done. The screen is redrawn whenever the session changes.
func (t *terminal) run(ctx context.Context, in io.Reader) error {
	changed := make(chan struct{}, 1)
	cancelWatch := t.store.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancelWatch()

	t.store.Activate(t.keys)
	defer t.store.Close()

	t.say(appI18n.T(ctx, "Loading"))
	t.store.Initialize(ctx)
	select {
	case <-changed:
	default:
	}
	if n := len(t.store.Questions()); n > 0 {
		t.say(appI18n.Tp(ctx, "QuestionsAvailable", n))
	}
	t.render(ctx)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			t.render(ctx)
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if t.handleLine(ctx, line) {
				return nil
			}
		}
	}
}

// handleLine applies one line of input. It reports whether the user quit.
func (t *terminal) handleLine(ctx context.Context, line string) bool {
	keys, text := splitKeys(line)
	for _, k := range keys {
		t.keys.Publish(k)
	}
	if text == "" {
		return false
	}

	if !strings.HasPrefix(text, ":") {
		t.save(ctx, text)
		return false
	}

	cmd, arg, _ := strings.Cut(text[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q":
		return true
	case "h":
		t.say(appI18n.T(ctx, "Help"))
	case "a":
		t.save(ctx, arg)
	case "s":
		t.submit(ctx)
	case "g":
		n, err := strconv.Atoi(arg)
		if err != nil {
			t.say(appI18n.T(ctx, "UnknownCommand"))
			return false
		}
		t.store.SelectIndex(n - 1)
	default:
		t.say(appI18n.T(ctx, "UnknownCommand"))
	}
	return false
}

func (t *terminal) save(ctx context.Context, text string) {
	q, ok := t.store.Selected()
	if !ok {
		return
	}
	t.store.SaveAnswer(normalizeAnswer(q.Type, text))
	t.say(appI18n.T(ctx, "AnswerSaved"))
}

func (t *terminal) submit(ctx context.Context) {
	if !t.store.SubmitAnswer() {
		t.say(appI18n.T(ctx, "NothingToSubmit"))
		return
	}
	q, ok := t.store.Selected()
	if !ok || t.explain == nil || q.Analysis != "" {
		return
	}

	ectx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	text, err := t.explain.Explain(ectx, q, t.store.CurrentAnswer(), t.store.CurrentResult().Correct)
	if err != nil {
		t.logger.Warn("explanation failed", "question_id", q.ID, "error", err)
		return
	}
	t.explanations[q.ID] = text
}

func (t *terminal) say(msg string) {
	fmt.Fprintln(t.out, msg)
}

// render draws the current question and its state.
func (t *terminal) render(ctx context.Context) {
	var b strings.Builder
	b.WriteString("\n")

	title := appI18n.T(ctx, "AppTitle")
	if bank := t.store.Bank(); bank != nil {
		title += ": " + bank.Name
	}
	fmt.Fprintf(&b, "== %s ==\n", title)

	if msg := t.store.Err(); msg != "" {
		fmt.Fprintf(&b, "! %s\n", msg)
	}
	if t.store.Loading() {
		b.WriteString(appI18n.T(ctx, "Loading") + "\n")
		fmt.Fprint(t.out, b.String())
		return
	}

	questions := t.store.Questions()
	q, ok := t.store.Selected()
	if !ok {
		if len(questions) == 0 && t.store.Err() == "" && t.store.Bank() != nil {
			b.WriteString(appI18n.T(ctx, "NoQuestions") + "\n")
		}
		fmt.Fprint(t.out, b.String())
		return
	}

	b.WriteString(appI18n.Td(ctx, "QuestionN", map[string]any{
		"Index": t.store.SelectedIndex() + 1,
		"Total": len(questions),
	}) + "\n")
	fmt.Fprintf(&b, "[%s] %s\n", q.Type.Label(), q.Title)
	if q.Content != "" {
		b.WriteString(q.Content + "\n")
	}
	labels := make([]string, 0, len(q.Options))
	for l := range q.Options {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	for _, l := range labels {
		fmt.Fprintf(&b, "  %s. %s\n", l, q.Options[l])
	}

	answer := t.store.CurrentAnswer()
	if answer == "" {
		answer = appI18n.T(ctx, "NoAnswer")
	}
	fmt.Fprintf(&b, "%s: %s\n", appI18n.T(ctx, "YourAnswer"), answer)

	res := t.store.CurrentResult()
	switch {
	case !res.Evaluated:
		b.WriteString(appI18n.T(ctx, "NotSubmitted") + "\n")
	case res.Correct:
		b.WriteString(appI18n.T(ctx, "Correct") + "\n")
	default:
		fmt.Fprintf(&b, "%s %s: %s\n", appI18n.T(ctx, "Incorrect"), appI18n.T(ctx, "CorrectAnswer"), keyText(q))
	}
	if res.Evaluated {
		if q.Analysis != "" {
			fmt.Fprintf(&b, "%s: %s\n", appI18n.T(ctx, "Analysis"), q.Analysis)
		} else if ex, ok := t.explanations[q.ID]; ok {
			fmt.Fprintf(&b, "%s: %s\n", appI18n.T(ctx, "Explanation"), ex)
		}
	}

	evaluated := 0
	for _, r := range t.store.Results() {
		if r.Evaluated {
			evaluated++
		}
	}
	b.WriteString(appI18n.Tp(ctx, "AnsweredCount", evaluated) + "\n")
	fmt.Fprint(t.out, b.String())
}

func keyText(q model.Question) string {
	if q.Type == model.Judgment {
		switch q.Answer.First() {
		case "A", "T":
			return "T"
		case "B", "F":
			return "F"
		}
	}
	if q.Type == model.MultipleChoice {
		return q.Answer.String()
	}
	return strings.Join(q.Answer.Values(), " / ")
}
