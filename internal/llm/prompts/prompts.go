package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/quizexam/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 2000

// PromptVariant selects how much detail an explanation carries.
type PromptVariant string

const (
	// PromptBrief asks for a few sentences.
	PromptBrief PromptVariant = "brief"
	// PromptDetailed asks for a structured walkthrough.
	PromptDetailed PromptVariant = "detailed"
)

var validVariants = map[PromptVariant]bool{
	PromptBrief:    true,
	PromptDetailed: true,
}

var (
	loadOnce         sync.Once
	loadErr          error
	explainTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// ExplainData holds template data for explanation prompts.
type ExplainData struct {
	TypeLabel     string
	Title         string
	Content       string
	Options       []string
	CorrectAnswer string
	Answer        string
	Correct       bool
}

func load() error {
	loadOnce.Do(func() {
		explainTemplates, loadErr = parse(templateFS)
	})
	return loadErr
}

func parse(fsys fs.FS) (map[PromptVariant]*template.Template, error) {
	out := make(map[PromptVariant]*template.Template, len(validVariants))
	for _, v := range []PromptVariant{PromptBrief, PromptDetailed} {
		file := "templates/explain_" + string(v) + ".txt"
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read prompt file %s: %w", file, err)
		}
		tmpl, err := template.New(string(v)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", file, err)
		}
		out[v] = tmpl
	}
	return out, nil
}

// BuildExplainPrompt renders the explanation prompt for q.
func BuildExplainPrompt(variant PromptVariant, q model.Question, userAnswer string, correct bool) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := explainTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ExplainData{
		TypeLabel:     q.Type.Label(),
		Title:         q.Title,
		Content:       q.Content,
		Options:       optionLines(q.Options),
		CorrectAnswer: correctAnswer(q),
		Answer:        sanitizeAnswer(userAnswer),
		Correct:       correct,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func optionLines(options map[string]string) []string {
	labels := make([]string, 0, len(options))
	for l := range options {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = l + ". " + options[l]
	}
	return lines
}

func correctAnswer(q model.Question) string {
	if q.Type == model.Judgment {
		switch q.Answer.First() {
		case "A", "T":
			return "True"
		case "B", "F":
			return "False"
		}
	}
	if q.Answer.IsCollection() && q.Type != model.MultipleChoice {
		return strings.Join(q.Answer.Values(), " / ")
	}
	return q.Answer.String()
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
