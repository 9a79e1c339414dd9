package model

import (
	"time"
)

// QuestionType determines both the shape of a question's answer key and how
// a user answer is compared against it.
type QuestionType string

const (
	// SingleChoice has one correct option label.
	SingleChoice QuestionType = "SINGLE_CHOICE"
	// MultipleChoice has a set of correct option labels.
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	// Judgment is a true/false question.
	Judgment QuestionType = "JUDGMENT"
	// FillBlank accepts one of several exact phrasings.
	FillBlank QuestionType = "FILL_BLANK"
	// ShortAnswer accepts one of several exact phrasings.
	ShortAnswer QuestionType = "SHORT_ANSWER"
)

var questionTypes = map[QuestionType]string{
	SingleChoice:   "Single choice",
	MultipleChoice: "Multiple choice",
	Judgment:       "True/false",
	FillBlank:      "Fill in the blank",
	ShortAnswer:    "Short answer",
}

// QuestionTypes returns all known question types in display order.
func QuestionTypes() []QuestionType {
	return []QuestionType{SingleChoice, MultipleChoice, Judgment, FillBlank, ShortAnswer}
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	_, ok := questionTypes[t]
	return ok
}

// Label returns a human-readable name for the type.
func (t QuestionType) Label() string {
	if l, ok := questionTypes[t]; ok {
		return l
	}
	return "Unknown"
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Label returns a human-readable difficulty name.
func (d Difficulty) Label() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	default:
		return "Unknown"
	}
}

// QuizBank is a named collection of questions.
type QuizBank struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Question is a single quiz question together with its answer key.
type Question struct {
	ID         int64             `json:"id"`
	QuizBankID int64             `json:"quizBankId"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Type       QuestionType      `json:"type"`
	Options    map[string]string `json:"options,omitempty"`
	Answer     AnswerKey         `json:"answer"`
	Analysis   string            `json:"analysis,omitempty"`
	Difficulty Difficulty        `json:"difficulty,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Response codes carried in the Result envelope.
const (
	CodeSuccess      = 200
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// Result is the envelope every bank service response is wrapped in.
type Result[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK reports whether the envelope signals success.
func (r Result[T]) OK() bool {
	return r.Code == CodeSuccess
}

// QuizBankCreate is the payload for creating a bank.
type QuizBankCreate struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// QuizBankUpdate is the payload for updating a bank.
type QuizBankUpdate struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// QuizBankSearch filters banks by name keyword.
type QuizBankSearch struct {
	Name string `json:"name,omitempty"`
}

// QuestionCreate is the payload for creating a question.
type QuestionCreate struct {
	QuizBankID int64             `json:"quizBankId" validate:"required,gt=0"`
	Title      string            `json:"title" validate:"required,max=500"`
	Content    string            `json:"content"`
	Type       QuestionType      `json:"type" validate:"required,question_type"`
	Options    map[string]string `json:"options,omitempty"`
	Answer     AnswerKey         `json:"answer" validate:"required"`
	Analysis   string            `json:"analysis,omitempty"`
	Difficulty Difficulty        `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// QuestionUpdate is the payload for updating a question.
type QuestionUpdate struct {
	Title      string            `json:"title" validate:"required,max=500"`
	Content    string            `json:"content"`
	Type       QuestionType      `json:"type" validate:"required,question_type"`
	Options    map[string]string `json:"options,omitempty"`
	Answer     AnswerKey         `json:"answer" validate:"required"`
	Analysis   string            `json:"analysis,omitempty"`
	Difficulty Difficulty        `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// QuestionSearch filters questions. Zero values mean no filtering on that field.
type QuestionSearch struct {
	QuizBankID int64        `json:"quizBankId,omitempty"`
	Title      string       `json:"title,omitempty"`
	Type       QuestionType `json:"type,omitempty"`
}

// QuestionImport is used for loading questions from JSON files.
type QuestionImport struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Type       QuestionType      `json:"type"`
	Options    map[string]string `json:"options,omitempty"`
	Answer     AnswerKey         `json:"answer"`
	Analysis   string            `json:"analysis,omitempty"`
	Difficulty Difficulty        `json:"difficulty,omitempty"`
}

// AnswerResult records whether an answer was submitted and its verdict.
type AnswerResult struct {
	Evaluated bool `json:"evaluated"`
	Correct   bool `json:"correct"`
}

// ExamConfig holds runtime parameters of the terminal exam, set via CLI flags.
type ExamConfig struct {
	BankID        int64
	Lang          string
	Explain       bool   // ask the LLM to explain questions without analysis
	PromptVariant string // explanation prompt variant (brief, detailed)
}
