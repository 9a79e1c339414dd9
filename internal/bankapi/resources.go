package bankapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pavelanni/quizexam/internal/model"
)

// ListBanks returns every bank.
func (c *Client) ListBanks(ctx context.Context) ([]model.QuizBank, error) {
	return unwrap(call[[]model.QuizBank](ctx, c, http.MethodGet, "/api/quiz-banks", nil, nil))
}

// GetBank returns one bank.
func (c *Client) GetBank(ctx context.Context, id int64) (model.QuizBank, error) {
	return unwrap(c.GetBankInfo(ctx, id))
}

// CreateBank creates a bank.
func (c *Client) CreateBank(ctx context.Context, in model.QuizBankCreate) (model.QuizBank, error) {
	return unwrap(call[model.QuizBank](ctx, c, http.MethodPost, "/api/quiz-banks", nil, in))
}

// UpdateBank updates a bank.
func (c *Client) UpdateBank(ctx context.Context, id int64, in model.QuizBankUpdate) (model.QuizBank, error) {
	return unwrap(call[model.QuizBank](ctx, c, http.MethodPut, idPath("/api/quiz-banks", id), nil, in))
}

// DeleteBank deletes a bank and its questions.
func (c *Client) DeleteBank(ctx context.Context, id int64) error {
	_, err := unwrap(call[bool](ctx, c, http.MethodDelete, idPath("/api/quiz-banks", id), nil, nil))
	return err
}

// SearchBanks returns banks whose name contains search.Name.
func (c *Client) SearchBanks(ctx context.Context, search model.QuizBankSearch) ([]model.QuizBank, error) {
	q := url.Values{}
	if search.Name != "" {
		q.Set("name", search.Name)
	}
	return unwrap(call[[]model.QuizBank](ctx, c, http.MethodGet, "/api/quiz-banks/search", q, nil))
}

// GetQuestion returns one question.
func (c *Client) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	return unwrap(call[model.Question](ctx, c, http.MethodGet, idPath("/api/quiz-questions", id), nil, nil))
}

// CreateQuestion creates a question.
func (c *Client) CreateQuestion(ctx context.Context, in model.QuestionCreate) (model.Question, error) {
	return unwrap(call[model.Question](ctx, c, http.MethodPost, "/api/quiz-questions", nil, in))
}

// UpdateQuestion updates a question.
func (c *Client) UpdateQuestion(ctx context.Context, id int64, in model.QuestionUpdate) (model.Question, error) {
	return unwrap(call[model.Question](ctx, c, http.MethodPut, idPath("/api/quiz-questions", id), nil, in))
}

// DeleteQuestion deletes a question.
func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	_, err := unwrap(call[bool](ctx, c, http.MethodDelete, idPath("/api/quiz-questions", id), nil, nil))
	return err
}

// QuestionsForBank returns a bank's questions in order.
func (c *Client) QuestionsForBank(ctx context.Context, bankID int64) ([]model.Question, error) {
	qs, err := unwrap(c.GetQuestionsForBank(ctx, bankID))
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []model.Question{}
	}
	return qs, nil
}

// SearchQuestions returns questions matching search.
func (c *Client) SearchQuestions(ctx context.Context, search model.QuestionSearch) ([]model.Question, error) {
	q := url.Values{}
	if search.QuizBankID > 0 {
		q.Set("quizBankId", strconv.FormatInt(search.QuizBankID, 10))
	}
	if search.Title != "" {
		q.Set("title", search.Title)
	}
	if search.Type != "" {
		q.Set("type", string(search.Type))
	}
	return unwrap(call[[]model.Question](ctx, c, http.MethodGet, "/api/quiz-questions/search", q, nil))
}
