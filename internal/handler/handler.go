package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appI18n "github.com/pavelanni/quizexam/internal/i18n"
	"github.com/pavelanni/quizexam/internal/model"
	"github.com/pavelanni/quizexam/internal/store"
)

// Handler serves the quiz bank REST API.
type Handler struct {
	store    *store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a new Handler.
func New(s *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: s, validate: newValidator(), logger: logger}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/quiz-banks", func(r chi.Router) {
		r.Get("/", h.handleListBanks)
		r.Post("/", h.handleCreateBank)
		r.Get("/search", h.handleSearchBanks)
		r.Get("/{id}", h.handleGetBank)
		r.Put("/{id}", h.handleUpdateBank)
		r.Delete("/{id}", h.handleDeleteBank)
	})
	r.Route("/api/quiz-questions", func(r chi.Router) {
		r.Post("/", h.handleCreateQuestion)
		r.Get("/search", h.handleSearchQuestions)
		r.Get("/bank/{bankID}", h.handleQuestionsForBank)
		r.Get("/{id}", h.handleGetQuestion)
		r.Put("/{id}", h.handleUpdateQuestion)
		r.Delete("/{id}", h.handleDeleteQuestion)
	})
}

func writeResult[T any](w http.ResponseWriter, code int, message string, data T) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(model.Result[T]{Code: code, Message: message, Data: data})
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request, data any) {
	writeResult(w, model.CodeSuccess, appI18n.T(r.Context(), "Success"), data)
}

func (h *Handler) fail(w http.ResponseWriter, code int, message string) {
	writeResult[any](w, code, message, nil)
}

// storeError maps a store error to an envelope. notFoundID names the
// translation used for sql.ErrNoRows.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFoundID string) {
	if errors.Is(err, sql.ErrNoRows) {
		h.fail(w, model.CodeNotFound, appI18n.T(r.Context(), notFoundID))
		return
	}
	h.logger.Error("store error", "method", r.Method, "path", r.URL.Path, "error", err)
	h.fail(w, model.CodeServerError, appI18n.T(r.Context(), "InternalError"))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, model.CodeBadRequest, appI18n.T(r.Context(), "InvalidID"))
		return 0, false
	}
	return id, true
}

// decode reads and validates a JSON body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("invalid request body", "path", r.URL.Path, "error", err)
		h.fail(w, model.CodeBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.fail(w, model.CodeBadRequest, appI18n.Td(r.Context(), "ValidationFailed",
			map[string]any{"Details": describeValidation(err)}))
		return false
	}
	return true
}

// checkAnswer rejects a key that holds no token once adapted to its type.
func (h *Handler) checkAnswer(w http.ResponseWriter, r *http.Request, key model.AnswerKey) bool {
	if key.IsEmpty() {
		h.fail(w, model.CodeBadRequest, appI18n.Td(r.Context(), "ValidationFailed",
			map[string]any{"Details": "answer: required"}))
		return false
	}
	return true
}

func (h *Handler) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.ListBanks()
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.ok(w, r, banks)
}

func (h *Handler) handleSearchBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.SearchBanks(model.QuizBankSearch{Name: r.URL.Query().Get("name")})
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.ok(w, r, banks)
}

func (h *Handler) handleGetBank(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	bank, err := h.store.GetBank(id)
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.ok(w, r, bank)
}

func (h *Handler) handleCreateBank(w http.ResponseWriter, r *http.Request) {
	var in model.QuizBankCreate
	if !h.decode(w, r, &in) {
		return
	}
	bank, err := h.store.CreateBank(in)
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.logger.Info("created quiz bank", "id", bank.ID, "name", bank.Name)
	h.ok(w, r, bank)
}

func (h *Handler) handleUpdateBank(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in model.QuizBankUpdate
	if !h.decode(w, r, &in) {
		return
	}
	bank, err := h.store.UpdateBank(id, in)
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.ok(w, r, bank)
}

func (h *Handler) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteBank(id); err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.logger.Info("deleted quiz bank", "id", id)
	h.ok(w, r, true)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.store.GetQuestion(id)
	if err != nil {
		h.storeError(w, r, err, "QuestionNotFound")
		return
	}
	h.ok(w, r, q)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in model.QuestionCreate
	if !h.decode(w, r, &in) {
		return
	}
	if in.Answer = in.Answer.ForType(in.Type); !h.checkAnswer(w, r, in.Answer) {
		return
	}
	q, err := h.store.CreateQuestion(in)
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.logger.Info("created question", "id", q.ID, "bank_id", q.QuizBankID, "type", q.Type)
	h.ok(w, r, q)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in model.QuestionUpdate
	if !h.decode(w, r, &in) {
		return
	}
	if in.Answer = in.Answer.ForType(in.Type); !h.checkAnswer(w, r, in.Answer) {
		return
	}
	q, err := h.store.UpdateQuestion(id, in)
	if err != nil {
		h.storeError(w, r, err, "QuestionNotFound")
		return
	}
	h.ok(w, r, q)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		h.storeError(w, r, err, "QuestionNotFound")
		return
	}
	h.ok(w, r, true)
}

func (h *Handler) handleQuestionsForBank(w http.ResponseWriter, r *http.Request) {
	bankID, ok := h.pathID(w, r, "bankID")
	if !ok {
		return
	}
	if _, err := h.store.GetBank(bankID); err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	qs, err := h.store.QuestionsForBank(bankID)
	if err != nil {
		h.storeError(w, r, err, "BankNotFound")
		return
	}
	h.ok(w, r, qs)
}

func (h *Handler) handleSearchQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := model.QuestionSearch{
		Title: q.Get("title"),
		Type:  model.QuestionType(q.Get("type")),
	}
	if raw := q.Get("quizBankId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, model.CodeBadRequest, appI18n.T(r.Context(), "InvalidID"))
			return
		}
		search.QuizBankID = id
	}
	qs, err := h.store.SearchQuestions(search)
	if err != nil {
		h.storeError(w, r, err, "QuestionNotFound")
		return
	}
	h.ok(w, r, qs)
}
