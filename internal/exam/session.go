// Package exam holds the state of one exam attempt: the loaded questions, the
// selected question, the user's answers and their verdicts.
package exam

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pavelanni/quizexam/internal/evaluator"
	appI18n "github.com/pavelanni/quizexam/internal/i18n"
	"github.com/pavelanni/quizexam/internal/model"
)

// Source fetches bank data from the remote service. A returned error means the
// transport failed; otherwise the envelope code decides success.
type Source interface {
	GetBankInfo(ctx context.Context, bankID int64) (model.Result[model.QuizBank], error)
	GetQuestionsForBank(ctx context.Context, bankID int64) (model.Result[[]model.Question], error)
}

// EvaluateFunc produces a verdict for one submission.
type EvaluateFunc func(userAnswer string, key model.AnswerKey, questionType model.QuestionType) bool

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEvaluator replaces the answer evaluator.
func WithEvaluator(fn EvaluateFunc) Option {
	return func(s *Store) { s.evaluate = fn }
}

// Store owns the state of a single exam session. Only the store mutates its
// maps; callers read through accessors, which return copies.
type Store struct {
	id     string
	bankID int64
	source Source

	evaluate EvaluateFunc
	logger   *slog.Logger

	mu        sync.Mutex
	questions []model.Question
	bank      *model.QuizBank
	selected  int
	answers   map[int64]string
	results   map[int64]model.AnswerResult
	loading   bool
	errMsg    string
	closed    bool

	input *binding

	watchMu  sync.Mutex
	watchers map[int]func()
	nextWID  int
}

// New creates a session store bound to bankID. Nothing is fetched until
// Initialize is called.
func New(source Source, bankID int64, opts ...Option) *Store {
	s := &Store{
		id:       uuid.NewString(),
		bankID:   bankID,
		source:   source,
		evaluate: evaluator.Evaluate,
		logger:   slog.Default(),
		selected: -1,
		answers:  make(map[int64]string),
		results:  make(map[int64]model.AnswerResult),
		watchers: make(map[int]func()),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("session", s.id, "bank_id", bankID)
	return s
}

// ID returns the session identifier used in logs.
func (s *Store) ID() string { return s.id }

// BankID returns the bank the session is bound to.
func (s *Store) BankID() int64 { return s.bankID }

// Initialize loads bank info and then the question list. Failures are
// recorded in Err and never returned. Results arriving after Close, or after
// ctx is done, are dropped.
func (s *Store) Initialize(ctx context.Context) {
	if s.bankID <= 0 {
		s.update(func() {
			s.errMsg = appI18n.T(ctx, "BankIDInvalid")
			s.questions = nil
			s.selected = -1
		})
		s.logger.Warn("invalid bank id")
		return
	}

	s.fetchBankInfo(ctx)
	s.fetchQuestions(ctx)
}

func (s *Store) fetchBankInfo(ctx context.Context) {
	res, err := s.source.GetBankInfo(ctx, s.bankID)
	if !s.live(ctx) {
		return
	}
	switch {
	case err != nil:
		s.logger.Error("fetch bank info", "error", err)
		s.update(func() { s.errMsg = appI18n.T(ctx, "BankInfoNetworkError") })
	case !res.OK():
		s.logger.Warn("bank info rejected", "code", res.Code, "message", res.Message)
		s.update(func() { s.errMsg = messageOr(ctx, res.Message, "BankInfoFailed") })
	default:
		bank := res.Data
		s.update(func() { s.bank = &bank })
	}
}

func (s *Store) fetchQuestions(ctx context.Context) {
	s.update(func() {
		s.loading = true
		s.errMsg = ""
	})

	res, err := s.source.GetQuestionsForBank(ctx, s.bankID)
	if !s.live(ctx) {
		s.update(func() { s.loading = false })
		return
	}
	switch {
	case err != nil:
		s.logger.Error("fetch questions", "error", err)
		s.update(func() {
			s.errMsg = appI18n.T(ctx, "QuestionsNetworkError")
			s.questions = nil
			s.selected = -1
			s.loading = false
		})
	case !res.OK():
		s.logger.Warn("questions rejected", "code", res.Code, "message", res.Message)
		s.update(func() {
			s.errMsg = messageOr(ctx, res.Message, "QuestionsFailed")
			s.questions = nil
			s.selected = -1
			s.loading = false
		})
	default:
		qs := slices.Clone(res.Data)
		s.update(func() {
			s.questions = qs
			s.selected = -1
			if len(qs) > 0 {
				s.selected = 0
			}
			s.loading = false
		})
		s.logger.Info("questions loaded", "count", len(qs))
	}
}

// live reports whether results of a fetch may still be written.
func (s *Store) live(ctx context.Context) bool {
	if ctx.Err() != nil {
		s.logger.Debug("dropping load result", "reason", ctx.Err())
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("dropping load result", "reason", "store closed")
		return false
	}
	return true
}

func messageOr(ctx context.Context, msg, fallbackID string) string {
	if msg != "" {
		return msg
	}
	return appI18n.T(ctx, fallbackID)
}

// Select makes q the current question, matching it by ID. A question that is
// not part of the session clears the selection.
func (s *Store) Select(q model.Question) {
	s.update(func() {
		s.selected = slices.IndexFunc(s.questions, func(c model.Question) bool { return c.ID == q.ID })
	})
}

// SelectIndex makes the i-th question current. Out-of-range indexes are ignored.
func (s *Store) SelectIndex(i int) {
	s.update(func() {
		if i >= 0 && i < len(s.questions) {
			s.selected = i
		}
	})
}

// Next moves to the following question. It does nothing on the last one.
func (s *Store) Next() {
	s.update(func() {
		if s.selected < len(s.questions)-1 {
			s.selected++
		}
	})
}

// Previous moves to the preceding question. It does nothing on the first one.
func (s *Store) Previous() {
	s.update(func() {
		if s.selected > 0 {
			s.selected--
		}
	})
}

// SaveAnswer stores text as the answer for the current question, replacing
// any earlier answer. Without a selection it does nothing.
func (s *Store) SaveAnswer(text string) {
	var (
		qid   int64
		saved bool
	)
	s.update(func() {
		q, ok := s.current()
		if !ok {
			return
		}
		qid, saved = q.ID, true
		s.answers[qid] = text
	})
	if saved {
		s.logger.Debug("answer saved", "question_id", qid)
	}
}

// SubmitAnswer evaluates the stored answer of the current question and records
// the verdict. It returns false, changing nothing, when there is no selection
// or no stored answer. Resubmitting recomputes the verdict.
func (s *Store) SubmitAnswer() bool {
	s.mu.Lock()
	q, ok := s.current()
	answer := s.answers[q.ID]
	closed := s.closed
	s.mu.Unlock()
	if !ok || closed || answer == "" {
		return false
	}

	correct := s.evaluate(answer, q.Answer, q.Type)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.results[q.ID] = model.AnswerResult{Evaluated: true, Correct: correct}
	s.mu.Unlock()

	s.logger.Debug("answer submitted", "question_id", q.ID, "type", q.Type, "correct", correct)
	s.notify()
	return true
}

// current returns the selected question. Callers must hold mu.
func (s *Store) current() (model.Question, bool) {
	if s.selected < 0 || s.selected >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[s.selected], true
}

// Selected returns the current question, if any.
func (s *Store) Selected() (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

// SelectedIndex returns the index of the current question, or -1.
func (s *Store) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// CurrentAnswer returns the stored answer of the current question, or "".
func (s *Store) CurrentAnswer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.current()
	if !ok {
		return ""
	}
	return s.answers[q.ID]
}

// CurrentResult returns the verdict of the current question. Questions that
// were never submitted report a zero AnswerResult.
func (s *Store) CurrentResult() model.AnswerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.current()
	if !ok {
		return model.AnswerResult{}
	}
	return s.results[q.ID]
}

// Questions returns the loaded questions in session order.
func (s *Store) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.questions)
}

// Bank returns the loaded bank metadata, or nil.
func (s *Store) Bank() *model.QuizBank {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bank == nil {
		return nil
	}
	b := *s.bank
	return &b
}

// Answers returns a copy of the stored answers keyed by question ID.
func (s *Store) Answers() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Results returns a copy of the recorded verdicts keyed by question ID.
func (s *Store) Results() map[int64]model.AnswerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]model.AnswerResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// Loading reports whether the question list is being fetched.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last load error message, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Watch registers fn to be called after every state change. The returned
// function unregisters it.
func (s *Store) Watch(fn func()) (cancel func()) {
	s.watchMu.Lock()
	id := s.nextWID
	s.nextWID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			s.watchMu.Unlock()
		})
	}
}

// Close deactivates input handling and discards the session. Load results
// that arrive afterwards are dropped.
func (s *Store) Close() {
	s.Deactivate()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// update applies fn under the lock and notifies watchers. It reports whether
// the store was still open.
func (s *Store) update(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn()
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) notify() {
	s.watchMu.Lock()
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
