package exam

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/quizexam/internal/i18n"
	"github.com/pavelanni/quizexam/internal/model"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeSource struct {
	mu sync.Mutex

	bank     model.Result[model.QuizBank]
	bankErr  error
	qs       model.Result[[]model.Question]
	qsErr    error
	calls    []string
	onBank   func()
	onFetchQ func()
}

func (f *fakeSource) GetBankInfo(_ context.Context, bankID int64) (model.Result[model.QuizBank], error) {
	f.mu.Lock()
	f.calls = append(f.calls, "bank")
	f.mu.Unlock()
	if f.onBank != nil {
		f.onBank()
	}
	return f.bank, f.bankErr
}

func (f *fakeSource) GetQuestionsForBank(_ context.Context, bankID int64) (model.Result[[]model.Question], error) {
	f.mu.Lock()
	f.calls = append(f.calls, "questions")
	f.mu.Unlock()
	if f.onFetchQ != nil {
		f.onFetchQ()
	}
	return f.qs, f.qsErr
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: 11, QuizBankID: 1, Title: "Pick A", Type: model.SingleChoice, Answer: model.Scalar("A"),
			Options: map[string]string{"A": "first", "B": "second"}},
		{ID: 12, QuizBankID: 1, Title: "Go is compiled", Type: model.Judgment, Answer: model.Scalar("A")},
		{ID: 13, QuizBankID: 1, Title: "Pick A and B", Type: model.MultipleChoice, Answer: model.Collection("A", "B")},
		{ID: 14, QuizBankID: 1, Title: "Capital of France", Type: model.FillBlank, Answer: model.Collection("Paris", "paris")},
	}
}

func okSource() *fakeSource {
	return &fakeSource{
		bank: model.Result[model.QuizBank]{Code: model.CodeSuccess, Data: model.QuizBank{ID: 1, Name: "Basics"}},
		qs:   model.Result[[]model.Question]{Code: model.CodeSuccess, Data: sampleQuestions()},
	}
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s := New(okSource(), 1)
	s.Initialize(context.Background())
	require.Empty(t, s.Err())
	return s
}

func TestInitializeSelectsFirstQuestion(t *testing.T) {
	src := okSource()
	s := New(src, 1)
	s.Initialize(context.Background())

	assert.Equal(t, []string{"bank", "questions"}, src.calls)
	assert.Empty(t, s.Err())
	assert.False(t, s.Loading())
	require.NotNil(t, s.Bank())
	assert.Equal(t, "Basics", s.Bank().Name)
	assert.Len(t, s.Questions(), 4)

	q, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(11), q.ID)
	assert.Equal(t, 0, s.SelectedIndex())
}

func TestInitializeInvalidBankID(t *testing.T) {
	src := okSource()
	s := New(src, 0)
	s.Initialize(context.Background())

	assert.Empty(t, src.calls, "no fetch may be issued for an invalid bank id")
	assert.Equal(t, "Invalid quiz bank ID", s.Err())
	assert.Empty(t, s.Questions())
	assert.False(t, s.Loading())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestInitializeBankInfoFailureClearedByQuestions(t *testing.T) {
	tests := []struct {
		name    string
		bank    model.Result[model.QuizBank]
		bankErr error
		wantErr string
	}{
		{"server message", model.Result[model.QuizBank]{Code: model.CodeNotFound, Message: "bank 1 missing"}, nil, "bank 1 missing"},
		{"no server message", model.Result[model.QuizBank]{Code: model.CodeServerError}, nil, "Failed to load quiz bank information"},
		{"transport failure", model.Result[model.QuizBank]{}, errors.New("connection refused"), "Network error: unable to load quiz bank information"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := okSource()
			src.bank, src.bankErr = tt.bank, tt.bankErr
			s := New(src, 1)
			var shown []string
			s.Watch(func() {
				if msg := s.Err(); msg != "" {
					shown = append(shown, msg)
				}
			})
			s.Initialize(context.Background())

			assert.Equal(t, []string{"bank", "questions"}, src.calls)
			assert.Equal(t, []string{tt.wantErr}, shown, "bank info error is reported while questions load")
			assert.Empty(t, s.Err(), "loaded questions and an error never coexist")
			assert.Nil(t, s.Bank())
			assert.Len(t, s.Questions(), 4)
			assert.Equal(t, 0, s.SelectedIndex())
		})
	}
}

func TestInitializeQuestionsFailure(t *testing.T) {
	tests := []struct {
		name    string
		qs      model.Result[[]model.Question]
		qsErr   error
		wantErr string
	}{
		{"server message", model.Result[[]model.Question]{Code: model.CodeForbidden, Message: "forbidden"}, nil, "forbidden"},
		{"no server message", model.Result[[]model.Question]{Code: model.CodeBadRequest}, nil, "Failed to load the question list"},
		{"transport failure", model.Result[[]model.Question]{}, errors.New("timeout"), "Network error: unable to load the question list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := okSource()
			src.bank = model.Result[model.QuizBank]{Code: model.CodeServerError, Message: "bank failed"}
			src.qs, src.qsErr = tt.qs, tt.qsErr
			s := New(src, 1)
			s.Initialize(context.Background())

			assert.Equal(t, tt.wantErr, s.Err(), "questions error replaces the bank info error")
			assert.Empty(t, s.Questions())
			assert.False(t, s.Loading())
			assert.Equal(t, -1, s.SelectedIndex())
		})
	}
}

func TestInitializeEmptyQuestionList(t *testing.T) {
	src := okSource()
	src.qs = model.Result[[]model.Question]{Code: model.CodeSuccess}
	s := New(src, 1)
	s.Initialize(context.Background())

	assert.Empty(t, s.Err())
	assert.Empty(t, s.Questions())
	_, ok := s.Selected()
	assert.False(t, ok)

	s.Next()
	s.Previous()
	assert.Equal(t, -1, s.SelectedIndex())
}

func TestLoadingOnlyDuringQuestionsFetch(t *testing.T) {
	src := okSource()
	var s *Store
	var duringBank, duringQuestions bool
	src.onBank = func() { duringBank = s.Loading() }
	src.onFetchQ = func() { duringQuestions = s.Loading() }
	s = New(src, 1)
	s.Initialize(context.Background())

	assert.False(t, duringBank)
	assert.True(t, duringQuestions)
	assert.False(t, s.Loading())
}

func TestInitializeAfterCloseDropsResults(t *testing.T) {
	src := okSource()
	var s *Store
	src.onFetchQ = func() { s.Close() }
	s = New(src, 1)
	s.Initialize(context.Background())

	assert.Empty(t, s.Questions())
	assert.Equal(t, -1, s.SelectedIndex())
}

func TestInitializeCancelledContextDropsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := okSource()
	src.onBank = cancel
	s := New(src, 1)
	s.Initialize(ctx)

	assert.Nil(t, s.Bank())
	assert.Empty(t, s.Questions())
	assert.False(t, s.Loading())
}

func TestNavigationIsClamped(t *testing.T) {
	s := loadedStore(t)

	s.Previous()
	assert.Equal(t, 0, s.SelectedIndex(), "previous at first index is a no-op")

	for i := 0; i < 10; i++ {
		s.Next()
		idx := s.SelectedIndex()
		assert.GreaterOrEqual(t, idx, 0)
		assert.LessOrEqual(t, idx, 3)
	}
	assert.Equal(t, 3, s.SelectedIndex(), "next at last index is a no-op")

	s.Previous()
	q, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(13), q.ID)
}

func TestSelectByID(t *testing.T) {
	s := loadedStore(t)

	s.Select(model.Question{ID: 14})
	assert.Equal(t, 3, s.SelectedIndex())
	q, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Capital of France", q.Title)

	s.Select(model.Question{ID: 999})
	assert.Equal(t, -1, s.SelectedIndex())
	_, ok = s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.CurrentAnswer())
	assert.Equal(t, model.AnswerResult{}, s.CurrentResult())

	// Next from no selection lands on the first question.
	s.Next()
	assert.Equal(t, 0, s.SelectedIndex())
}

func TestSelectIndexIgnoresOutOfRange(t *testing.T) {
	s := loadedStore(t)
	s.SelectIndex(2)
	assert.Equal(t, 2, s.SelectedIndex())
	s.SelectIndex(4)
	s.SelectIndex(-1)
	assert.Equal(t, 2, s.SelectedIndex())
}

func TestSaveAnswerWithoutSelection(t *testing.T) {
	s := New(okSource(), 1)

	assert.NotPanics(t, func() { s.SaveAnswer("A") })
	assert.Empty(t, s.Answers())
	assert.False(t, s.SubmitAnswer())
	assert.Empty(t, s.Results())
}

func TestSaveAnswerOverwrites(t *testing.T) {
	s := loadedStore(t)

	s.SaveAnswer("B")
	s.SaveAnswer("A")
	assert.Equal(t, "A", s.CurrentAnswer())

	s.Next()
	assert.Empty(t, s.CurrentAnswer(), "answers are per question")
	s.Previous()
	assert.Equal(t, "A", s.CurrentAnswer())
	assert.Equal(t, map[int64]string{11: "A"}, s.Answers())
}

func TestSubmitWithoutAnswer(t *testing.T) {
	s := loadedStore(t)

	assert.False(t, s.SubmitAnswer())
	assert.Empty(t, s.Results())
	assert.Equal(t, model.AnswerResult{}, s.CurrentResult())

	s.SaveAnswer("")
	assert.False(t, s.SubmitAnswer(), "an empty stored answer is not submittable")
	assert.Empty(t, s.Results())
}

func TestSubmitRecordsVerdicts(t *testing.T) {
	s := loadedStore(t)

	answers := []struct {
		answer  string
		correct bool
	}{
		{"A", true},
		{"T", true},
		{"B,A", true},
		{"paris", true},
	}
	for i, a := range answers {
		s.SelectIndex(i)
		s.SaveAnswer(a.answer)
		require.True(t, s.SubmitAnswer())
		assert.Equal(t, model.AnswerResult{Evaluated: true, Correct: a.correct}, s.CurrentResult())
	}

	s.SelectIndex(0)
	s.SaveAnswer("B")
	assert.Equal(t, model.AnswerResult{Evaluated: true, Correct: true}, s.CurrentResult(),
		"saving does not re-evaluate")
	require.True(t, s.SubmitAnswer())
	assert.Equal(t, model.AnswerResult{Evaluated: true, Correct: false}, s.CurrentResult())
	assert.Len(t, s.Results(), 4)
}

func TestSubmitIsIdempotent(t *testing.T) {
	s := loadedStore(t)
	s.SelectIndex(2)
	s.SaveAnswer("A")

	require.True(t, s.SubmitAnswer())
	first := s.CurrentResult()
	require.True(t, s.SubmitAnswer())
	assert.Equal(t, first, s.CurrentResult())
	assert.Equal(t, model.AnswerResult{Evaluated: true, Correct: false}, first)
}

func TestSubmitUsesInjectedEvaluator(t *testing.T) {
	var (
		got []string
		s   *Store
	)
	s = New(okSource(), 1, WithEvaluator(func(answer string, key model.AnswerKey, qt model.QuestionType) bool {
		got = append(got, answer, key.String(), string(qt), s.CurrentAnswer())
		return true
	}))
	s.Initialize(context.Background())
	s.SaveAnswer("Z")
	require.True(t, s.SubmitAnswer())

	assert.Equal(t, []string{"Z", "A", "SINGLE_CHOICE", "Z"}, got)
	assert.True(t, s.CurrentResult().Correct)
}

func TestWatchNotifiesOnChange(t *testing.T) {
	s := loadedStore(t)

	count := 0
	cancel := s.Watch(func() { count++ })
	s.Next()
	s.SaveAnswer("T")
	s.SubmitAnswer()
	assert.Equal(t, 3, count)

	cancel()
	cancel()
	s.Next()
	assert.Equal(t, 3, count)
}

func TestReadsReturnCopies(t *testing.T) {
	s := loadedStore(t)
	s.SaveAnswer("A")

	qs := s.Questions()
	qs[0].Title = "changed"
	answers := s.Answers()
	answers[11] = "B"

	q, _ := s.Selected()
	assert.Equal(t, "Pick A", q.Title)
	assert.Equal(t, "A", s.CurrentAnswer())
}

func TestConcurrentNavigation(t *testing.T) {
	s := loadedStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					s.Next()
				} else {
					s.Previous()
				}
				s.SaveAnswer("A")
				s.SubmitAnswer()
			}
		}(i)
	}
	wg.Wait()

	idx := s.SelectedIndex()
	assert.GreaterOrEqual(t, idx, 0)
	assert.LessOrEqual(t, idx, 3)
}
