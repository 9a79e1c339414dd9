package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/quizexam/internal/evaluator"
	"github.com/pavelanni/quizexam/internal/model"
	"github.com/pavelanni/quizexam/internal/store"
)

const sampleJSON = `[
  {"title": "Pick A", "type": "SINGLE_CHOICE", "options": {"A": "yes", "B": "no"}, "answer": "A", "difficulty": "easy"},
  {"title": "Reference types", "type": "MULTIPLE_CHOICE", "options": {"A": "map", "B": "slice", "C": "array"}, "answer": ["A", "B"]},
  {"title": "Capital of France", "type": "FILL_BLANK", "answer": "[\"Paris\",\"paris\"]", "analysis": "Since 987."}
]`

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, nil), s
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestImportJSON(t *testing.T) {
	im, s := newTestImporter(t)
	path := writeFile(t, t.TempDir(), "go-basics.json", []byte(sampleJSON))

	res, err := im.ImportFile(path, "")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, "go-basics", res.Bank.Name)

	qs, err := s.QuestionsForBank(res.Bank.ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "A", qs[0].Answer.First())
	assert.Equal(t, []string{"A", "B"}, qs[1].Answer.Values())
	assert.True(t, qs[2].Answer.IsCollection())
	assert.Equal(t, "Since 987.", qs[2].Analysis)
}

func TestParseJSONSplitsSelectionString(t *testing.T) {
	qs, err := ParseJSON([]byte(`[{"title": "Reference types", "type": "MULTIPLE_CHOICE", "answer": "A, C"}]`))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.True(t, qs[0].Answer.IsCollection())
	assert.Equal(t, []string{"A", "C"}, qs[0].Answer.Values())
	assert.True(t, evaluator.Evaluate("A,C", qs[0].Answer, model.MultipleChoice))
	assert.True(t, evaluator.Evaluate("C,A", qs[0].Answer, model.MultipleChoice))

	_, err = ParseJSON([]byte(`[{"title": "Empty", "type": "MULTIPLE_CHOICE", "answer": ","}]`))
	assert.ErrorContains(t, err, "missing answer")
}

func TestImportIsIdempotent(t *testing.T) {
	im, s := newTestImporter(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "bank.json", []byte(sampleJSON))

	first, err := im.ImportFile(path, "Shared")
	require.NoError(t, err)

	again, err := im.ImportFile(path, "Shared")
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	writeFile(t, dir, "bank.json", []byte(`[{"title": "new", "type": "JUDGMENT", "answer": "A"}]`))
	changed, err := im.ImportFile(path, "Shared")
	require.NoError(t, err)
	assert.True(t, changed.Skipped)

	count, err := s.QuestionCount(first.Bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportReusesBankByName(t *testing.T) {
	im, s := newTestImporter(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", []byte(`[{"title": "one", "type": "JUDGMENT", "answer": "A"}]`))
	b := writeFile(t, dir, "b.json", []byte(`[{"title": "two", "type": "JUDGMENT", "answer": "B"}]`))

	results, err := im.ImportFiles([]string{a, b})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Bank.ID, results[1].Bank.ID)

	resA, err := im.ImportFile(writeFile(t, dir, "c.json", []byte(`[{"title": "three", "type": "JUDGMENT", "answer": "A"}]`)), "a")
	require.NoError(t, err)
	assert.Equal(t, results[0].Bank.ID, resA.Bank.ID)

	count, err := s.BankCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportRejectsBadFiles(t *testing.T) {
	im, s := newTestImporter(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		data string
	}{
		{"not json", "broken.json", "{"},
		{"unknown type", "essay.json", `[{"title": "x", "type": "ESSAY", "answer": "A"}]`},
		{"missing answer", "blank.json", `[{"title": "x", "type": "SINGLE_CHOICE"}]`},
		{"bad difficulty", "hard.json", `[{"title": "x", "type": "SINGLE_CHOICE", "answer": "A", "difficulty": "brutal"}]`},
		{"unsupported extension", "questions.csv", "type,title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.ImportFile(writeFile(t, dir, tt.file, []byte(tt.data)), "")
			assert.Error(t, err)
		})
	}

	count, err := s.BankCount()
	require.NoError(t, err)
	assert.Zero(t, count, "a rejected file must not create a bank")
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Title", "Type", "Option A", "Option B", "Option C", "Answer", "Analysis", "Difficulty"},
		{"Reference types", "multiple choice", "map", "slice", "array", "a, b", "", "Medium"},
		{"Capital of France", "FILL_BLANK", "", "", "", "Paris | paris", "Since 987.", ""},
		{"Go is compiled", "judgment", "", "", "", "a", "", ""},
		{"", "", "", "", "", "", "", ""},
		{"Explain GC", "SHORT_ANSWER", "", "", "", "tricolor mark and sweep", "", "hard"},
	})

	qs, err := ParseXLSX(data)
	require.NoError(t, err)
	require.Len(t, qs, 4)

	assert.Equal(t, model.MultipleChoice, qs[0].Type)
	assert.Equal(t, []string{"A", "B"}, qs[0].Answer.Values())
	assert.Equal(t, map[string]string{"A": "map", "B": "slice", "C": "array"}, qs[0].Options)
	assert.Equal(t, model.DifficultyMedium, qs[0].Difficulty)

	assert.Equal(t, []string{"Paris", "paris"}, qs[1].Answer.Values())
	assert.Equal(t, "Since 987.", qs[1].Analysis)
	assert.Nil(t, qs[1].Options)

	assert.Equal(t, model.Judgment, qs[2].Type)
	assert.False(t, qs[2].Answer.IsCollection())
	assert.Equal(t, "A", qs[2].Answer.First())

	assert.False(t, qs[3].Answer.IsCollection())
	assert.Equal(t, "tricolor mark and sweep", qs[3].Answer.First())
}

func TestParseXLSXErrors(t *testing.T) {
	_, err := ParseXLSX([]byte("not a workbook"))
	assert.Error(t, err)

	_, err = ParseXLSX(buildWorkbook(t, [][]any{{"title", "answer"}, {"x", "A"}}))
	assert.ErrorContains(t, err, `missing column "type"`)

	_, err = ParseXLSX(buildWorkbook(t, [][]any{{"type", "title", "answer"}}))
	assert.Error(t, err)

	_, err = ParseXLSX(buildWorkbook(t, [][]any{{"type", "title", "answer"}, {"SINGLE_CHOICE", "x", ""}}))
	assert.ErrorContains(t, err, "row 2")
}

func TestXLSXRoundTrip(t *testing.T) {
	in := []model.Question{
		{Title: "Pick A", Type: model.SingleChoice, Options: map[string]string{"A": "yes", "B": "no"}, Answer: model.Scalar("A"), Difficulty: model.DifficultyEasy},
		{Title: "Reference types", Type: model.MultipleChoice, Options: map[string]string{"A": "map", "B": "slice"}, Answer: model.Collection("A", "B")},
		{Title: "Capital", Type: model.FillBlank, Answer: model.Collection("Paris", "paris"), Analysis: "Since 987."},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, in))

	out, err := ParseXLSX(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Title, out[i].Title)
		assert.Equal(t, in[i].Type, out[i].Type)
		assert.Equal(t, in[i].Answer.Values(), out[i].Answer.Values())
		assert.Equal(t, in[i].Analysis, out[i].Analysis)
		assert.Equal(t, in[i].Difficulty, out[i].Difficulty)
		if len(in[i].Options) > 0 {
			assert.Equal(t, in[i].Options, out[i].Options)
		}
	}
}

func TestImportXLSXFile(t *testing.T) {
	im, s := newTestImporter(t)
	data := buildWorkbook(t, [][]any{
		{"type", "title", "answer"},
		{"SINGLE_CHOICE", "Pick B", "B"},
	})
	res, err := im.ImportFile(writeFile(t, t.TempDir(), "sheet.xlsx", data), "Sheets")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	qs, err := s.QuestionsForBank(res.Bank.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "B", qs[0].Answer.First())
}
