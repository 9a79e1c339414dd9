package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/quizexam/internal/model"
)

var optionLabels = []string{"A", "B", "C", "D", "E", "F"}

// Header row of the question sheet.
var sheetHeaders = []string{
	"type", "title", "content",
	"option a", "option b", "option c", "option d", "option e", "option f",
	"answer", "analysis", "difficulty",
}

const sheetName = "Questions"

// ParseXLSX reads questions from the first sheet of a workbook. The first row
// holds column names; their order does not matter.
func ParseXLSX(data []byte) ([]model.QuestionImport, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("sheet needs a header row and at least one question")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"type", "title", "answer"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	questions := make([]model.QuestionImport, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell("type") == "" && cell("title") == "" {
			continue
		}

		q := model.QuestionImport{
			Type:       parseType(cell("type")),
			Title:      cell("title"),
			Content:    cell("content"),
			Analysis:   cell("analysis"),
			Difficulty: model.Difficulty(strings.ToLower(cell("difficulty"))),
		}
		for _, l := range optionLabels {
			if v := cell("option " + strings.ToLower(l)); v != "" {
				if q.Options == nil {
					q.Options = make(map[string]string)
				}
				q.Options[l] = v
			}
		}
		q.Answer = parseAnswerCell(q.Type, cell("answer"))

		if err := check(q); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func parseType(s string) model.QuestionType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return model.QuestionType(s)
}

// parseAnswerCell splits a multiple-choice cell on commas and a fill-in or
// short-answer cell on "|". Anything else is a single token.
func parseAnswerCell(t model.QuestionType, cell string) model.AnswerKey {
	var sep string
	switch t {
	case model.MultipleChoice:
		sep = ","
	case model.FillBlank, model.ShortAnswer:
		if !strings.Contains(cell, "|") {
			return scalarOrEmpty(cell)
		}
		sep = "|"
	default:
		return scalarOrEmpty(strings.ToUpper(cell))
	}

	var vals []string
	for _, p := range strings.Split(cell, sep) {
		if p = strings.TrimSpace(p); p != "" {
			if t == model.MultipleChoice {
				p = strings.ToUpper(p)
			}
			vals = append(vals, p)
		}
	}
	if len(vals) == 0 {
		return model.AnswerKey{}
	}
	return model.Collection(vals...)
}

func scalarOrEmpty(s string) model.AnswerKey {
	if s == "" {
		return model.AnswerKey{}
	}
	return model.Scalar(s)
}

// WriteXLSX writes questions as a workbook ParseXLSX can read back.
func WriteXLSX(w io.Writer, questions []model.Question) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &sheetHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, q := range questions {
		row := []any{string(q.Type), q.Title, q.Content}
		for _, l := range optionLabels {
			row = append(row, q.Options[l])
		}
		row = append(row, answerCell(q), q.Analysis, string(q.Difficulty))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func answerCell(q model.Question) string {
	vals := q.Answer.Values()
	switch {
	case q.Type == model.MultipleChoice:
		return strings.Join(vals, ",")
	case (q.Type == model.FillBlank || q.Type == model.ShortAnswer) && q.Answer.IsCollection():
		return strings.Join(vals, "|")
	default:
		return q.Answer.First()
	}
}
