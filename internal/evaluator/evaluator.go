// Package evaluator decides whether a user's answer matches a question's
// answer key. It is stateless and safe for concurrent use.
package evaluator

import (
	"slices"
	"strings"

	"github.com/pavelanni/quizexam/internal/model"
)

// judgment keys are sometimes stored with choice labels instead of T/F.
var judgmentLabels = map[string]string{
	"A": "T",
	"B": "F",
}

// Evaluate returns the verdict for userAnswer against key under the comparison
// rules of questionType. An empty answer or an empty key is never correct, and
// unknown question types fail closed.
func Evaluate(userAnswer string, key model.AnswerKey, questionType model.QuestionType) bool {
	if userAnswer == "" || key.IsEmpty() {
		return false
	}

	switch questionType {
	case model.SingleChoice:
		return userAnswer == key.First()
	case model.Judgment:
		return evaluateJudgment(userAnswer, key.First())
	case model.MultipleChoice:
		return evaluateMultiple(userAnswer, key.Values())
	case model.FillBlank, model.ShortAnswer:
		if key.IsCollection() {
			return slices.Contains(key.Values(), userAnswer)
		}
		return userAnswer == key.First()
	default:
		return false
	}
}

func evaluateJudgment(userAnswer, key string) bool {
	if mapped, ok := judgmentLabels[key]; ok {
		key = mapped
	}
	switch userAnswer {
	case "T", "F":
		return userAnswer == key
	default:
		return false
	}
}

// evaluateMultiple compares the comma-separated user selection with the key
// as sorted sequences. Duplicates are not collapsed.
func evaluateMultiple(userAnswer string, key []string) bool {
	selected := SplitSelection(userAnswer)
	slices.Sort(selected)
	slices.Sort(key)
	return slices.Equal(selected, key)
}

// SplitSelection splits a comma-separated multiple-choice answer into its
// labels, dropping empty tokens.
func SplitSelection(answer string) []string {
	var out []string
	for _, tok := range strings.Split(answer, ",") {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
