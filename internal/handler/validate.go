package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/quizexam/internal/model"
)

// newValidator builds the payload validator with the question-specific rules.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("question_type", validateQuestionType)
	v.RegisterCustomTypeFunc(answerKeyValue, model.AnswerKey{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return model.QuestionType(fl.Field().String()).Valid()
}

// answerKeyValue exposes an answer key to validation tags as its token list,
// so that "required" rejects empty keys.
func answerKeyValue(v reflect.Value) any {
	k, ok := v.Interface().(model.AnswerKey)
	if !ok || k.IsEmpty() {
		return nil
	}
	return k.Values()
}

// describeValidation turns validator errors into a short field list.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
