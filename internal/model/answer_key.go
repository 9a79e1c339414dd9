package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKey is the authoritative answer of a question. The remote service
// stores it either as a single token or as a list of tokens; the key keeps
// track of which shape it was given in.
type AnswerKey struct {
	values     []string
	collection bool
}

// Scalar returns a single-token key.
func Scalar(v string) AnswerKey {
	return AnswerKey{values: []string{v}}
}

// Collection returns a multi-token key. Tokens keep their given order.
func Collection(vs ...string) AnswerKey {
	return AnswerKey{values: append([]string(nil), vs...), collection: true}
}

// IsCollection reports whether the key was given as a list.
func (k AnswerKey) IsCollection() bool {
	return k.collection
}

// IsEmpty reports whether the key carries no usable token.
func (k AnswerKey) IsEmpty() bool {
	if k.collection {
		return len(k.values) == 0
	}
	return len(k.values) == 0 || k.values[0] == ""
}

// First returns the scalar value, or the first element of a collection.
func (k AnswerKey) First() string {
	if len(k.values) == 0 {
		return ""
	}
	return k.values[0]
}

// Values returns a copy of the key's tokens. A scalar yields a one-element slice.
func (k AnswerKey) Values() []string {
	if len(k.values) == 0 {
		return nil
	}
	return append([]string(nil), k.values...)
}

// String renders the key for display: collections are comma-joined.
func (k AnswerKey) String() string {
	return strings.Join(k.values, ",")
}

// MarshalJSON writes scalars as strings and collections as arrays.
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if k.collection {
		vs := k.values
		if vs == nil {
			vs = []string{}
		}
		return json.Marshal(vs)
	}
	return json.Marshal(k.First())
}

// UnmarshalJSON accepts a string, an array of strings, null, or a string that
// itself holds a JSON array of strings.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = AnswerKey{}
		return nil
	}
	switch data[0] {
	case '[':
		var vs []string
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("answer key: %w", err)
		}
		*k = Collection(vs...)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("answer key: %w", err)
		}
		*k = ParseAnswerKey(s)
		return nil
	default:
		return fmt.Errorf("answer key: unsupported JSON value %s", data)
	}
}

// ParseAnswerKey normalizes a stored answer text. Text holding a JSON array
// of strings becomes a collection; anything else is a scalar.
func ParseAnswerKey(s string) AnswerKey {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var vs []string
		if err := json.Unmarshal([]byte(trimmed), &vs); err == nil {
			return Collection(vs...)
		}
	}
	return Scalar(s)
}

// ForType adapts k to the shape questionType compares against. A scalar
// MULTIPLE_CHOICE key such as "A,C" becomes the collection ["A", "C"]; other
// keys are returned unchanged.
func (k AnswerKey) ForType(questionType QuestionType) AnswerKey {
	if questionType != MultipleChoice || k.collection {
		return k
	}
	var vs []string
	for _, tok := range strings.Split(k.First(), ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			vs = append(vs, tok)
		}
	}
	if len(vs) == 0 {
		return AnswerKey{}
	}
	return Collection(vs...)
}
