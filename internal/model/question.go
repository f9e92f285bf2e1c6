package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedOptions is returned when a stored option list cannot be decoded.
var ErrMalformedOptions = errors.New("malformed option encoding")

// OptionEncoding enumerates the two stored forms of a question's options.
type OptionEncoding string

const (
	// OptionEncodingDelimited is "Paris|London|Rome".
	OptionEncodingDelimited OptionEncoding = "delimited"
	// OptionEncodingJSON is `[{"id":"a","text":"Paris"}, ...]`.
	OptionEncodingJSON OptionEncoding = "json_array"
)

const optionDelimiter = "|"

// Option is one entry of a JSON-encoded option array.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionSet is the decoded option list of a question, remembering which
// encoding it was read from so it can be written back unchanged.
type OptionSet struct {
	Encoding OptionEncoding `json:"encoding"`
	Items    []Option       `json:"items"`
}

// ParseOptionSet decodes a stored option string. A value starting with "["
// is a JSON option array; otherwise a value containing "|" is a delimited
// list. An empty value is an empty list. Anything else is malformed: the
// returned set is empty and the error is ErrMalformedOptions.
func ParseOptionSet(raw string) (OptionSet, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return OptionSet{Encoding: OptionEncodingDelimited}, nil

	case strings.HasPrefix(trimmed, "["):
		var items []Option
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return OptionSet{Encoding: OptionEncodingJSON}, errors.Join(ErrMalformedOptions, err)
		}
		return OptionSet{Encoding: OptionEncodingJSON, Items: items}, nil

	case strings.Contains(trimmed, optionDelimiter):
		parts := strings.Split(trimmed, optionDelimiter)
		items := make([]Option, len(parts))
		for i, p := range parts {
			items[i] = Option{Text: p}
		}
		return OptionSet{Encoding: OptionEncodingDelimited, Items: items}, nil

	default:
		return OptionSet{Encoding: OptionEncodingDelimited}, ErrMalformedOptions
	}
}

// NewDelimitedOptions builds a delimited option set from texts.
func NewDelimitedOptions(texts ...string) OptionSet {
	items := make([]Option, len(texts))
	for i, t := range texts {
		items[i] = Option{Text: t}
	}
	return OptionSet{Encoding: OptionEncodingDelimited, Items: items}
}

// NewJSONOptions builds a JSON option set, lettering the ids a, b, c...
func NewJSONOptions(texts ...string) OptionSet {
	items := make([]Option, len(texts))
	for i, t := range texts {
		items[i] = Option{ID: optionLetter(i), Text: t}
	}
	return OptionSet{Encoding: OptionEncodingJSON, Items: items}
}

func optionLetter(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return fmt.Sprintf("o%d", i+1)
}

// Texts returns the option texts in display order.
func (o OptionSet) Texts() []string {
	out := make([]string, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.Text
	}
	return out
}

// Contains reports whether text is one of the options.
func (o OptionSet) Contains(text string) bool {
	for _, it := range o.Items {
		if it.Text == text {
			return true
		}
	}
	return false
}

// Encode writes the set back in its original encoding.
func (o OptionSet) Encode() string {
	if o.Encoding == OptionEncodingJSON {
		items := o.Items
		if items == nil {
			items = []Option{}
		}
		b, _ := json.Marshal(items)
		return string(b)
	}
	return strings.Join(o.Texts(), optionDelimiter)
}

// Question is a multiple-choice question of a class. CorrectAnswer holds the
// literal text of the correct option, not an index.
type Question struct {
	ID            string    `json:"id"`
	ClassID       string    `json:"class_id"`
	Text          string    `json:"question"`
	Options       OptionSet `json:"options"`
	CorrectAnswer string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionForStudent is the view of a question sent to a student (no answer).
type QuestionForStudent struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// AddQuestionRequest is the payload for adding a question to a class.
type AddQuestionRequest struct {
	Question      string   `json:"question" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
}
