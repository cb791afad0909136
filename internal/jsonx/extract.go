// Package jsonx recovers JSON values from LLM replies that may wrap them in
// markdown fences or surrounding prose.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON value could be recovered.
var ErrNoJSON = errors.New("no valid JSON in text")

// ExtractError carries the original text for diagnostics.
type ExtractError struct {
	Text string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNoJSON, preview(e.Text, 200))
}

func (e *ExtractError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoJSON}
	}
	return []error{ErrNoJSON, e.Err}
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Extract parses text as JSON, falling back to the first fenced block.
func Extract(text string) (any, error) {
	var v any
	if err := Unmarshal(text, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes the JSON value recovered from text into v.
func Unmarshal(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ExtractError{Text: text}
	}

	firstErr := json.Unmarshal([]byte(trimmed), v)
	if firstErr == nil {
		return nil
	}

	m := fencePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return &ExtractError{Text: text, Err: firstErr}
	}
	if err := json.Unmarshal([]byte(m[1]), v); err != nil {
		return &ExtractError{Text: text, Err: err}
	}
	return nil
}

// Decode recovers a JSON value of type T from text.
func Decode[T any](text string) (T, error) {
	var v T
	err := Unmarshal(text, &v)
	return v, err
}

// DecodeArray recovers a JSON array of T. A single object is accepted as a
// one-element array.
func DecodeArray[T any](text string) ([]T, error) {
	var raw json.RawMessage
	if err := Unmarshal(text, &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, &ExtractError{Text: text, Err: err}
		}
		return []T{one}, nil
	}
	var many []T
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, &ExtractError{Text: text, Err: err}
	}
	return many, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
