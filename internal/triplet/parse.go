package triplet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FinalAnswerMarker separates a model's reasoning from its structured answer.
const FinalAnswerMarker = "[FINAL ANSWER]"

// ParseError reports model output that does not decode into the expected shape.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FinalAnswer returns the text after the last [FINAL ANSWER] marker with
// surrounding whitespace and markdown code fences removed. Without a marker
// the whole output is used.
func FinalAnswer(raw string) string {
	s := raw
	if i := strings.LastIndex(s, FinalAnswerMarker); i >= 0 {
		s = s[i+len(FinalAnswerMarker):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// Decode strictly decodes the final answer of raw into v.
func Decode(raw string, v any) error {
	body := FinalAnswer(raw)
	if body == "" {
		return &ParseError{Raw: raw, Err: fmt.Errorf("empty answer")}
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	if dec.More() {
		return &ParseError{Raw: raw, Err: fmt.Errorf("trailing data after JSON value")}
	}
	return nil
}

// ParseList decodes a model's triplet list. The answer may be a bare array
// of triplets or an object with a "triplets" field. Elements that are not
// three strings become the Empty sentinel and are counted in malformed.
func ParseList(raw string) (ts []Triplet, malformed int, err error) {
	var items []json.RawMessage
	if derr := Decode(raw, &items); derr != nil {
		var wrapped struct {
			Triplets []json.RawMessage `json:"triplets"`
		}
		if err := Decode(raw, &wrapped); err != nil || wrapped.Triplets == nil {
			return nil, 0, derr
		}
		items = wrapped.Triplets
	}
	ts = make([]Triplet, 0, len(items))
	for _, item := range items {
		var t Triplet
		if err := json.Unmarshal(item, &t); err != nil {
			ts = append(ts, Empty)
			malformed++
			continue
		}
		ts = append(ts, t)
	}
	return ts, malformed, nil
}
