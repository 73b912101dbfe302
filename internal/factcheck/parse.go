package factcheck

import (
	"errors"
	"fmt"
	"strconv"

	"factbench/internal/triplet"
)

// ParseJudgments decodes an "index -> bool" object from model output.
func ParseJudgments(raw string) (Result, error) {
	var m map[string]bool
	if err := triplet.Decode(raw, &m); err != nil {
		return nil, err
	}
	out := make(Result, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, &triplet.ParseError{Raw: raw, Err: fmt.Errorf("index %q is not an integer", k)}
		}
		out[i] = v
	}
	return out, nil
}

// ParseVerdict decodes the single judgment of a one-triplet prompt: either
// a bare boolean or an object with exactly one entry.
func ParseVerdict(raw string) (bool, error) {
	var v bool
	if err := triplet.Decode(raw, &v); err == nil {
		return v, nil
	}
	m, err := ParseJudgments(raw)
	if err != nil {
		return false, err
	}
	if len(m) != 1 {
		return false, &triplet.ParseError{Raw: raw, Err: errors.New("want exactly one judgment")}
	}
	for _, v := range m {
		return v, nil
	}
	return false, nil
}
