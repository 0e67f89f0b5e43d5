package query

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
	"CorpusSearch/internal/sensitivity"
)

// patternJSON is the wire form of a pattern node. The "type" field selects
// the node; the other fields are read as that node needs them.
//
//	{"type": "seq", "clauses": [
//	  {"type": "capture", "name": "A", "clause": {"type": "term", "value": "the"}},
//	  {"type": "repeat", "clause": {"type": "any"}, "min": 1, "max": 2}
//	]}
type patternJSON struct {
	Type        string                   `json:"type"`
	Value       string                   `json:"value"`
	Annotation  string                   `json:"annotation"`
	Sensitivity *sensitivity.Sensitivity `json:"sensitivity"`
	Distance    int                      `json:"distance"`
	Clause      json.RawMessage          `json:"clause"`
	Clauses     []json.RawMessage        `json:"clauses"`
	Min         int                      `json:"min"`
	Max         *int                     `json:"max"`
	Direction   string                   `json:"direction"`
	Name        string                   `json:"name"`
	Filter      json.RawMessage          `json:"filter"`
}

type filterJSON struct {
	Type        string                   `json:"type"`
	A           json.RawMessage          `json:"a"`
	B           json.RawMessage          `json:"b"`
	Op          string                   `json:"op"`
	Value       json.RawMessage          `json:"value"`
	Group       string                   `json:"group"`
	Annotation  string                   `json:"annotation"`
	Left        string                   `json:"left"`
	Right       string                   `json:"right"`
	Edge        string                   `json:"edge"`
	Sensitivity *sensitivity.Sensitivity `json:"sensitivity"`
}

// Decode parses a JSON pattern tree and validates it.
func Decode(data []byte) (Pattern, error) {
	p, err := decodePattern(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodePattern(data []byte) (Pattern, error) {
	if isNull(data) {
		return nil, fmt.Errorf("%w: missing clause", ErrInvalidPattern)
	}
	var n patternJSON
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	tm := TokenMatch{Annotation: n.Annotation, Sensitivity: n.Sensitivity}

	switch n.Type {
	case "term":
		return &Term{TokenMatch: tm, Value: n.Value}, nil
	case "prefix":
		return &Prefix{TokenMatch: tm, Prefix: n.Value}, nil
	case "wildcard":
		return &Wildcard{TokenMatch: tm, Pattern: n.Value}, nil
	case "fuzzy":
		return &Fuzzy{TokenMatch: tm, Value: n.Value, MaxDistance: n.Distance}, nil
	case "any":
		return &AnyToken{}, nil
	case "not":
		c, err := decodePattern(n.Clause)
		if err != nil {
			return nil, err
		}
		return &Not{Clause: c}, nil
	case "seq", "or", "and":
		cs, err := decodePatterns(n.Clauses)
		if err != nil {
			return nil, err
		}
		switch n.Type {
		case "seq":
			return &Sequence{Clauses: cs}, nil
		case "or":
			return &Or{Clauses: cs}, nil
		}
		return &And{Clauses: cs}, nil
	case "repeat":
		c, err := decodePattern(n.Clause)
		if err != nil {
			return nil, err
		}
		return &Repetition{Clause: c, Min: n.Min, Max: maxBound(n.Max)}, nil
	case "expansion":
		c, err := decodePattern(n.Clause)
		if err != nil {
			return nil, err
		}
		var dir ExpandDirection
		switch n.Direction {
		case "left":
			dir = ExpandLeft
		case "right":
			dir = ExpandRight
		default:
			return nil, fmt.Errorf("%w: expansion direction %q", ErrInvalidPattern, n.Direction)
		}
		return &Expansion{Clause: c, Direction: dir, Min: n.Min, Max: maxBound(n.Max)}, nil
	case "capture":
		c, err := decodePattern(n.Clause)
		if err != nil {
			return nil, err
		}
		return &Capture{Name: n.Name, Clause: c}, nil
	case "constrained":
		c, err := decodePattern(n.Clause)
		if err != nil {
			return nil, err
		}
		f, err := DecodeFilter(n.Filter)
		if err != nil {
			return nil, err
		}
		return &Constrained{Clause: c, Filter: f}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPattern, n.Type)
}

func decodePatterns(raw []json.RawMessage) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		p, err := decodePattern(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// maxBound maps an absent or negative upper bound to MaxUnlimited.
func maxBound(m *int) int {
	if m == nil || *m < 0 {
		return fimatch.MaxUnlimited
	}
	return *m
}

// DecodeFilter parses a JSON match filter tree.
func DecodeFilter(data []byte) (matchfilter.Filter, error) {
	if isNull(data) {
		return nil, fmt.Errorf("%w: missing filter", ErrInvalidPattern)
	}
	var n filterJSON
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	s := sensitivity.Insensitive
	if n.Sensitivity != nil {
		s = *n.Sensitivity
	}

	switch n.Type {
	case "string":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: string value: %v", ErrInvalidPattern, err)
		}
		return matchfilter.NewStringLiteral(v), nil
	case "int":
		var v int
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: int value: %v", ErrInvalidPattern, err)
		}
		return matchfilter.NewIntLiteral(v), nil
	case "property":
		return matchfilter.NewTokenProperty(n.Group, n.Annotation), nil
	case "position":
		switch n.Edge {
		case "", "start":
			return matchfilter.NewGroupPosition(n.Group, false), nil
		case "end":
			return matchfilter.NewGroupPosition(n.Group, true), nil
		}
		return nil, fmt.Errorf("%w: position edge %q", ErrInvalidPattern, n.Edge)
	case "property_equals":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: property_equals value: %v", ErrInvalidPattern, err)
		}
		return matchfilter.NewTokenPropertyEqualsString(n.Group, n.Annotation, v, s), nil
	case "same_tokens":
		return matchfilter.NewSameTokens(n.Left, n.Right, n.Annotation, s), nil
	case "not":
		a, err := DecodeFilter(n.A)
		if err != nil {
			return nil, err
		}
		return matchfilter.NewNot(a), nil
	case "equals", "compare", "and", "or", "implication":
		a, err := DecodeFilter(n.A)
		if err != nil {
			return nil, err
		}
		b, err := DecodeFilter(n.B)
		if err != nil {
			return nil, err
		}
		switch n.Type {
		case "equals":
			return matchfilter.NewEquals(a, b, s), nil
		case "compare":
			c, err := matchfilter.NewCompare(a, n.Op, b, s)
			if err != nil {
				return nil, err
			}
			return c, nil
		case "and":
			return matchfilter.NewAnd(a, b), nil
		case "or":
			return matchfilter.NewOr(a, b), nil
		}
		return matchfilter.NewImplication(a, b), nil
	}
	return nil, fmt.Errorf("%w: unknown filter type %q", ErrInvalidPattern, n.Type)
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
