package sensitivity

import (
	"fmt"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sensitivity controls whether string comparisons honor case and diacritics.
// The zero value is fully insensitive.
type Sensitivity uint8

const (
	// Insensitive ignores both case and diacritics.
	Insensitive Sensitivity = 0
	// CaseOnly distinguishes case but ignores diacritics.
	CaseOnly Sensitivity = 1
	// DiacriticsOnly distinguishes diacritics but ignores case.
	DiacriticsOnly Sensitivity = 2
	// Sensitive distinguishes both case and diacritics.
	Sensitive Sensitivity = CaseOnly | DiacriticsOnly
)

// All lists every sensitivity mode in a fixed order. Vocabularies
// precompute sort positions for each of them.
var All = []Sensitivity{Insensitive, CaseOnly, DiacriticsOnly, Sensitive}

// CaseSensitive reports whether upper and lower case are distinguished.
func (s Sensitivity) CaseSensitive() bool { return s&CaseOnly != 0 }

// DiacriticsSensitive reports whether accented letters are distinguished.
func (s Sensitivity) DiacriticsSensitive() bool { return s&DiacriticsOnly != 0 }

// String returns the short code used in pattern JSON: "i", "c", "d" or "s".
func (s Sensitivity) String() string {
	switch s {
	case Insensitive:
		return "i"
	case CaseOnly:
		return "c"
	case DiacriticsOnly:
		return "d"
	case Sensitive:
		return "s"
	default:
		return fmt.Sprintf("Sensitivity(%d)", uint8(s))
	}
}

// Parse converts a short code (or its long form) into a Sensitivity.
// The empty string means Insensitive.
func Parse(code string) (Sensitivity, error) {
	switch code {
	case "", "i", "insensitive":
		return Insensitive, nil
	case "c", "case":
		return CaseOnly, nil
	case "d", "diacritics":
		return DiacriticsOnly, nil
	case "s", "sensitive":
		return Sensitive, nil
	default:
		return Insensitive, fmt.Errorf("sensitivity: unknown mode %q", code)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sensitivity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sensitivity) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Key returns the comparison key of term under s. Two terms are equal
// under s exactly when their keys are equal.
func Key(term string, s Sensitivity) string {
	if s == Sensitive {
		return term
	}
	if !s.DiacriticsSensitive() {
		stripped, _, err := transform.String(stripMarks(), term)
		if err == nil {
			term = stripped
		}
	}
	if !s.CaseSensitive() {
		term = cases.Fold().String(term)
	}
	return term
}

// Equal reports whether a and b compare equal under s.
func Equal(a, b string, s Sensitivity) bool {
	if a == b {
		return true
	}
	return Key(a, s) == Key(b, s)
}

// stripMarks builds a fresh transformer per call; transformers carry state.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
