package fimatch

import (
	"errors"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// MaxUnlimited is the repetition upper bound meaning "no limit".
const MaxUnlimited = math.MaxInt32

var (
	ErrInvalidRepetition = errors.New("fimatch: invalid repetition bounds")
	ErrEpsilonCycle      = errors.New("fimatch: cycle that consumes no tokens")
	ErrDanglingEdge      = errors.New("fimatch: unresolved dangling edge")
	ErrEmptyAnd          = errors.New("fimatch: AND needs at least one clause")
	ErrUnknownAnnotation = errors.New("fimatch: unknown annotation")
)

// StateID is a handle into a builder's state arena.
type StateID int32

// NoState marks an edge that has not been resolved yet.
const NoState StateID = -1

type stateKind uint8

const (
	kindMatch stateKind = iota
	kindToken
	kindNotToken
	kindAnyToken
	kindOr
	kindAnd
)

func (k stateKind) String() string {
	switch k {
	case kindMatch:
		return "match"
	case kindToken:
		return "token"
	case kindNotToken:
		return "not"
	case kindAnyToken:
		return "any"
	case kindOr:
		return "or"
	case kindAnd:
		return "and"
	default:
		return "unknown"
	}
}

// consumes reports whether the state reads one token before moving on.
func (k stateKind) consumes() bool {
	return k == kindToken || k == kindNotToken || k == kindAnyToken
}

// state is one node of the automaton. Token-like states follow next after
// consuming a token. Or states try each alternative at the same position.
// And states require every clause in alts to end at the same position and
// continue at next from there.
type state struct {
	kind  stateKind
	annot int
	label string
	terms *roaring.Bitmap
	next  StateID
	alts  []StateID
}

func (s *state) accepts(id TermID) bool {
	return id != NoTerm && s.terms.Contains(uint32(id))
}
