// Package optimize decides when a sequence clause is better matched with an
// automaton over the forward index than through the term index.
//
// Forward matching means the left clause is found through the term index
// and the right clause is then checked with an automaton reading forward.
// Backward matching is the mirror image.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

const (
	// NoNfaMatching as threshold disables automaton matching.
	NoNfaMatching int64 = 0
	// MaxNfaMatching as threshold makes as many automata as possible.
	MaxNfaMatching int64 = math.MaxInt64

	DefaultNfaThreshold           int64 = 900
	DefaultManyUniqueTermsMinimum int64 = 10_000

	// ForwardPriority and BackwardPriority are the base priorities of a
	// combination; lower numbers are applied first.
	ForwardPriority  = 10_000_000
	BackwardPriority = 10_000_001
	// CannotCombine is the priority of a pair that must not be combined.
	CannotCombine = math.MaxInt32

	// termFreqDivider weighs how expensive fetching many positions from the
	// term index is.
	termFreqDivider = 500
	// costRatioFactor scales cost ratios into a useful integer range.
	costRatioFactor = 1000
)

var ErrInvalidConfig = errors.New("optimize: invalid configuration")

// Config holds the tuning knobs of the decision. The zero value disables
// automaton matching; use DefaultConfig.
type Config struct {
	// ForwardIndexMatchingThreshold is the largest absolute factor that is
	// still combined. NoNfaMatching switches combining off.
	ForwardIndexMatchingThreshold int64 `json:"forward_index_matching_threshold"`
	// OnlyUseNfaForManyUniqueTerms skips automata for annotations with few
	// distinct terms, such as part of speech.
	OnlyUseNfaForManyUniqueTerms bool  `json:"only_use_nfa_for_many_unique_terms"`
	ManyUniqueTermsMinimum       int64 `json:"many_unique_terms_minimum"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ForwardIndexMatchingThreshold: DefaultNfaThreshold,
		OnlyUseNfaForManyUniqueTerms:  true,
		ManyUniqueTermsMinimum:        DefaultManyUniqueTermsMinimum,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.ForwardIndexMatchingThreshold < 0 {
		return fmt.Errorf("%w: threshold %d is negative", ErrInvalidConfig, c.ForwardIndexMatchingThreshold)
	}
	if c.ManyUniqueTermsMinimum < 0 {
		return fmt.Errorf("%w: unique terms minimum %d is negative", ErrInvalidConfig, c.ManyUniqueTermsMinimum)
	}
	return nil
}

// ClauseStats are the cost figures of one clause.
type ClauseStats struct {
	// ForwardCost estimates the work of matching the clause with an
	// automaton at one position.
	ForwardCost int64
	// ReverseCost estimates the number of hits found through the term index.
	ReverseCost int64
	CanMakeNfa  bool
	// MatchesEmpty reports whether the clause can match zero tokens.
	MatchesEmpty bool
	// UniqueTerms is the vocabulary size of the clause's annotation.
	UniqueTerms int64
}

// Combined returns the stats of a clause pair after combining: the anchor
// is still found through the term index, the other side is matched with an
// automaton.
func Combined(anchor, nfa ClauseStats) ClauseStats {
	return ClauseStats{
		ForwardCost:  saturatingAdd(anchor.ForwardCost, nfa.ForwardCost),
		ReverseCost:  anchor.ReverseCost,
		CanMakeNfa:   anchor.CanMakeNfa && nfa.CanMakeNfa,
		MatchesEmpty: anchor.MatchesEmpty && nfa.MatchesEmpty,
		UniqueTerms:  anchor.UniqueTerms,
	}
}

// Direction is the direction an automaton is run in.
type Direction int

const (
	None Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// Decision is the outcome for one pair of adjacent clauses.
type Decision struct {
	UseNfa    bool
	Direction Direction
	Factor    int64
	// Priority orders decisions; lower is better. CannotCombine when
	// UseNfa is false.
	Priority int
}

// Factor measures how desirable automaton matching is for the pair. Zero
// means impossible. A positive value selects forward matching, a negative
// one backward matching; the smaller the absolute value, the better.
func Factor(cfg Config, left, right ClauseStats) int64 {
	if cfg.ForwardIndexMatchingThreshold == NoNfaMatching {
		return 0
	}

	numLeft := max(1, left.ReverseCost)
	numRight := max(1, right.ReverseCost)
	seqReverseCost := saturatingAdd(min(numLeft, numRight), saturatingAdd(numLeft, numRight)/termFreqDivider)

	costForward := mulDiv(numLeft, saturatingMul(costRatioFactor, right.ForwardCost), seqReverseCost)
	costBackward := mulDiv(numRight, saturatingMul(costRatioFactor, left.ForwardCost), seqReverseCost)

	forwardPossible := right.CanMakeNfa && !left.MatchesEmpty
	backwardPossible := left.CanMakeNfa && !right.MatchesEmpty

	switch {
	case forwardPossible && backwardPossible:
		if costBackward >= costForward {
			return saturatingAdd(costForward, 1)
		}
		return -saturatingAdd(costBackward, 1)
	case forwardPossible:
		return saturatingAdd(costForward, 1)
	case backwardPossible:
		return -saturatingAdd(costBackward, 1)
	}
	return 0
}

// Decide applies the threshold and the unique terms gate to the factor of
// a pair.
func Decide(cfg Config, left, right ClauseStats) Decision {
	factor := Factor(cfg, left, right)
	d := Decision{Factor: factor, Priority: CannotCombine}
	if factor == 0 {
		return d
	}
	abs := factor
	if abs < 0 {
		abs = -abs
	}
	if abs > cfg.ForwardIndexMatchingThreshold {
		return d
	}
	if cfg.OnlyUseNfaForManyUniqueTerms {
		if factor > 0 && right.UniqueTerms < cfg.ManyUniqueTermsMinimum ||
			factor < 0 && left.UniqueTerms < cfg.ManyUniqueTermsMinimum {
			return d
		}
	}

	d.UseNfa = true
	if factor > 0 {
		d.Direction = Forward
		d.Priority = ForwardPriority - int(10_000/abs)
	} else {
		d.Direction = Backward
		d.Priority = BackwardPriority - int(10_000/abs)
	}
	return d
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func saturatingMul(a, b int64) int64 {
	return mulDiv(a, b, 1)
}

// mulDiv computes a*b/c for non-negative a, b and positive c without
// intermediate overflow, saturating at math.MaxInt64.
func mulDiv(a, b, c int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}
