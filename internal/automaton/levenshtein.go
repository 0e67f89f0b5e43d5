package automaton

import (
	"errors"
	"strconv"
	"strings"
)

// Levenshtein automaton limits.
const MaxEditDistance = 2

var ErrEditDistanceTooLarge = errors.New("automaton: edit distance must be between 0 and 2")

// LevenshteinAutomaton accepts strings within edit distance ≤ maxDist of
// the target.
//
// Each state is a row of the edit-distance table against the target,
// with entries capped at maxDist+1. Rows are interned lazily as they are
// reached, so the DFA only ever contains the rows the vocabulary visits.
// Because of that a LevenshteinAutomaton is not safe for concurrent use.
type LevenshteinAutomaton struct {
	target  []rune
	maxDist int

	rows  [][]int
	index map[string]State
}

// NewLevenshteinAutomaton creates an automaton accepting strings within
// the given edit distance of the target.
func NewLevenshteinAutomaton(target string, maxDist int) (*LevenshteinAutomaton, error) {
	if maxDist < 0 || maxDist > MaxEditDistance {
		return nil, ErrEditDistanceTooLarge
	}
	a := &LevenshteinAutomaton{
		target:  []rune(target),
		maxDist: maxDist,
		rows:    [][]int{nil}, // DeadState
		index:   make(map[string]State),
	}
	start := make([]int, len(a.target)+1)
	for i := range start {
		start[i] = a.cap(i)
	}
	a.intern(start)
	return a, nil
}

func (a *LevenshteinAutomaton) cap(d int) int {
	if d > a.maxDist {
		return a.maxDist + 1
	}
	return d
}

func (a *LevenshteinAutomaton) intern(row []int) State {
	var sb strings.Builder
	for _, d := range row {
		sb.WriteString(strconv.Itoa(d))
		sb.WriteByte(',')
	}
	key := sb.String()
	if id, ok := a.index[key]; ok {
		return id
	}
	id := State(len(a.rows))
	a.rows = append(a.rows, row)
	a.index[key] = id
	return id
}

func (a *LevenshteinAutomaton) Start() State { return 1 }

func (a *LevenshteinAutomaton) Step(state State, r rune) State {
	if state == DeadState || int(state) >= len(a.rows) {
		return DeadState
	}
	prev := a.rows[state]
	row := make([]int, len(prev))
	row[0] = a.cap(prev[0] + 1)
	best := row[0]
	for i, t := range a.target {
		cost := 1
		if t == r {
			cost = 0
		}
		d := min(prev[i]+cost, prev[i+1]+1, row[i]+1)
		row[i+1] = a.cap(d)
		best = min(best, row[i+1])
	}
	if best > a.maxDist {
		return DeadState
	}
	return a.intern(row)
}

func (a *LevenshteinAutomaton) IsAccept(state State) bool {
	if state == DeadState || int(state) >= len(a.rows) {
		return false
	}
	row := a.rows[state]
	return row[len(row)-1] <= a.maxDist
}

func (a *LevenshteinAutomaton) CanMatch(state State) bool {
	return state != DeadState && int(state) < len(a.rows)
}
