package automaton

import "errors"

// State represents a state in a deterministic finite automaton.
type State uint32

// DeadState is the sink state from which no accepting state is reachable.
const DeadState State = 0

// MaxDFAStates bounds the number of states any automaton may build.
const MaxDFAStates = 10000

var ErrDFAStateLimitExceeded = errors.New("automaton: DFA state limit exceeded")

// Automaton is the interface for term expansion (prefix, wildcard, fuzzy).
// Every vocabulary key is run through the automaton rune by rune.
//
// Properties:
//   - Deterministic: single transition per (state, input)
//   - No ε-transitions
type Automaton interface {
	// Start returns the initial state.
	Start() State

	// Step returns the next state for the given input rune.
	// Returns DeadState if no transition exists.
	Step(state State, r rune) State

	// IsAccept returns true if the state is an accepting state.
	IsAccept(state State) bool

	// CanMatch returns true if any accepting state is reachable from this
	// state. Used to stop scanning a key early.
	CanMatch(state State) bool
}

// Run feeds s through a and reports whether it ends in an accepting state.
func Run(a Automaton, s string) bool {
	state := a.Start()
	for _, r := range s {
		state = a.Step(state, r)
		if state == DeadState || !a.CanMatch(state) {
			return false
		}
	}
	return a.IsAccept(state)
}

// Matcher adapts a to the key predicate used by vocabulary expansion.
func Matcher(a Automaton) func(key string) bool {
	return func(key string) bool { return Run(a, key) }
}
