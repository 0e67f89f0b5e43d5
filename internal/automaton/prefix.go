package automaton

// PrefixAutomaton accepts all strings starting with a given prefix.
//
// States: 1..len(prefix)+1, where state len(prefix)+1 is the accepting
// state that loops on any rune.
type PrefixAutomaton struct {
	prefix []rune
}

// NewPrefixAutomaton creates an automaton that accepts strings with the given prefix.
func NewPrefixAutomaton(prefix string) *PrefixAutomaton {
	return &PrefixAutomaton{prefix: []rune(prefix)}
}

func (a *PrefixAutomaton) Start() State { return 1 }

func (a *PrefixAutomaton) Step(state State, r rune) State {
	if state == DeadState {
		return DeadState
	}
	pos := int(state) - 1
	if pos < len(a.prefix) {
		if r == a.prefix[pos] {
			return State(pos + 2)
		}
		return DeadState
	}
	return state
}

func (a *PrefixAutomaton) IsAccept(state State) bool {
	return state != DeadState && int(state)-1 >= len(a.prefix)
}

func (a *PrefixAutomaton) CanMatch(state State) bool {
	return state != DeadState
}
