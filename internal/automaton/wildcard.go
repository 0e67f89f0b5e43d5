package automaton

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Wildcard pattern limits.
const MaxWildcardPatternLength = 256

var ErrWildcardPatternTooLong = errors.New("automaton: wildcard pattern exceeds maximum length")

// WildcardAutomaton accepts strings matching a wildcard pattern.
// Supports '*' (zero or more runes) and '?' (exactly one rune).
//
// Construction converts the pattern to a DFA via NFA subset construction.
// The DFA alphabet is the set of literal runes in the pattern; every other
// rune follows the state's "other" transition.
type WildcardAutomaton struct {
	transitions []map[rune]State
	other       []State
	accepting   []bool
	live        []bool
}

// NewWildcardAutomaton compiles a wildcard pattern into a DFA.
func NewWildcardAutomaton(pattern string) (*WildcardAutomaton, error) {
	runes := []rune(pattern)
	if len(runes) > MaxWildcardPatternLength {
		return nil, ErrWildcardPatternTooLong
	}
	return subsetConstruct(buildWildcardNFA(runes))
}

func (a *WildcardAutomaton) Start() State { return 1 }

func (a *WildcardAutomaton) Step(state State, r rune) State {
	if state == DeadState || int(state) >= len(a.transitions) {
		return DeadState
	}
	if next, ok := a.transitions[state][r]; ok {
		return next
	}
	return a.other[state]
}

func (a *WildcardAutomaton) IsAccept(state State) bool {
	if state == DeadState || int(state) >= len(a.accepting) {
		return false
	}
	return a.accepting[state]
}

func (a *WildcardAutomaton) CanMatch(state State) bool {
	return state != DeadState && int(state) < len(a.live) && a.live[state]
}

// --- NFA representation for wildcard patterns ---

type nfaState struct {
	literal rune // valid when hasLit
	hasLit  bool
	any     bool // transition on any rune
	loop    bool // '*' state: loops on any rune
	next    int
}

// buildWildcardNFA returns one state per pattern position plus a final
// accepting state. '*' is a self-looping state with an epsilon edge to
// its successor.
func buildWildcardNFA(pattern []rune) []nfaState {
	states := make([]nfaState, 0, len(pattern)+1)
	for i, ch := range pattern {
		s := nfaState{next: i + 1}
		switch ch {
		case '*':
			s.loop = true
		case '?':
			s.any = true
		default:
			s.literal, s.hasLit = ch, true
		}
		states = append(states, s)
	}
	return append(states, nfaState{next: -1})
}

func closure(nfa []nfaState, set map[int]bool) map[int]bool {
	stack := make([]int, 0, len(set))
	for s := range set {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nfa[s].loop && !set[nfa[s].next] {
			set[nfa[s].next] = true
			stack = append(stack, nfa[s].next)
		}
	}
	return set
}

func setKey(set map[int]bool) string {
	ids := make([]int, 0, len(set))
	for s := range set {
		ids = append(ids, s)
	}
	sort.Ints(ids)
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(strconv.Itoa(id))
		sb.WriteByte(',')
	}
	return sb.String()
}

// stepSet moves every state in set over r; r < 0 stands for a rune that
// is not a literal anywhere in the pattern.
func stepSet(nfa []nfaState, set map[int]bool, r rune) map[int]bool {
	out := make(map[int]bool)
	for s := range set {
		st := nfa[s]
		switch {
		case st.loop:
			out[s] = true
		case st.any:
			out[st.next] = true
		case st.hasLit && r >= 0 && st.literal == r:
			out[st.next] = true
		}
	}
	return closure(nfa, out)
}

// subsetConstruct converts an NFA to a DFA. Returns an error if the DFA
// exceeds MaxDFAStates.
func subsetConstruct(nfa []nfaState) (*WildcardAutomaton, error) {
	final := len(nfa) - 1
	var alphabet []rune
	seen := make(map[rune]bool)
	for _, s := range nfa {
		if s.hasLit && !seen[s.literal] {
			seen[s.literal] = true
			alphabet = append(alphabet, s.literal)
		}
	}

	// DFA state 0 = dead, state 1 = start
	dfa := &WildcardAutomaton{
		transitions: []map[rune]State{nil},
		other:       []State{DeadState},
		accepting:   []bool{false},
	}
	setToID := make(map[string]State)
	var queue []map[int]bool

	intern := func(set map[int]bool) (State, error) {
		if len(set) == 0 {
			return DeadState, nil
		}
		key := setKey(set)
		if id, ok := setToID[key]; ok {
			return id, nil
		}
		id := State(len(dfa.transitions))
		if int(id) >= MaxDFAStates {
			return DeadState, ErrDFAStateLimitExceeded
		}
		setToID[key] = id
		dfa.transitions = append(dfa.transitions, make(map[rune]State))
		dfa.other = append(dfa.other, DeadState)
		dfa.accepting = append(dfa.accepting, set[final])
		queue = append(queue, set)
		return id, nil
	}

	if _, err := intern(closure(nfa, map[int]bool{0: true})); err != nil {
		return nil, err
	}
	for id := State(1); len(queue) > 0; id++ {
		set := queue[0]
		queue = queue[1:]
		for _, r := range alphabet {
			next, err := intern(stepSet(nfa, set, r))
			if err != nil {
				return nil, err
			}
			dfa.transitions[id][r] = next
		}
		next, err := intern(stepSet(nfa, set, -1))
		if err != nil {
			return nil, err
		}
		dfa.other[id] = next
	}

	dfa.live = liveStates(dfa)
	return dfa, nil
}

// liveStates marks states from which an accepting state is reachable.
func liveStates(dfa *WildcardAutomaton) []bool {
	live := append([]bool(nil), dfa.accepting...)
	for changed := true; changed; {
		changed = false
		for id := 1; id < len(live); id++ {
			if live[id] {
				continue
			}
			reach := live[dfa.other[id]]
			for _, next := range dfa.transitions[id] {
				reach = reach || live[next]
			}
			if reach {
				live[id] = true
				changed = true
			}
		}
	}
	return live
}
