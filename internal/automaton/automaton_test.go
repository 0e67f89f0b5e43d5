package automaton

import (
	"strings"
	"testing"
)

func checkAccepts(t *testing.T, name string, a Automaton, accepts, rejects []string) {
	t.Helper()
	for _, s := range accepts {
		if !Run(a, s) {
			t.Errorf("%s should accept %q", name, s)
		}
	}
	for _, s := range rejects {
		if Run(a, s) {
			t.Errorf("%s should reject %q", name, s)
		}
	}
}

// --- Prefix Automaton Tests ---

func TestPrefixAutomaton(t *testing.T) {
	a := NewPrefixAutomaton("hel")
	checkAccepts(t, "Prefix(hel)", a,
		[]string{"hel", "hell", "hello", "help", "helmet"},
		[]string{"he", "h", "world", "", "HEL"})
}

func TestPrefixAutomaton_EmptyPrefix(t *testing.T) {
	checkAccepts(t, "Prefix('')", NewPrefixAutomaton(""), []string{"", "a", "hello"}, nil)
}

func TestPrefixAutomaton_Runes(t *testing.T) {
	checkAccepts(t, "Prefix(café)", NewPrefixAutomaton("café"),
		[]string{"café", "cafés"},
		[]string{"cafe", "caf"})
}

func TestPrefixAutomaton_CanMatch(t *testing.T) {
	a := NewPrefixAutomaton("ab")

	state := a.Start()
	if !a.CanMatch(state) {
		t.Error("start state should CanMatch")
	}
	if state = a.Step(state, 'a'); !a.CanMatch(state) {
		t.Error("after 'a' should CanMatch")
	}
	if dead := a.Step(a.Start(), 'x'); a.CanMatch(dead) {
		t.Error("dead state should not CanMatch")
	}
}

// --- Wildcard Automaton Tests ---

func mustWildcard(t *testing.T, pattern string) *WildcardAutomaton {
	t.Helper()
	a, err := NewWildcardAutomaton(pattern)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestWildcardAutomaton(t *testing.T) {
	tests := []struct {
		pattern          string
		accepts, rejects []string
	}{
		{"h*o", []string{"ho", "heo", "hello", "hallo"}, []string{"h", "hello!", "world", "o"}},
		{"h?llo", []string{"hallo", "hello", "hxllo", "hëllo"}, []string{"hllo", "heello", "llo"}},
		{"*tion", []string{"tion", "action", "section"}, []string{"tio", "actions", ""}},
		{"*", []string{"", "a", "anything"}, nil},
		{"hello", []string{"hello"}, []string{"hell", "helloo"}},
		{"a*b*c", []string{"abc", "aXbYc", "abbbc", "acbc"}, []string{"ab", "acb", "bac"}},
		{"??", []string{"ab", "éé"}, []string{"a", "abc"}},
	}
	for _, tc := range tests {
		checkAccepts(t, "Wildcard("+tc.pattern+")", mustWildcard(t, tc.pattern), tc.accepts, tc.rejects)
	}
}

func TestWildcardAutomaton_CanMatchPrunes(t *testing.T) {
	a := mustWildcard(t, "ab*")
	if s := a.Step(a.Start(), 'x'); a.CanMatch(s) {
		t.Error("state after a mismatching first rune should not CanMatch")
	}
	s := a.Step(a.Step(a.Start(), 'a'), 'b')
	if !a.IsAccept(s) || !a.CanMatch(a.Step(s, 'z')) {
		t.Error("trailing star should keep accepting")
	}
}

func TestWildcardAutomaton_TooLong(t *testing.T) {
	_, err := NewWildcardAutomaton(strings.Repeat("a", MaxWildcardPatternLength+1))
	if err != ErrWildcardPatternTooLong {
		t.Errorf("err = %v, want ErrWildcardPatternTooLong", err)
	}
}

// --- Levenshtein Automaton Tests ---

func mustLevenshtein(t *testing.T, target string, dist int) *LevenshteinAutomaton {
	t.Helper()
	a, err := NewLevenshteinAutomaton(target, dist)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestLevenshteinAutomaton_Distance1(t *testing.T) {
	checkAccepts(t, "Levenshtein(hello,1)", mustLevenshtein(t, "hello", 1),
		[]string{"hello", "hallo", "helloo", "helo", "hell", "ello", "jello"},
		[]string{"world", "hlelo", "he", "helloooo"})
}

func TestLevenshteinAutomaton_Distance2(t *testing.T) {
	checkAccepts(t, "Levenshtein(hello,2)", mustLevenshtein(t, "hello", 2),
		[]string{"hlelo", "hel", "yellow"},
		[]string{"h", "world"})
}

func TestLevenshteinAutomaton_Distance0(t *testing.T) {
	checkAccepts(t, "Levenshtein(cat,0)", mustLevenshtein(t, "cat", 0),
		[]string{"cat"}, []string{"bat", "ca", "cats"})
}

func TestLevenshteinAutomaton_Runes(t *testing.T) {
	checkAccepts(t, "Levenshtein(café,1)", mustLevenshtein(t, "café", 1),
		[]string{"cafe", "café", "cafés"}, []string{"caffe"})
}

func TestLevenshteinAutomaton_InvalidDistance(t *testing.T) {
	for _, d := range []int{-1, 3} {
		if _, err := NewLevenshteinAutomaton("hello", d); err != ErrEditDistanceTooLarge {
			t.Errorf("distance %d: err = %v", d, err)
		}
	}
}

func TestLevenshteinAutomaton_CanMatch(t *testing.T) {
	a := mustLevenshtein(t, "ab", 1)
	if !a.CanMatch(a.Start()) {
		t.Error("start state should CanMatch")
	}
	if a.CanMatch(DeadState) {
		t.Error("dead state should not CanMatch")
	}
	if s := a.Step(a.Step(a.Start(), 'x'), 'y'); s != DeadState {
		t.Error("two mismatches at distance 1 should reach the dead state")
	}
}

func TestMatcher(t *testing.T) {
	match := Matcher(NewPrefixAutomaton("walk"))
	if !match("walking") || match("talk") {
		t.Error("Matcher should follow the automaton")
	}
}
