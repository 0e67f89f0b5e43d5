package engine

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
)

var ErrNoAutomaton = errors.New("engine: no automaton for direction")

// Cursor is the matching state of one document.
type Cursor struct {
	Doc    uint32
	Tokens fimatch.ForwardIndexDocument
	// Groups holds the captures made so far, indexed by group slot.
	Groups []*matchfilter.Span
	Exec   *ExecutionContext

	// deferred holds the nested filters of the partial hit, checked once
	// the whole hit is known.
	deferred []deferredFilter
	// positions caches the postings of each term clause in Doc.
	positions map[*PostingsMatcher][]int32
}

func (c *Cursor) positionsOf(m *PostingsMatcher) []int32 {
	if pos, ok := c.positions[m]; ok {
		return pos
	}
	if c.positions == nil {
		c.positions = make(map[*PostingsMatcher][]int32)
	}
	pos := m.Source.Positions(c.Doc)
	c.positions[m] = pos
	return pos
}

type deferredFilter struct {
	m     *ConstrainedMatcher
	local []*matchfilter.Span
}

// deferredHold reports whether the deferred filters from index from on
// pass. Slots captured inside a constrained clause keep the span they had
// when the clause matched; every other slot is read from the current
// groups.
func (c *Cursor) deferredHold(from int) bool {
	if len(c.deferred) <= from {
		return true
	}
	groups := make([]*matchfilter.Span, len(c.Groups))
	for _, d := range c.deferred[from:] {
		copy(groups, c.Groups)
		for i, slot := range d.m.Local {
			groups[slot] = d.local[i]
		}
		if !d.m.Filter.Matches(c.Tokens, groups) {
			return false
		}
	}
	return true
}

func (c *Cursor) step() error {
	if c.Exec == nil {
		return nil
	}
	return c.Exec.Step()
}

// Emit receives the length of one match. Returning an error stops matching.
type Emit func(length int) error

// ClauseMatcher finds the matches of one clause next to a position.
type ClauseMatcher interface {
	// Match calls emit with the length of every match that starts at pos
	// when dir is Forward, or ends at pos when dir is Backward. Lengths
	// may repeat when a clause matches the same span in several ways.
	Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error
	String() string
}

// PositionSource exposes the postings of one term set.
type PositionSource interface {
	// Positions returns the sorted positions of the terms in doc.
	Positions(doc uint32) []int32
	// Iterator returns a fresh iterator over the documents holding a term.
	Iterator() PostingsIterator
}

// PostingsMatcher matches a single token through the term index.
type PostingsMatcher struct {
	Source PositionSource
	Label  string
}

func (m *PostingsMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	if err := c.step(); err != nil {
		return err
	}
	if dir == fimatch.Backward {
		pos--
	}
	if _, ok := slices.BinarySearch(c.positionsOf(m), int32(pos)); ok {
		return emit(1)
	}
	return nil
}

func (m *PostingsMatcher) String() string { return "postings(" + m.Label + ")" }

// NFAMatcher matches a clause by running an automaton over the forward
// index. Forward and Backward match the clause and its mirror image.
type NFAMatcher struct {
	Forward  *fimatch.NFA
	Backward *fimatch.NFA
	Label    string
}

func (m *NFAMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	if err := c.step(); err != nil {
		return err
	}
	nfa, start := m.Forward, pos
	if dir == fimatch.Backward {
		nfa, start = m.Backward, pos-1
	}
	if nfa == nil {
		return ErrNoAutomaton
	}
	src := fimatch.NewTokenSource(c.Tokens, start, dir)
	for _, length := range nfa.FindMatches(src, 0) {
		if err := emit(length); err != nil {
			return err
		}
	}
	return nil
}

func (m *NFAMatcher) String() string { return "nfa(" + m.Label + ")" }

// AnyTokenMatcher matches one token of any value.
type AnyTokenMatcher struct{}

func (AnyTokenMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	if err := c.step(); err != nil {
		return err
	}
	if dir == fimatch.Backward {
		pos--
	}
	if c.Tokens.ValidPos(pos) {
		return emit(1)
	}
	return nil
}

func (AnyTokenMatcher) String() string { return "any" }

// SequenceMatcher matches its clauses one after another.
type SequenceMatcher struct {
	Clauses []ClauseMatcher
}

func (m *SequenceMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	return m.next(c, pos, dir, 0, 0, emit)
}

func (m *SequenceMatcher) next(c *Cursor, pos int, dir fimatch.Direction, i, total int, emit Emit) error {
	if i == len(m.Clauses) {
		return emit(total)
	}
	clause := m.Clauses[i]
	if dir == fimatch.Backward {
		clause = m.Clauses[len(m.Clauses)-1-i]
	}
	return clause.Match(c, pos+int(dir)*total, dir, func(length int) error {
		return m.next(c, pos, dir, i+1, total+length, emit)
	})
}

func (m *SequenceMatcher) String() string { return "seq(" + join(m.Clauses) + ")" }

// OrMatcher matches any of its clauses.
type OrMatcher struct {
	Clauses []ClauseMatcher
}

func (m *OrMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	for _, clause := range m.Clauses {
		if err := clause.Match(c, pos, dir, emit); err != nil {
			return err
		}
	}
	return nil
}

func (m *OrMatcher) String() string { return "or(" + join(m.Clauses) + ")" }

// AndMatcher matches spans matched by every clause. Only the captures of
// the first clause survive.
type AndMatcher struct {
	Clauses []ClauseMatcher
}

func (m *AndMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	var common *roaring.Bitmap
	mark := len(c.deferred)
	for _, clause := range m.Clauses[1:] {
		lengths := roaring.New()
		// Captures of these clauses do not outlive the match, so their
		// filters are checked right away.
		err := clause.Match(c, pos, dir, func(length int) error {
			if c.deferredHold(mark) {
				lengths.Add(uint32(length))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if common == nil {
			common = lengths
		} else {
			common.And(lengths)
		}
		if common.IsEmpty() {
			return nil
		}
	}
	return m.Clauses[0].Match(c, pos, dir, func(length int) error {
		if common != nil && !common.Contains(uint32(length)) {
			return nil
		}
		return emit(length)
	})
}

func (m *AndMatcher) String() string { return "and(" + join(m.Clauses) + ")" }

// RepeatMatcher matches Min to Max consecutive matches of Clause. Max may
// be fimatch.MaxUnlimited. Past Min, iterations of length zero are skipped.
type RepeatMatcher struct {
	Clause ClauseMatcher
	Min    int
	Max    int
}

func (m *RepeatMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	return m.repeat(c, pos, dir, 0, 0, emit)
}

func (m *RepeatMatcher) repeat(c *Cursor, pos int, dir fimatch.Direction, count, total int, emit Emit) error {
	if count >= m.Min {
		if err := emit(total); err != nil {
			return err
		}
	}
	if m.Max != fimatch.MaxUnlimited && count >= m.Max {
		return nil
	}
	if err := c.step(); err != nil {
		return err
	}
	return m.Clause.Match(c, pos+int(dir)*total, dir, func(length int) error {
		if length == 0 && count >= m.Min {
			return nil
		}
		return m.repeat(c, pos, dir, count+1, total+length, emit)
	})
}

func (m *RepeatMatcher) String() string {
	max := "inf"
	if m.Max != fimatch.MaxUnlimited {
		max = strconv.Itoa(m.Max)
	}
	return m.Clause.String() + "{" + strconv.Itoa(m.Min) + "," + max + "}"
}

// CaptureMatcher records the span of Clause in group slot Slot while the
// rest of the hit is matched.
type CaptureMatcher struct {
	Clause ClauseMatcher
	Slot   int
	Name   string
}

func (m *CaptureMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	return m.Clause.Match(c, pos, dir, func(length int) error {
		prev := c.Groups[m.Slot]
		start, end := spanOf(pos, length, dir)
		c.Groups[m.Slot] = &matchfilter.Span{Start: start, End: end}
		err := emit(length)
		c.Groups[m.Slot] = prev
		return err
	})
}

func (m *CaptureMatcher) String() string { return m.Name + ":" + m.Clause.String() }

// ConstrainedMatcher keeps the matches of Clause that pass Filter. The
// filter runs when the enclosing hit is complete, so it sees every capture
// of the hit whatever order the clauses were matched in. Local lists the
// group slots captured inside Clause.
type ConstrainedMatcher struct {
	Clause ClauseMatcher
	Filter *matchfilter.BoundFilter
	Local  []int
}

func (m *ConstrainedMatcher) Match(c *Cursor, pos int, dir fimatch.Direction, emit Emit) error {
	return m.Clause.Match(c, pos, dir, func(length int) error {
		local := make([]*matchfilter.Span, len(m.Local))
		for i, slot := range m.Local {
			local[i] = c.Groups[slot]
		}
		c.deferred = append(c.deferred, deferredFilter{m: m, local: local})
		err := emit(length)
		c.deferred = c.deferred[:len(c.deferred)-1]
		return err
	})
}

func (m *ConstrainedMatcher) String() string {
	return m.Clause.String() + "::" + m.Filter.String()
}

// CaptureSlots lists the group slots captured anywhere inside m.
func CaptureSlots(m ClauseMatcher) []int {
	var slots []int
	var walk func(m ClauseMatcher)
	walk = func(m ClauseMatcher) {
		switch v := m.(type) {
		case *CaptureMatcher:
			slots = append(slots, v.Slot)
			walk(v.Clause)
		case *ConstrainedMatcher:
			walk(v.Clause)
		case *RepeatMatcher:
			walk(v.Clause)
		case *SequenceMatcher:
			for _, c := range v.Clauses {
				walk(c)
			}
		case *OrMatcher:
			for _, c := range v.Clauses {
				walk(c)
			}
		case *AndMatcher:
			for _, c := range v.Clauses {
				walk(c)
			}
		}
	}
	walk(m)
	slices.Sort(slots)
	return slices.Compact(slots)
}

func spanOf(pos, length int, dir fimatch.Direction) (start, end int) {
	if dir == fimatch.Backward {
		return pos - length, pos
	}
	return pos, pos + length
}

func join(clauses []ClauseMatcher) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
