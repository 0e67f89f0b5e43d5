package fimatch

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Builder owns the state arena that fragments are assembled in.
// A Builder is not safe for concurrent use; the NFA it finishes is.
type Builder struct {
	states []state
	match  StateID
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	b := &Builder{}
	b.match = b.add(state{kind: kindMatch, next: NoState})
	return b
}

func (b *Builder) add(s state) StateID {
	b.states = append(b.states, s)
	return StateID(len(b.states) - 1)
}

// edge addresses an outgoing edge: alt < 0 is the next edge, otherwise an
// index into alts.
type edge struct {
	from StateID
	alt  int
}

// Fragment is a partially built automaton: a start state plus the edges
// that still have to be connected to whatever follows. A fragment is
// consumed by the operation it is passed to.
type Fragment struct {
	b        *Builder
	start    StateID
	dangling []edge
}

func (f *Fragment) patch(target StateID) {
	for _, e := range f.dangling {
		if e.alt < 0 {
			f.b.states[e.from].next = target
		} else {
			f.b.states[e.from].alts[e.alt] = target
		}
	}
	f.dangling = nil
}

func (b *Builder) own(f *Fragment) {
	if f.b != b {
		panic("fimatch: fragment belongs to a different builder")
	}
}

// Token matches one token whose term id is in terms. label is only used
// for dumps.
func (b *Builder) Token(annot int, terms *roaring.Bitmap, label string) *Fragment {
	if terms == nil {
		terms = roaring.New()
	}
	id := b.add(state{kind: kindToken, annot: annot, terms: terms, label: label, next: NoState})
	return &Fragment{b: b, start: id, dangling: []edge{{from: id, alt: -1}}}
}

// NotToken matches one existing token whose term id is not in terms.
func (b *Builder) NotToken(annot int, terms *roaring.Bitmap, label string) *Fragment {
	if terms == nil {
		terms = roaring.New()
	}
	id := b.add(state{kind: kindNotToken, annot: annot, terms: terms, label: label, next: NoState})
	return &Fragment{b: b, start: id, dangling: []edge{{from: id, alt: -1}}}
}

// AnyToken matches any single token.
func (b *Builder) AnyToken() *Fragment {
	id := b.add(state{kind: kindAnyToken, next: NoState})
	return &Fragment{b: b, start: id, dangling: []edge{{from: id, alt: -1}}}
}

// Empty matches the empty sequence.
func (b *Builder) Empty() *Fragment {
	id := b.add(state{kind: kindOr, alts: []StateID{NoState}, next: NoState})
	return &Fragment{b: b, start: id, dangling: []edge{{from: id, alt: 0}}}
}

// Append connects g after f and returns the combined fragment.
func (f *Fragment) Append(g *Fragment) *Fragment {
	f.b.own(g)
	f.patch(g.start)
	return &Fragment{b: f.b, start: f.start, dangling: g.dangling}
}

// Sequence chains the fragments in order. With no fragments it returns an
// empty-sequence fragment.
func (b *Builder) Sequence(frags ...*Fragment) *Fragment {
	if len(frags) == 0 {
		return b.Empty()
	}
	b.own(frags[0])
	result := frags[0]
	for _, f := range frags[1:] {
		result = result.Append(f)
	}
	return result
}

// Alternation matches any one of the fragments.
func (b *Builder) Alternation(frags ...*Fragment) *Fragment {
	if len(frags) == 1 {
		b.own(frags[0])
		return frags[0]
	}
	alts := make([]StateID, len(frags))
	var dangling []edge
	for i, f := range frags {
		b.own(f)
		alts[i] = f.start
		dangling = append(dangling, f.dangling...)
	}
	id := b.add(state{kind: kindOr, alts: alts, next: NoState})
	return &Fragment{b: b, start: id, dangling: dangling}
}

// And matches where every fragment matches the same span.
func (b *Builder) And(frags ...*Fragment) (*Fragment, error) {
	if len(frags) == 0 {
		return nil, ErrEmptyAnd
	}
	alts := make([]StateID, len(frags))
	for i, f := range frags {
		b.own(f)
		f.patch(b.match)
		alts[i] = f.start
	}
	id := b.add(state{kind: kindAnd, alts: alts, next: NoState})
	return &Fragment{b: b, start: id, dangling: []edge{{from: id, alt: -1}}}, nil
}

// Optional matches f or the empty sequence.
func (f *Fragment) Optional() *Fragment {
	id := f.b.add(state{kind: kindOr, alts: []StateID{f.start, NoState}, next: NoState})
	return &Fragment{b: f.b, start: id, dangling: append(f.dangling, edge{from: id, alt: 1})}
}

// Repeat matches between min and max consecutive occurrences of f. Pass
// MaxUnlimited for an open upper bound.
func (f *Fragment) Repeat(min, max int) (*Fragment, error) {
	b := f.b
	if min < 0 || max < 0 || min > max {
		return nil, fmt.Errorf("%w: {%d,%s}", ErrInvalidRepetition, min, boundString(max))
	}
	if max == 0 {
		return b.Empty(), nil
	}
	if min == 1 && max == 1 {
		return f, nil
	}
	unlimited := max == MaxUnlimited
	if unlimited && b.fragmentMatchesEmpty(f) {
		return nil, fmt.Errorf("%w: unbounded repetition of a clause that can match nothing", ErrEpsilonCycle)
	}

	n := max
	if unlimited {
		n = min + 1
	}
	parts := make([]*Fragment, n)
	parts[0] = f
	for i := 1; i < n; i++ {
		parts[i] = f.copy()
	}

	var tail *Fragment
	if unlimited {
		loop := parts[min]
		or := b.add(state{kind: kindOr, alts: []StateID{loop.start, NoState}, next: NoState})
		loop.patch(or)
		tail = &Fragment{b: b, start: or, dangling: []edge{{from: or, alt: 1}}}
	} else if max > min {
		// Every optional copy can skip to the end.
		dangling := append([]edge(nil), parts[max-1].dangling...)
		next := NoState
		for i := max - 1; i >= min; i-- {
			part := parts[i]
			if next != NoState {
				part.patch(next)
			}
			or := b.add(state{kind: kindOr, alts: []StateID{part.start, NoState}, next: NoState})
			dangling = append(dangling, edge{from: or, alt: 1})
			next = or
		}
		tail = &Fragment{b: b, start: next, dangling: dangling}
	}

	if min == 0 {
		return tail, nil
	}
	result := b.Sequence(parts[:min]...)
	if tail != nil {
		result = result.Append(tail)
	}
	return result, nil
}

// copy duplicates every state reachable from f's start. The shared match
// state is not duplicated.
func (f *Fragment) copy() *Fragment {
	b := f.b
	mapped := make(map[StateID]StateID)
	var walk func(id StateID) StateID
	walk = func(id StateID) StateID {
		if id == NoState || id == b.match {
			return id
		}
		if c, ok := mapped[id]; ok {
			return c
		}
		orig := b.states[id]
		clone := orig
		if orig.alts != nil {
			clone.alts = make([]StateID, len(orig.alts))
		}
		c := b.add(clone)
		mapped[id] = c
		next := walk(orig.next)
		b.states[c].next = next
		for i, a := range orig.alts {
			target := walk(a)
			b.states[c].alts[i] = target
		}
		return c
	}
	start := walk(f.start)
	dangling := make([]edge, len(f.dangling))
	for i, e := range f.dangling {
		dangling[i] = edge{from: mapped[e.from], alt: e.alt}
	}
	return &Fragment{b: b, start: start, dangling: dangling}
}

// fragmentMatchesEmpty reports whether f can reach one of its dangling
// edges without consuming a token.
func (b *Builder) fragmentMatchesEmpty(f *Fragment) bool {
	open := make(map[edge]bool, len(f.dangling))
	for _, e := range f.dangling {
		open[e] = true
	}
	seen := make(map[StateID]bool)
	var reach func(id StateID) bool
	reach = func(id StateID) bool {
		if id == NoState || seen[id] {
			return false
		}
		seen[id] = true
		s := &b.states[id]
		switch s.kind {
		case kindOr:
			for i, a := range s.alts {
				if (a == NoState && open[edge{from: id, alt: i}]) || reach(a) {
					return true
				}
			}
		case kindAnd:
			if !b.graphMatchesEmpty(id) {
				return false
			}
			return (s.next == NoState && open[edge{from: id, alt: -1}]) || reach(s.next)
		}
		return false
	}
	return reach(f.start)
}

// graphMatchesEmpty reports whether every clause of the And state id can
// reach the match state without consuming.
func (b *Builder) graphMatchesEmpty(id StateID) bool {
	for _, c := range b.states[id].alts {
		if !emptyPath(b.states, c, make(map[StateID]bool)) {
			return false
		}
	}
	return true
}

// Finish terminates all dangling edges of f in the match state, checks the
// graph and freezes it into an NFA.
func (b *Builder) Finish(f *Fragment) (*NFA, error) {
	b.own(f)
	f.patch(b.match)

	n := &NFA{states: make([]state, len(b.states)), start: f.start, match: b.match}
	copy(n.states, b.states)
	for i := range n.states {
		if n.states[i].alts != nil {
			n.states[i].alts = append([]StateID(nil), n.states[i].alts...)
		}
	}
	if err := n.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func boundString(max int) string {
	if max == MaxUnlimited {
		return "inf"
	}
	return fmt.Sprintf("%d", max)
}
