package fimatch

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// NFA is a finished, immutable token automaton. It is safe for concurrent
// use by any number of goroutines, each with its own TokenSource.
type NFA struct {
	states []state
	start  StateID
	match  StateID
}

// Matches reports whether the automaton matches the tokens of src starting
// at relative position relPos.
func (n *NFA) Matches(src TokenSource, relPos int) bool {
	return n.matches(n.start, src, relPos)
}

func (n *NFA) matches(id StateID, src TokenSource, pos int) bool {
	s := &n.states[id]
	switch s.kind {
	case kindMatch:
		return true
	case kindToken:
		if !src.ValidPos(pos) || !s.accepts(src.Token(s.annot, pos)) {
			return false
		}
		return n.matches(s.next, src, pos+1)
	case kindNotToken:
		if !src.ValidPos(pos) || s.accepts(src.Token(s.annot, pos)) {
			return false
		}
		return n.matches(s.next, src, pos+1)
	case kindAnyToken:
		if !src.ValidPos(pos) {
			return false
		}
		return n.matches(s.next, src, pos+1)
	case kindOr:
		for _, a := range s.alts {
			if n.matches(a, src, pos) {
				return true
			}
		}
		return false
	case kindAnd:
		ends := n.andEnds(s, src, pos)
		it := ends.Iterator()
		for it.HasNext() {
			if n.matches(s.next, src, int(it.Next())) {
				return true
			}
		}
		return false
	}
	return false
}

// FindMatches returns the sorted relative end positions (exclusive) of all
// matches starting at relPos.
func (n *NFA) FindMatches(src TokenSource, relPos int) []int {
	ends := roaring.New()
	n.collect(n.start, src, relPos, ends, make(map[visit]struct{}))
	out := make([]int, 0, ends.GetCardinality())
	it := ends.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

type visit struct {
	id  StateID
	pos int
}

func (n *NFA) collect(id StateID, src TokenSource, pos int, ends *roaring.Bitmap, seen map[visit]struct{}) {
	key := visit{id: id, pos: pos}
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}

	s := &n.states[id]
	switch s.kind {
	case kindMatch:
		ends.Add(uint32(pos))
	case kindToken:
		if src.ValidPos(pos) && s.accepts(src.Token(s.annot, pos)) {
			n.collect(s.next, src, pos+1, ends, seen)
		}
	case kindNotToken:
		if src.ValidPos(pos) && !s.accepts(src.Token(s.annot, pos)) {
			n.collect(s.next, src, pos+1, ends, seen)
		}
	case kindAnyToken:
		if src.ValidPos(pos) {
			n.collect(s.next, src, pos+1, ends, seen)
		}
	case kindOr:
		for _, a := range s.alts {
			n.collect(a, src, pos, ends, seen)
		}
	case kindAnd:
		common := n.andEnds(s, src, pos)
		it := common.Iterator()
		for it.HasNext() {
			n.collect(s.next, src, int(it.Next()), ends, seen)
		}
	}
}

// andEnds intersects the end positions of every clause of an And state.
func (n *NFA) andEnds(s *state, src TokenSource, pos int) *roaring.Bitmap {
	var common *roaring.Bitmap
	for _, c := range s.alts {
		ends := roaring.New()
		n.collect(c, src, pos, ends, make(map[visit]struct{}))
		if common == nil {
			common = ends
		} else {
			common.And(ends)
		}
		if common.IsEmpty() {
			break
		}
	}
	if common == nil {
		return roaring.New()
	}
	return common
}

// validate rejects unresolved edges and cycles that consume no tokens.
func (n *NFA) validate() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[StateID]int)
	var visitEps func(id StateID) error
	visitEps = func(id StateID) error {
		switch color[id] {
		case grey:
			return fmt.Errorf("%w: through state #%d", ErrEpsilonCycle, id)
		case black:
			return nil
		}
		color[id] = grey
		s := &n.states[id]
		if !s.kind.consumes() {
			for _, a := range s.alts {
				if a == NoState {
					return fmt.Errorf("%w: state #%d", ErrDanglingEdge, id)
				}
				if err := visitEps(a); err != nil {
					return err
				}
			}
			if s.kind == kindAnd {
				if s.next == NoState {
					return fmt.Errorf("%w: state #%d", ErrDanglingEdge, id)
				}
				// The next edge only counts as empty when every clause can
				// match nothing.
				if n.andMatchesEmpty(s) {
					if err := visitEps(s.next); err != nil {
						return err
					}
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range n.reachable() {
		s := &n.states[id]
		if s.kind.consumes() && s.next == NoState {
			return fmt.Errorf("%w: state #%d", ErrDanglingEdge, id)
		}
		if err := visitEps(id); err != nil {
			return err
		}
	}
	return nil
}

func (n *NFA) andMatchesEmpty(s *state) bool {
	for _, c := range s.alts {
		if !emptyPath(n.states, c, make(map[StateID]bool)) {
			return false
		}
	}
	return true
}

// reachable lists the states reachable from the start in discovery order.
func (n *NFA) reachable() []StateID {
	seen := map[StateID]bool{n.start: true}
	order := []StateID{n.start}
	for i := 0; i < len(order); i++ {
		s := &n.states[order[i]]
		targets := append([]StateID{s.next}, s.alts...)
		for _, t := range targets {
			if t == NoState || seen[t] {
				continue
			}
			seen[t] = true
			order = append(order, t)
		}
	}
	return order
}
