package fimatch

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// String renders the automaton with states numbered in visiting order,
// e.g. NFA:#1:TOKEN(test,#2:MATCH()). Shared states are printed once and
// referred to by number afterwards.
func (n *NFA) String() string {
	var sb strings.Builder
	sb.WriteString("NFA:")
	n.dump(&sb, n.start, make(map[StateID]int))
	return sb.String()
}

func (n *NFA) dump(sb *strings.Builder, id StateID, numbers map[StateID]int) {
	if id == NoState {
		sb.WriteString("DANGLING")
		return
	}
	if nr, ok := numbers[id]; ok {
		sb.WriteString("#" + strconv.Itoa(nr))
		return
	}
	nr := len(numbers) + 1
	numbers[id] = nr
	sb.WriteString("#" + strconv.Itoa(nr) + ":")

	s := &n.states[id]
	switch s.kind {
	case kindMatch:
		sb.WriteString("MATCH()")
	case kindToken, kindNotToken:
		if s.kind == kindToken {
			sb.WriteString("TOKEN(")
		} else {
			sb.WriteString("NOT(")
		}
		sb.WriteString(s.label)
		sb.WriteByte(',')
		n.dump(sb, s.next, numbers)
		sb.WriteByte(')')
	case kindAnyToken:
		sb.WriteString("ANY(")
		n.dump(sb, s.next, numbers)
		sb.WriteByte(')')
	case kindOr, kindAnd:
		sb.WriteString(strings.ToUpper(s.kind.String()) + "(")
		for i, a := range s.alts {
			if i > 0 {
				sb.WriteByte(',')
			}
			n.dump(sb, a, numbers)
		}
		if s.kind == kindAnd {
			sb.WriteByte(';')
			n.dump(sb, s.next, numbers)
		}
		sb.WriteByte(')')
	}
}

type stateJSON struct {
	ID           StateID   `json:"id"`
	Kind         string    `json:"kind"`
	Annotation   *int      `json:"annotation,omitempty"`
	Label        string    `json:"label,omitempty"`
	Terms        []uint32  `json:"terms,omitempty"`
	Next         *StateID  `json:"next,omitempty"`
	Alternatives []StateID `json:"alternatives,omitempty"`
}

type nfaJSON struct {
	Start  StateID     `json:"start"`
	States []stateJSON `json:"states"`
}

// MarshalJSON writes the reachable part of the graph.
func (n *NFA) MarshalJSON() ([]byte, error) {
	out := nfaJSON{Start: n.start}
	for _, id := range n.reachable() {
		s := &n.states[id]
		sj := stateJSON{ID: id, Kind: s.kind.String(), Label: s.label, Alternatives: s.alts}
		if s.kind.consumes() || s.kind == kindAnd {
			next := s.next
			sj.Next = &next
		}
		if s.kind == kindToken || s.kind == kindNotToken {
			annot := s.annot
			sj.Annotation = &annot
			sj.Terms = s.terms.ToArray()
		}
		out.States = append(out.States, sj)
	}
	return json.Marshal(out)
}
