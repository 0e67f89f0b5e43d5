package fimatch

// MatchesEmptySequence reports whether the automaton accepts zero tokens.
func (n *NFA) MatchesEmptySequence() bool {
	return emptyPath(n.states, n.start, make(map[StateID]bool))
}

// emptyPath reports whether the match state is reachable from id without
// consuming a token.
func emptyPath(states []state, id StateID, seen map[StateID]bool) bool {
	if id == NoState || seen[id] {
		return false
	}
	seen[id] = true
	s := &states[id]
	switch s.kind {
	case kindMatch:
		return true
	case kindOr:
		for _, a := range s.alts {
			if emptyPath(states, a, seen) {
				return true
			}
		}
	case kindAnd:
		for _, c := range s.alts {
			if !emptyPath(states, c, make(map[StateID]bool)) {
				return false
			}
		}
		return emptyPath(states, s.next, seen)
	}
	return false
}

// MinLength returns the length of the shortest possible match.
func (n *NFA) MinLength() int {
	return n.shortest(n.start)
}

// shortest runs a 0-1 breadth-first search from id to the match state.
func (n *NFA) shortest(from StateID) int {
	const inf = MaxUnlimited
	dist := map[StateID]int{from: 0}
	deque := []StateID{from}
	for len(deque) > 0 {
		id := deque[0]
		deque = deque[1:]
		d := dist[id]
		s := &n.states[id]
		relax := func(to StateID, w int, front bool) {
			if to == NoState {
				return
			}
			if old, ok := dist[to]; ok && old <= d+w {
				return
			}
			dist[to] = d + w
			if front {
				deque = append([]StateID{to}, deque...)
			} else {
				deque = append(deque, to)
			}
		}
		switch s.kind {
		case kindToken, kindNotToken, kindAnyToken:
			relax(s.next, 1, false)
		case kindOr:
			for _, a := range s.alts {
				relax(a, 0, true)
			}
		case kindAnd:
			w := 0
			for _, c := range s.alts {
				if m := n.shortest(c); m > w {
					w = m
				}
			}
			if w == inf {
				continue
			}
			relax(s.next, w, w == 0)
		}
	}
	if d, ok := dist[n.match]; ok {
		return d
	}
	return inf
}

// MaxLength returns the length of the longest possible match, or
// MaxUnlimited if matches can grow without bound.
func (n *NFA) MaxLength() int {
	return n.longest(n.start, make(map[StateID]int), make(map[StateID]bool))
}

func (n *NFA) longest(id StateID, memo map[StateID]int, active map[StateID]bool) int {
	if id == NoState {
		return -1
	}
	if v, ok := memo[id]; ok {
		return v
	}
	if active[id] {
		return MaxUnlimited
	}
	active[id] = true
	defer delete(active, id)

	s := &n.states[id]
	result := -1
	switch s.kind {
	case kindMatch:
		result = 0
	case kindToken, kindNotToken, kindAnyToken:
		result = addLength(1, n.longest(s.next, memo, active))
	case kindOr:
		for _, a := range s.alts {
			if l := n.longest(a, memo, active); l > result {
				result = l
			}
		}
	case kindAnd:
		clause := MaxUnlimited
		for _, c := range s.alts {
			if l := n.longest(c, memo, active); l < clause {
				clause = l
			}
		}
		if clause >= 0 {
			result = addLength(clause, n.longest(s.next, memo, active))
		}
	}
	memo[id] = result
	return result
}

func addLength(a, b int) int {
	if a < 0 || b < 0 {
		return -1
	}
	if a == MaxUnlimited || b == MaxUnlimited {
		return MaxUnlimited
	}
	return a + b
}

// AllSameLength reports whether every match has the same length.
func (n *NFA) AllSameLength() bool {
	return n.MinLength() == n.MaxLength()
}
