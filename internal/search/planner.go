package search

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"CorpusSearch/internal/engine"
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
	"CorpusSearch/internal/optimize"
	"CorpusSearch/internal/query"
)

// Compiled is a pattern ready for execution.
type Compiled struct {
	ID      string
	Pattern query.Pattern
	Plan    *engine.Plan
	// Groups are the capture names in slot order.
	Groups    []string
	Decisions []Decision
}

// Decision records how one top-level clause is matched.
type Decision struct {
	Clause string `json:"clause"`
	Anchor bool   `json:"anchor,omitempty"`
	// Nfa is set for clauses matched with an automaton over the forward
	// index instead of through the term index.
	Nfa         bool   `json:"nfa,omitempty"`
	Factor      int64  `json:"factor,omitempty"`
	ReverseCost int64  `json:"reverse_cost"`
	Matcher     string `json:"matcher"`
}

// unit is a run of adjacent clauses that is found through the term index
// by its anchor clause.
type unit struct {
	first, last int
	anchor      int
	stats       optimize.ClauseStats
}

type pendingFilter struct {
	matcher *engine.ConstrainedMatcher
	filter  matchfilter.Filter
}

// planner holds the state of one compilation.
type planner struct {
	s        *Searcher
	resolver *query.Resolver
	groups   *matchfilter.GroupContext
	pending  []pendingFilter
}

// Compile rewrites p and turns it into an execution plan.
func (s *Searcher) Compile(p query.Pattern) (*Compiled, error) {
	if err := query.Validate(p); err != nil {
		return nil, err
	}
	p = query.Rewrite(p)

	clause := p
	var filter matchfilter.Filter
	if c, ok := clause.(*query.Constrained); ok {
		clause, filter = c.Clause, c.Filter
	}
	clauses := []query.Pattern{clause}
	if seq, ok := clause.(*query.Sequence); ok {
		clauses = seq.Clauses
	}
	if len(clauses) == 0 {
		return nil, ErrEmptyPattern
	}

	pl := &planner{
		s:        s,
		resolver: query.NewResolver(s.corpus.Accessor(), s.corpus.Schema.MainAnnotation(), s.defaults),
		groups:   matchfilter.NewGroupContext(),
	}

	stats := make([]optimize.ClauseStats, len(clauses))
	for i, c := range clauses {
		st, err := query.Stats(c, pl.resolver, s.corpus.Postings)
		if err != nil {
			return nil, err
		}
		stats[i] = st
	}

	nfa, factors := combine(s.config.Optimizer, stats)
	anchor, err := pl.chooseAnchor(clauses, stats, nfa)
	if err != nil {
		return nil, err
	}

	plan := &engine.Plan{Anchor: anchor}
	for i, c := range clauses {
		var m engine.ClauseMatcher
		if nfa[i] {
			m, err = pl.nfaMatcher(c)
		} else {
			m, err = pl.indexMatcher(c)
		}
		if err != nil {
			return nil, err
		}
		plan.Clauses = append(plan.Clauses, m)
	}

	acc := s.corpus.Accessor()
	for _, pf := range pl.pending {
		bound, err := matchfilter.Bind(pf.filter, pl.groups, acc)
		if err != nil {
			return nil, err
		}
		pf.matcher.Filter = bound
	}
	if filter != nil {
		bound, err := matchfilter.Bind(filter, pl.groups, acc)
		if err != nil {
			return nil, err
		}
		plan.Filter = bound
	}
	plan.Groups = pl.groups.Len()

	decisions := make([]Decision, len(clauses))
	for i, c := range clauses {
		decisions[i] = Decision{
			Clause:      c.String(),
			Anchor:      i == anchor,
			Nfa:         nfa[i],
			Factor:      factors[i],
			ReverseCost: stats[i].ReverseCost,
			Matcher:     plan.Clauses[i].String(),
		}
	}

	return &Compiled{
		ID:        uuid.NewString(),
		Pattern:   p,
		Plan:      plan,
		Groups:    slices.Clone(pl.groups.Names()),
		Decisions: decisions,
	}, nil
}

// combine repeatedly merges the adjacent pair of units with the best
// priority until no pair qualifies. It returns which clauses ended up on
// the automaton side, and the factor that put them there.
func combine(cfg optimize.Config, stats []optimize.ClauseStats) ([]bool, []int64) {
	nfa := make([]bool, len(stats))
	factors := make([]int64, len(stats))
	units := make([]unit, len(stats))
	for i, st := range stats {
		units[i] = unit{first: i, last: i, anchor: i, stats: st}
	}

	for len(units) > 1 {
		best, bestAt := optimize.Decision{Priority: optimize.CannotCombine}, -1
		for i := 0; i+1 < len(units); i++ {
			d := optimize.Decide(cfg, units[i].stats, units[i+1].stats)
			if d.UseNfa && d.Priority < best.Priority {
				best, bestAt = d, i
			}
		}
		if bestAt < 0 {
			break
		}

		left, right := units[bestAt], units[bestAt+1]
		anchor, other := left, right
		if best.Direction == optimize.Backward {
			anchor, other = right, left
		}
		for i := other.first; i <= other.last; i++ {
			nfa[i] = true
			factors[i] = best.Factor
		}
		merged := unit{
			first:  left.first,
			last:   right.last,
			anchor: anchor.anchor,
			stats:  optimize.Combined(anchor.stats, other.stats),
		}
		units = slices.Replace(units, bestAt, bestAt+2, merged)
	}
	return nfa, factors
}

// chooseAnchor picks the clause hits are grown from: the cheapest clause
// that the term index can enumerate, or else the cheapest clause of all.
func (pl *planner) chooseAnchor(clauses []query.Pattern, stats []optimize.ClauseStats, nfa []bool) (int, error) {
	best, bestIndexed := -1, false
	for i, c := range clauses {
		if nfa[i] {
			continue
		}
		indexed, err := pl.indexed(c)
		if err != nil {
			return 0, err
		}
		switch {
		case best < 0,
			indexed && !bestIndexed,
			indexed == bestIndexed && stats[i].ReverseCost < stats[best].ReverseCost:
			best, bestIndexed = i, indexed
		}
	}
	if best < 0 {
		// Unreachable: combining always leaves one anchor per unit.
		return 0, fmt.Errorf("%w: no anchor clause", ErrEmptyPattern)
	}
	return best, nil
}

// indexed reports whether c is a single-token clause, possibly captured,
// whose positions the term index lists.
func (pl *planner) indexed(c query.Pattern) (bool, error) {
	for {
		cp, ok := c.(*query.Capture)
		if !ok {
			break
		}
		c = cp.Clause
	}
	_, ok, err := pl.resolver.TokenSet(c)
	return ok, err
}

func (pl *planner) nfaMatcher(c query.Pattern) (*engine.NFAMatcher, error) {
	fwd, err := query.BuildNfa(c, pl.resolver, fimatch.Forward)
	if err != nil {
		return nil, err
	}
	bwd, err := query.BuildNfa(c, pl.resolver, fimatch.Backward)
	if err != nil {
		return nil, err
	}
	return &engine.NFAMatcher{Forward: fwd, Backward: bwd, Label: c.String()}, nil
}

// indexMatcher builds a matcher that finds single tokens through the term
// index and composes the rest.
func (pl *planner) indexMatcher(c query.Pattern) (engine.ClauseMatcher, error) {
	ts, ok, err := pl.resolver.TokenSet(c)
	if err != nil {
		return nil, err
	}
	if ok {
		return &engine.PostingsMatcher{
			Source: pl.s.corpus.Postings.Source(ts.Annotation, ts.Terms),
			Label:  ts.Label,
		}, nil
	}

	switch v := c.(type) {
	case *query.AnyToken:
		return engine.AnyTokenMatcher{}, nil
	case *query.Not:
		m, err := pl.nfaMatcher(v)
		if err != nil {
			return nil, err
		}
		return m, nil
	case *query.Sequence:
		ms, err := pl.indexMatchers(v.Clauses)
		if err != nil {
			return nil, err
		}
		return &engine.SequenceMatcher{Clauses: ms}, nil
	case *query.Or:
		ms, err := pl.indexMatchers(v.Clauses)
		if err != nil {
			return nil, err
		}
		return &engine.OrMatcher{Clauses: ms}, nil
	case *query.And:
		ms, err := pl.indexMatchers(v.Clauses)
		if err != nil {
			return nil, err
		}
		return &engine.AndMatcher{Clauses: ms}, nil
	case *query.Repetition:
		m, err := pl.indexMatcher(v.Clause)
		if err != nil {
			return nil, err
		}
		return &engine.RepeatMatcher{Clause: m, Min: v.Min, Max: v.Max}, nil
	case *query.Expansion:
		m, err := pl.indexMatcher(v.Clause)
		if err != nil {
			return nil, err
		}
		run := &engine.RepeatMatcher{Clause: engine.AnyTokenMatcher{}, Min: v.Min, Max: v.Max}
		if v.Direction == query.ExpandLeft {
			return &engine.SequenceMatcher{Clauses: []engine.ClauseMatcher{run, m}}, nil
		}
		return &engine.SequenceMatcher{Clauses: []engine.ClauseMatcher{m, run}}, nil
	case *query.Capture:
		m, err := pl.indexMatcher(v.Clause)
		if err != nil {
			return nil, err
		}
		return &engine.CaptureMatcher{Clause: m, Slot: pl.groups.RegisterCapturedGroup(v.Name), Name: v.Name}, nil
	case *query.Constrained:
		m, err := pl.indexMatcher(v.Clause)
		if err != nil {
			return nil, err
		}
		cm := &engine.ConstrainedMatcher{Clause: m, Local: engine.CaptureSlots(m)}
		pl.pending = append(pl.pending, pendingFilter{matcher: cm, filter: v.Filter})
		return cm, nil
	}
	return nil, fmt.Errorf("%w: %s", query.ErrUnsupportedPattern, c.Type())
}

func (pl *planner) indexMatchers(ps []query.Pattern) ([]engine.ClauseMatcher, error) {
	out := make([]engine.ClauseMatcher, 0, len(ps))
	for _, c := range ps {
		m, err := pl.indexMatcher(c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
