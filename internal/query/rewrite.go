package query

import (
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
)

// Rewrite applies simplification rules to a pattern until a fixed point is
// reached. Rules: flatten nested seq/or/and, unwrap single-clause nodes,
// drop {1,1} repetitions and empty expansions, cancel double negation,
// merge adjacent any-token runs and nested constraints.
//
// A node that needs no change is returned as is, so Rewrite(p) == p for a
// pattern that is already simplified.
func Rewrite(p Pattern) Pattern {
	for {
		rewritten := rewriteOnce(p)
		if rewritten == p {
			return p
		}
		p = rewritten
	}
}

func rewriteOnce(p Pattern) Pattern {
	switch v := p.(type) {
	case *Sequence:
		return rewriteSequence(v)
	case *Or:
		clauses, changed := rewriteClauses(v.Clauses, func(c Pattern) ([]Pattern, bool) {
			if inner, ok := c.(*Or); ok {
				return inner.Clauses, true
			}
			return nil, false
		})
		if len(clauses) == 1 {
			return clauses[0]
		}
		if changed {
			return &Or{Clauses: clauses}
		}
	case *And:
		clauses, changed := rewriteClauses(v.Clauses, func(c Pattern) ([]Pattern, bool) {
			if inner, ok := c.(*And); ok {
				return inner.Clauses, true
			}
			return nil, false
		})
		if len(clauses) == 1 {
			return clauses[0]
		}
		if changed {
			return &And{Clauses: clauses}
		}
	case *Repetition:
		if v.Min == 1 && v.Max == 1 {
			return v.Clause
		}
		if c := rewriteOnce(v.Clause); c != v.Clause {
			return &Repetition{Clause: c, Min: v.Min, Max: v.Max}
		}
	case *Expansion:
		if v.Max == 0 {
			return v.Clause
		}
		if c := rewriteOnce(v.Clause); c != v.Clause {
			return &Expansion{Clause: c, Direction: v.Direction, Min: v.Min, Max: v.Max}
		}
	case *Not:
		if inner, ok := v.Clause.(*Not); ok {
			return inner.Clause
		}
		if c := rewriteOnce(v.Clause); c != v.Clause {
			return &Not{Clause: c}
		}
	case *Capture:
		if c := rewriteOnce(v.Clause); c != v.Clause {
			return &Capture{Name: v.Name, Clause: c}
		}
	case *Constrained:
		if inner, ok := v.Clause.(*Constrained); ok {
			return &Constrained{Clause: inner.Clause, Filter: matchfilter.NewAnd(inner.Filter, v.Filter)}
		}
		if c := rewriteOnce(v.Clause); c != v.Clause {
			return &Constrained{Clause: c, Filter: v.Filter}
		}
	}
	return p
}

// rewriteClauses rewrites each clause and splices in the children of those
// that flatten accepts.
func rewriteClauses(ps []Pattern, flatten func(Pattern) ([]Pattern, bool)) ([]Pattern, bool) {
	changed := false
	out := make([]Pattern, 0, len(ps))
	for _, c := range ps {
		r := rewriteOnce(c)
		if r != c {
			changed = true
		}
		if inner, ok := flatten(r); ok {
			out = append(out, inner...)
			changed = true
			continue
		}
		out = append(out, r)
	}
	return out, changed
}

func rewriteSequence(v *Sequence) Pattern {
	clauses, changed := rewriteClauses(v.Clauses, func(c Pattern) ([]Pattern, bool) {
		if inner, ok := c.(*Sequence); ok {
			return inner.Clauses, true
		}
		return nil, false
	})

	merged := make([]Pattern, 0, len(clauses))
	for _, c := range clauses {
		if n := len(merged); n > 0 {
			if min1, max1, ok := anyRun(merged[n-1]); ok {
				if min2, max2, ok := anyRun(c); ok {
					merged[n-1] = &Repetition{Clause: &AnyToken{}, Min: min1 + min2, Max: addBounds(max1, max2)}
					changed = true
					continue
				}
			}
		}
		merged = append(merged, c)
	}

	if len(merged) == 1 {
		return merged[0]
	}
	if changed {
		return &Sequence{Clauses: merged}
	}
	return v
}

// anyRun reports whether p matches a run of arbitrary tokens.
func anyRun(p Pattern) (min, max int, ok bool) {
	switch v := p.(type) {
	case *AnyToken:
		return 1, 1, true
	case *Repetition:
		if _, isAny := v.Clause.(*AnyToken); isAny {
			return v.Min, v.Max, true
		}
	}
	return 0, 0, false
}

func addBounds(a, b int) int {
	if a == fimatch.MaxUnlimited || b == fimatch.MaxUnlimited || a > fimatch.MaxUnlimited-b {
		return fimatch.MaxUnlimited
	}
	return a + b
}
