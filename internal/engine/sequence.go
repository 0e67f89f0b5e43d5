package engine

import (
	"context"
	"strings"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
)

// Documents gives the forward index view of a corpus.
type Documents interface {
	Document(doc uint32) (fimatch.ForwardIndexDocument, error)
}

// DocRange is the half-open document range [From, To).
type DocRange struct {
	From uint32
	To   uint32
}

// Plan is an executable query: a top-level sequence of clauses matched
// outward from the Anchor clause. The anchor is matched forward from each
// candidate position, the clauses after it forward and the clauses before
// it backward.
type Plan struct {
	Clauses []ClauseMatcher
	Anchor  int
	// Groups is the number of capture slots.
	Groups int
	// Filter, if set, is evaluated on every complete hit.
	Filter *matchfilter.BoundFilter
}

// candidates returns an iterator over the documents that hold every
// top-level postings clause, or nil if all documents are candidates.
func (p *Plan) candidates() PostingsIterator {
	var its []PostingsIterator
	for _, clause := range p.Clauses {
		if pm, ok := postingsOf(clause); ok {
			its = append(its, pm.Source.Iterator())
		}
	}
	switch len(its) {
	case 0:
		return nil
	case 1:
		return its[0]
	default:
		return NewConjunctionIterator(its)
	}
}

// Run collects the hits of the plan in the documents of r.
func (p *Plan) Run(ctx context.Context, docs Documents, r DocRange, ec *ExecutionContext, coll *HitCollector) error {
	it := p.candidates()
	if it == nil {
		for d := r.From; d < r.To; d++ {
			if err := p.runDoc(ctx, docs, d, ec, coll); err != nil {
				return err
			}
		}
		return nil
	}
	if !it.Advance(r.From) {
		return nil
	}
	for it.DocID() < r.To {
		if err := p.runDoc(ctx, docs, it.DocID(), ec, coll); err != nil {
			return err
		}
		if !it.Next() {
			break
		}
	}
	return nil
}

func (p *Plan) runDoc(ctx context.Context, docs Documents, d uint32, ec *ExecutionContext, coll *HitCollector) error {
	if err := ec.Check(ctx); err != nil {
		return err
	}
	doc, err := docs.Document(d)
	if err != nil {
		return err
	}
	c := &Cursor{Doc: d, Tokens: doc, Groups: make([]*matchfilter.Span, p.Groups), Exec: ec}
	anchor := p.Clauses[p.Anchor]

	for _, a := range p.anchorPositions(c) {
		err := anchor.Match(c, a, fimatch.Forward, func(length int) error {
			return p.extend(c, p.Anchor+1, a+length, fimatch.Forward, 0, func(right int) error {
				return p.extend(c, p.Anchor-1, a, fimatch.Backward, 0, func(left int) error {
					start, end := a-left, a+length+right
					if end <= start || !c.deferredHold(0) {
						return nil
					}
					if p.Filter != nil && !p.Filter.Matches(doc, c.Groups) {
						return nil
					}
					return coll.Collect(d, start, end, c.Groups)
				})
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// anchorPositions lists the positions the anchor clause is tried at.
func (p *Plan) anchorPositions(c *Cursor) []int {
	if pm, ok := postingsOf(p.Clauses[p.Anchor]); ok {
		found := c.positionsOf(pm)
		out := make([]int, len(found))
		for i, pos := range found {
			out[i] = int(pos)
		}
		return out
	}
	out := make([]int, c.Tokens.Length()+1)
	for i := range out {
		out[i] = i
	}
	return out
}

// postingsOf returns the postings clause m matches, looking through
// captures.
func postingsOf(m ClauseMatcher) (*PostingsMatcher, bool) {
	for {
		switch v := m.(type) {
		case *PostingsMatcher:
			return v, true
		case *CaptureMatcher:
			m = v.Clause
		default:
			return nil, false
		}
	}
}

// extend matches clauses i, i+dir, ... away from the anchor.
func (p *Plan) extend(c *Cursor, i, pos int, dir fimatch.Direction, total int, emit Emit) error {
	if i < 0 || i >= len(p.Clauses) {
		return emit(total)
	}
	return p.Clauses[i].Match(c, pos+int(dir)*total, dir, func(length int) error {
		return p.extend(c, i+int(dir), pos, dir, total+length, emit)
	})
}

func (p *Plan) String() string {
	parts := make([]string, len(p.Clauses))
	for i, clause := range p.Clauses {
		parts[i] = clause.String()
		if i == p.Anchor {
			parts[i] = "[" + parts[i] + "]"
		}
	}
	s := "plan(" + strings.Join(parts, ", ") + ")"
	if p.Filter != nil {
		s += "::" + p.Filter.String()
	}
	return s
}
