package engine

import (
	"sort"

	"CorpusSearch/internal/matchfilter"
)

// Hit is one match: a token span in a document plus its captures.
type Hit struct {
	Doc      uint32              `json:"doc"`
	Start    int                 `json:"start"`
	End      int                 `json:"end"`
	Captures []*matchfilter.Span `json:"captures,omitempty"`
}

type hitKey struct {
	doc        uint32
	start, end int
}

// HitCollector gathers distinct hits. The first hit collected for a span
// keeps its captures; later ones are dropped.
type HitCollector struct {
	maxHits   int
	seen      map[hitKey]struct{}
	hits      []Hit
	truncated bool
}

// NewHitCollector creates a collector holding at most maxHits hits.
// maxHits <= 0 means no limit.
func NewHitCollector(maxHits int) *HitCollector {
	return &HitCollector{
		maxHits: maxHits,
		seen:    make(map[hitKey]struct{}),
	}
}

// Collect records a hit. Captures are copied. It returns
// ErrHitLimitExceeded once the collector is full.
func (c *HitCollector) Collect(doc uint32, start, end int, captures []*matchfilter.Span) error {
	key := hitKey{doc: doc, start: start, end: end}
	if _, ok := c.seen[key]; ok {
		return nil
	}
	if c.maxHits > 0 && len(c.hits) >= c.maxHits {
		c.truncated = true
		return ErrHitLimitExceeded
	}
	c.seen[key] = struct{}{}
	c.hits = append(c.hits, Hit{Doc: doc, Start: start, End: end, Captures: copyCaptures(captures)})
	return nil
}

func copyCaptures(groups []*matchfilter.Span) []*matchfilter.Span {
	if len(groups) == 0 {
		return nil
	}
	out := make([]*matchfilter.Span, len(groups))
	for i, g := range groups {
		if g != nil {
			sp := *g
			out[i] = &sp
		}
	}
	return out
}

// Merge adds the hits of other. Both collectors must have seen disjoint
// documents.
func (c *HitCollector) Merge(other *HitCollector) {
	c.hits = append(c.hits, other.hits...)
	for k := range other.seen {
		c.seen[k] = struct{}{}
	}
	c.truncated = c.truncated || other.truncated
}

// Len returns the number of hits collected so far.
func (c *HitCollector) Len() int {
	return len(c.hits)
}

// Truncated reports whether a hit was dropped because of the limit.
func (c *HitCollector) Truncated() bool {
	return c.truncated || (c.maxHits > 0 && len(c.hits) > c.maxHits)
}

// Results returns the hits ordered by document, start and end, cut to the
// hit limit.
func (c *HitCollector) Results() []Hit {
	out := make([]Hit, len(c.hits))
	copy(out, c.hits)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Doc != b.Doc {
			return a.Doc < b.Doc
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	if c.maxHits > 0 && len(out) > c.maxHits {
		out = out[:c.maxHits]
	}
	return out
}
