package engine

import "sort"

// ConjunctionIterator yields the documents every child holds. A Plan uses
// it to narrow a run to the documents containing each top-level term
// clause before any matcher looks at positions. The cheapest child leads
// and the others are advanced to it; after Next or Advance every child
// sits on DocID, so its positions can be read directly.
type ConjunctionIterator struct {
	children []PostingsIterator
	lead     PostingsIterator
	current  uint32
}

// NewConjunctionIterator creates an AND iterator over the given children.
// Children must not be empty.
func NewConjunctionIterator(children []PostingsIterator) *ConjunctionIterator {
	// Sort by cost ascending so the cheapest iterator leads.
	sorted := make([]PostingsIterator, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})

	return &ConjunctionIterator{
		children: sorted,
		lead:     sorted[0],
	}
}

func (c *ConjunctionIterator) Next() bool {
	if !c.lead.Next() {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionIterator) DocID() uint32 {
	return c.current
}

// Freq returns the lead's frequency.
func (c *ConjunctionIterator) Freq() uint32 {
	return c.lead.Freq()
}

// Positions returns the lead's positions.
func (c *ConjunctionIterator) Positions() []int32 {
	return c.lead.Positions()
}

func (c *ConjunctionIterator) Advance(target uint32) bool {
	if !c.lead.Advance(target) {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionIterator) Cost() int64 {
	return c.lead.Cost()
}

// align advances all iterators until they all point to the same document.
func (c *ConjunctionIterator) align(target uint32) bool {
	for {
		allAligned := true
		for _, child := range c.children {
			if child == c.lead {
				continue
			}
			if !child.Advance(target) {
				return false
			}
			if child.DocID() > target {
				if !c.lead.Advance(child.DocID()) {
					return false
				}
				// Lead may have landed past the child.
				target = c.lead.DocID()
				allAligned = false
				break
			}
		}
		if allAligned {
			c.current = target
			return true
		}
	}
}
