package matchfilter

import (
	"errors"
	"fmt"

	"CorpusSearch/internal/fimatch"
)

var (
	ErrUnknownCaptureGroup = errors.New("matchfilter: unknown capture group")
	ErrUnknownOperator     = errors.New("matchfilter: unknown operator")
	ErrFilterNotBound      = errors.New("matchfilter: filter evaluated before binding")
)

// Span is a captured [Start, End) token range. Start == End is an empty
// capture; a nil *Span is an absent one.
type Span struct {
	Start int
	End   int
}

func (s *Span) empty() bool { return s == nil || s.End <= s.Start }

// HitQueryContext maps capture group names to slots in the per-hit capture
// array.
type HitQueryContext interface {
	RegisterCapturedGroup(name string) int
	CapturedGroupIndex(name string) (int, bool)
}

// GroupContext is the default HitQueryContext.
type GroupContext struct {
	names []string
	index map[string]int
}

func NewGroupContext() *GroupContext {
	return &GroupContext{index: make(map[string]int)}
}

// RegisterCapturedGroup returns the slot for name, allocating one the first
// time a name is seen.
func (c *GroupContext) RegisterCapturedGroup(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	return len(c.names) - 1
}

func (c *GroupContext) CapturedGroupIndex(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Names returns the group names in slot order.
func (c *GroupContext) Names() []string { return c.names }

// Len returns the number of registered groups.
func (c *GroupContext) Len() int { return len(c.names) }

// Filter is a node of a match filter tree.
//
// Before evaluation a tree is bound: SetHitQueryContext resolves capture
// names, Rewrite folds comparisons into specialised nodes and
// LookupAnnotationIndices resolves annotation names and literals. Binding
// mutates the nodes; after it the tree is read-only and may be evaluated
// concurrently. Use Bind rather than calling the steps by hand.
type Filter interface {
	SetHitQueryContext(ctx HitQueryContext) error
	LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error

	// Rewrite returns an equivalent, possibly cheaper tree. It returns the
	// receiver itself when nothing changed.
	Rewrite() Filter

	Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue
	String() string
}

// groupRef resolves a capture group name to its slot.
type groupRef struct {
	name  string
	slot  int
	bound bool
}

func (g *groupRef) bind(ctx HitQueryContext) error {
	slot, ok := ctx.CapturedGroupIndex(g.name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCaptureGroup, g.name)
	}
	g.slot = slot
	g.bound = true
	return nil
}

func (g *groupRef) span(groups []*Span) *Span {
	if !g.bound {
		panic(ErrFilterNotBound)
	}
	if g.slot >= len(groups) {
		return nil
	}
	return groups[g.slot]
}

// annotationRef resolves an annotation name to its number.
type annotationRef struct {
	name     string
	number   int
	resolved bool
}

func (a *annotationRef) lookup(acc fimatch.ForwardIndexAccessor) error {
	n, err := acc.AnnotationNumber(a.name)
	if err != nil {
		return fmt.Errorf("matchfilter: annotation %q: %w", a.name, err)
	}
	a.number = n
	a.resolved = true
	return nil
}

func (a *annotationRef) get() int {
	if !a.resolved {
		panic(ErrFilterNotBound)
	}
	return a.number
}

// firstToken returns the term id of the first token of the group's span.
// ok is false for an absent or empty capture.
func firstToken(doc fimatch.ForwardIndexDocument, g *groupRef, a *annotationRef, groups []*Span) (fimatch.TermID, bool) {
	sp := g.span(groups)
	if sp.empty() {
		return fimatch.NoTerm, false
	}
	id := doc.Token(a.get(), sp.Start)
	return id, id != fimatch.NoTerm
}

// BoundFilter is a filter tree that has been fully bound.
type BoundFilter struct {
	root Filter
}

// Bind binds f against a capture context and a forward index, rewrites it
// and returns the frozen result.
func Bind(f Filter, ctx HitQueryContext, acc fimatch.ForwardIndexAccessor) (*BoundFilter, error) {
	if err := f.SetHitQueryContext(ctx); err != nil {
		return nil, err
	}
	f = f.Rewrite()
	if err := f.LookupAnnotationIndices(acc); err != nil {
		return nil, err
	}
	return &BoundFilter{root: f}, nil
}

// Matches reports whether a hit with the given captures passes the filter.
func (b *BoundFilter) Matches(doc fimatch.ForwardIndexDocument, groups []*Span) bool {
	return b.root.Evaluate(doc, groups).IsTruthy()
}

// Filter returns the rewritten tree.
func (b *BoundFilter) Filter() Filter { return b.root }

func (b *BoundFilter) String() string { return b.root.String() }
