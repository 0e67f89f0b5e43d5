package matchfilter

import (
	"fmt"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// StringLiteral evaluates to a constant string.
type StringLiteral struct {
	Value string
}

func NewStringLiteral(s string) *StringLiteral { return &StringLiteral{Value: s} }

func (f *StringLiteral) SetHitQueryContext(HitQueryContext) error                   { return nil }
func (f *StringLiteral) LookupAnnotationIndices(fimatch.ForwardIndexAccessor) error { return nil }
func (f *StringLiteral) Rewrite() Filter                                            { return f }
func (f *StringLiteral) String() string                                             { return strconv.Quote(f.Value) }

func (f *StringLiteral) Evaluate(fimatch.ForwardIndexDocument, []*Span) ConstraintValue {
	return StringValue(f.Value)
}

// IntLiteral evaluates to a constant int.
type IntLiteral struct {
	Value int
}

func NewIntLiteral(n int) *IntLiteral { return &IntLiteral{Value: n} }

func (f *IntLiteral) SetHitQueryContext(HitQueryContext) error                   { return nil }
func (f *IntLiteral) LookupAnnotationIndices(fimatch.ForwardIndexAccessor) error { return nil }
func (f *IntLiteral) Rewrite() Filter                                            { return f }
func (f *IntLiteral) String() string                                             { return strconv.Itoa(f.Value) }

func (f *IntLiteral) Evaluate(fimatch.ForwardIndexDocument, []*Span) ConstraintValue {
	return IntValue(f.Value)
}

// TokenProperty evaluates to an annotation value of the first token of a
// capture group, e.g. A.lemma. It is undefined for absent or empty
// captures.
type TokenProperty struct {
	group      groupRef
	annotation annotationRef
}

func NewTokenProperty(group, annotation string) *TokenProperty {
	return &TokenProperty{group: groupRef{name: group}, annotation: annotationRef{name: annotation}}
}

func (f *TokenProperty) Group() string      { return f.group.name }
func (f *TokenProperty) Annotation() string { return f.annotation.name }

func (f *TokenProperty) SetHitQueryContext(ctx HitQueryContext) error { return f.group.bind(ctx) }

func (f *TokenProperty) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return f.annotation.lookup(acc)
}

func (f *TokenProperty) Rewrite() Filter { return f }

func (f *TokenProperty) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	id, ok := firstToken(doc, &f.group, &f.annotation, groups)
	if !ok {
		return Undefined()
	}
	return StringValue(doc.TermString(f.annotation.get(), id))
}

func (f *TokenProperty) String() string { return f.group.name + "." + f.annotation.name }

// GroupPosition evaluates to the start or end position of a capture.
type GroupPosition struct {
	group groupRef
	End   bool
}

func NewGroupPosition(group string, end bool) *GroupPosition {
	return &GroupPosition{group: groupRef{name: group}, End: end}
}

func (f *GroupPosition) SetHitQueryContext(ctx HitQueryContext) error               { return f.group.bind(ctx) }
func (f *GroupPosition) LookupAnnotationIndices(fimatch.ForwardIndexAccessor) error { return nil }
func (f *GroupPosition) Rewrite() Filter                                            { return f }

func (f *GroupPosition) Evaluate(_ fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	sp := f.group.span(groups)
	if sp == nil {
		return Undefined()
	}
	if f.End {
		return IntValue(sp.End)
	}
	return IntValue(sp.Start)
}

func (f *GroupPosition) String() string {
	if f.End {
		return "end(" + f.group.name + ")"
	}
	return "start(" + f.group.name + ")"
}

// TokenPropertyEqualsString checks a capture's first token against a
// literal. The literal is resolved once into the set of matching term ids.
type TokenPropertyEqualsString struct {
	group       groupRef
	annotation  annotationRef
	Literal     string
	Sensitivity sensitivity.Sensitivity
	terms       *roaring.Bitmap
}

func NewTokenPropertyEqualsString(group, annotation, literal string, s sensitivity.Sensitivity) *TokenPropertyEqualsString {
	return &TokenPropertyEqualsString{
		group:       groupRef{name: group},
		annotation:  annotationRef{name: annotation},
		Literal:     literal,
		Sensitivity: s,
	}
}

func (f *TokenPropertyEqualsString) SetHitQueryContext(ctx HitQueryContext) error {
	return f.group.bind(ctx)
}

func (f *TokenPropertyEqualsString) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	if err := f.annotation.lookup(acc); err != nil {
		return err
	}
	f.terms = acc.TermNumbers(f.annotation.number, f.Literal, f.Sensitivity)
	return nil
}

func (f *TokenPropertyEqualsString) Rewrite() Filter { return f }

// TermCount returns how many term ids the literal resolved to.
func (f *TokenPropertyEqualsString) TermCount() int {
	if f.terms == nil {
		panic(ErrFilterNotBound)
	}
	return int(f.terms.GetCardinality())
}

func (f *TokenPropertyEqualsString) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	if f.terms == nil {
		panic(ErrFilterNotBound)
	}
	id, ok := firstToken(doc, &f.group, &f.annotation, groups)
	if !ok {
		return BoolValue(false)
	}
	return BoolValue(f.terms.Contains(uint32(id)))
}

func (f *TokenPropertyEqualsString) String() string {
	return fmt.Sprintf("%s.%s = %q (%s)", f.group.name, f.annotation.name, f.Literal, f.Sensitivity)
}

// SameTokens checks whether the first tokens of two captures have equal
// annotation values. Comparison goes through the vocabulary's sort
// positions, so no strings are built.
type SameTokens struct {
	left, right groupRef
	annotation  annotationRef
	Sensitivity sensitivity.Sensitivity
}

func NewSameTokens(left, right, annotation string, s sensitivity.Sensitivity) *SameTokens {
	return &SameTokens{
		left:        groupRef{name: left},
		right:       groupRef{name: right},
		annotation:  annotationRef{name: annotation},
		Sensitivity: s,
	}
}

func (f *SameTokens) SetHitQueryContext(ctx HitQueryContext) error {
	if err := f.left.bind(ctx); err != nil {
		return err
	}
	return f.right.bind(ctx)
}

func (f *SameTokens) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return f.annotation.lookup(acc)
}

func (f *SameTokens) Rewrite() Filter { return f }

// Evaluate is false when either capture is absent or empty.
func (f *SameTokens) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	a, ok := firstToken(doc, &f.left, &f.annotation, groups)
	if !ok {
		return BoolValue(false)
	}
	b, ok := firstToken(doc, &f.right, &f.annotation, groups)
	if !ok {
		return BoolValue(false)
	}
	return BoolValue(doc.TermsEqual(f.annotation.get(), [2]fimatch.TermID{a, b}, f.Sensitivity))
}

func (f *SameTokens) String() string {
	return fmt.Sprintf("same(%s, %s, %s, %s)", f.left.name, f.right.name, f.annotation.name, f.Sensitivity)
}
