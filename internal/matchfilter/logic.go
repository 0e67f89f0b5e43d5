package matchfilter

import (
	"fmt"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// Equals compares two values. Strings are compared under Sensitivity. An
// undefined operand makes the comparison false.
type Equals struct {
	A, B        Filter
	Sensitivity sensitivity.Sensitivity
}

func NewEquals(a, b Filter, s sensitivity.Sensitivity) *Equals {
	return &Equals{A: a, B: b, Sensitivity: s}
}

func (f *Equals) SetHitQueryContext(ctx HitQueryContext) error {
	return bindAll(ctx, f.A, f.B)
}

func (f *Equals) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return lookupAll(acc, f.A, f.B)
}

// Rewrite folds a comparison of a token property with a string literal into
// a TokenPropertyEqualsString and a comparison of the same annotation of two
// captures into a SameTokens.
func (f *Equals) Rewrite() Filter {
	a, b := f.A.Rewrite(), f.B.Rewrite()

	if prop, lit, ok := propertyAndLiteral(a, b); ok {
		return foldLiteral(prop, lit, f.Sensitivity)
	}
	if pa, ok := a.(*TokenProperty); ok {
		if pb, ok := b.(*TokenProperty); ok && pa.annotation.name == pb.annotation.name {
			return &SameTokens{
				left:        pa.group,
				right:       pb.group,
				annotation:  pa.annotation,
				Sensitivity: f.Sensitivity,
			}
		}
	}

	if a == f.A && b == f.B {
		return f
	}
	return &Equals{A: a, B: b, Sensitivity: f.Sensitivity}
}

func propertyAndLiteral(a, b Filter) (*TokenProperty, *StringLiteral, bool) {
	if p, ok := a.(*TokenProperty); ok {
		if l, ok := b.(*StringLiteral); ok {
			return p, l, true
		}
	}
	if p, ok := b.(*TokenProperty); ok {
		if l, ok := a.(*StringLiteral); ok {
			return p, l, true
		}
	}
	return nil, nil, false
}

// foldLiteral keeps whatever binding state the property already has.
func foldLiteral(p *TokenProperty, lit *StringLiteral, s sensitivity.Sensitivity) *TokenPropertyEqualsString {
	return &TokenPropertyEqualsString{
		group:       p.group,
		annotation:  p.annotation,
		Literal:     lit.Value,
		Sensitivity: s,
	}
}

func (f *Equals) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	a := f.A.Evaluate(doc, groups)
	b := f.B.Evaluate(doc, groups)
	if a.IsUndefined() || b.IsUndefined() {
		return BoolValue(false)
	}
	return BoolValue(a.Equal(b, f.Sensitivity))
}

func (f *Equals) String() string { return fmt.Sprintf("%s = %s", f.A, f.B) }

// CompareOp is a relational operator.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpNotEqual     CompareOp = "!="
	OpEqual        CompareOp = "="
)

// ParseOp validates a relational operator. "==" is accepted as "=".
func ParseOp(s string) (CompareOp, error) {
	switch op := CompareOp(s); op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpNotEqual, OpEqual:
		return op, nil
	case "==":
		return OpEqual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// Compare orders two ints or two strings.
type Compare struct {
	A, B        Filter
	Op          CompareOp
	Sensitivity sensitivity.Sensitivity
}

// NewCompare validates op and builds the node.
func NewCompare(a Filter, op string, b Filter, s sensitivity.Sensitivity) (*Compare, error) {
	o, err := ParseOp(op)
	if err != nil {
		return nil, err
	}
	return &Compare{A: a, B: b, Op: o, Sensitivity: s}, nil
}

func (f *Compare) SetHitQueryContext(ctx HitQueryContext) error {
	return bindAll(ctx, f.A, f.B)
}

func (f *Compare) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return lookupAll(acc, f.A, f.B)
}

func (f *Compare) Rewrite() Filter {
	a, b := f.A.Rewrite(), f.B.Rewrite()
	if a == f.A && b == f.B {
		return f
	}
	return &Compare{A: a, B: b, Op: f.Op, Sensitivity: f.Sensitivity}
}

func (f *Compare) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	c, ok := f.A.Evaluate(doc, groups).Compare(f.B.Evaluate(doc, groups), f.Sensitivity)
	if !ok {
		return BoolValue(false)
	}
	switch f.Op {
	case OpLess:
		return BoolValue(c < 0)
	case OpLessEqual:
		return BoolValue(c <= 0)
	case OpGreater:
		return BoolValue(c > 0)
	case OpGreaterEqual:
		return BoolValue(c >= 0)
	case OpNotEqual:
		return BoolValue(c != 0)
	case OpEqual:
		return BoolValue(c == 0)
	}
	panic(fmt.Errorf("%w: %q", ErrUnknownOperator, f.Op))
}

func (f *Compare) String() string { return fmt.Sprintf("%s %s %s", f.A, f.Op, f.B) }

// And is true when both operands are truthy.
type And struct {
	A, B Filter
}

func NewAnd(a, b Filter) *And { return &And{A: a, B: b} }

func (f *And) SetHitQueryContext(ctx HitQueryContext) error { return bindAll(ctx, f.A, f.B) }

func (f *And) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return lookupAll(acc, f.A, f.B)
}

func (f *And) Rewrite() Filter {
	a, b := f.A.Rewrite(), f.B.Rewrite()
	if a == f.A && b == f.B {
		return f
	}
	return &And{A: a, B: b}
}

func (f *And) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	return BoolValue(f.A.Evaluate(doc, groups).IsTruthy() && f.B.Evaluate(doc, groups).IsTruthy())
}

func (f *And) String() string { return fmt.Sprintf("(%s & %s)", f.A, f.B) }

// Or is true when either operand is truthy.
type Or struct {
	A, B Filter
}

func NewOr(a, b Filter) *Or { return &Or{A: a, B: b} }

func (f *Or) SetHitQueryContext(ctx HitQueryContext) error { return bindAll(ctx, f.A, f.B) }

func (f *Or) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return lookupAll(acc, f.A, f.B)
}

func (f *Or) Rewrite() Filter {
	a, b := f.A.Rewrite(), f.B.Rewrite()
	if a == f.A && b == f.B {
		return f
	}
	return &Or{A: a, B: b}
}

func (f *Or) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	return BoolValue(f.A.Evaluate(doc, groups).IsTruthy() || f.B.Evaluate(doc, groups).IsTruthy())
}

func (f *Or) String() string { return fmt.Sprintf("(%s | %s)", f.A, f.B) }

// Implication is true unless A is truthy and B is not.
type Implication struct {
	A, B Filter
}

func NewImplication(a, b Filter) *Implication { return &Implication{A: a, B: b} }

func (f *Implication) SetHitQueryContext(ctx HitQueryContext) error { return bindAll(ctx, f.A, f.B) }

func (f *Implication) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return lookupAll(acc, f.A, f.B)
}

func (f *Implication) Rewrite() Filter {
	a, b := f.A.Rewrite(), f.B.Rewrite()
	if a == f.A && b == f.B {
		return f
	}
	return &Implication{A: a, B: b}
}

func (f *Implication) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	return BoolValue(!f.A.Evaluate(doc, groups).IsTruthy() || f.B.Evaluate(doc, groups).IsTruthy())
}

func (f *Implication) String() string { return fmt.Sprintf("(%s -> %s)", f.A, f.B) }

// Not negates the truthiness of its operand.
type Not struct {
	A Filter
}

func NewNot(a Filter) *Not { return &Not{A: a} }

func (f *Not) SetHitQueryContext(ctx HitQueryContext) error { return f.A.SetHitQueryContext(ctx) }

func (f *Not) LookupAnnotationIndices(acc fimatch.ForwardIndexAccessor) error {
	return f.A.LookupAnnotationIndices(acc)
}

func (f *Not) Rewrite() Filter {
	a := f.A.Rewrite()
	if a == f.A {
		return f
	}
	return &Not{A: a}
}

func (f *Not) Evaluate(doc fimatch.ForwardIndexDocument, groups []*Span) ConstraintValue {
	return BoolValue(!f.A.Evaluate(doc, groups).IsTruthy())
}

func (f *Not) String() string { return "!" + f.A.String() }

func bindAll(ctx HitQueryContext, fs ...Filter) error {
	for _, f := range fs {
		if err := f.SetHitQueryContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func lookupAll(acc fimatch.ForwardIndexAccessor, fs ...Filter) error {
	for _, f := range fs {
		if err := f.LookupAnnotationIndices(acc); err != nil {
			return err
		}
	}
	return nil
}
