package matchfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/forwardindex"
	"CorpusSearch/internal/sensitivity"
)

// corpus has one document: "The cat saw the Cat ."
func corpus(t *testing.T) (*forwardindex.Accessor, fimatch.ForwardIndexDocument) {
	t.Helper()
	ix, err := forwardindex.New("word", "lemma")
	require.NoError(t, err)
	words := strings.Fields("The cat saw the Cat .")
	lemmas := strings.Fields("the cat see the cat .")
	_, err = ix.AddDocument(map[string][]string{"word": words, "lemma": lemmas})
	require.NoError(t, err)
	ix.Freeze()
	doc, err := ix.Document(0)
	require.NoError(t, err)
	return ix.Accessor(), doc
}

func groups(names ...string) *GroupContext {
	ctx := NewGroupContext()
	for _, n := range names {
		ctx.RegisterCapturedGroup(n)
	}
	return ctx
}

func span(start, end int) *Span { return &Span{Start: start, End: end} }

func TestGroupContext(t *testing.T) {
	ctx := NewGroupContext()
	assert.Equal(t, 0, ctx.RegisterCapturedGroup("A"))
	assert.Equal(t, 1, ctx.RegisterCapturedGroup("B"))
	assert.Equal(t, 0, ctx.RegisterCapturedGroup("A"))
	assert.Equal(t, []string{"A", "B"}, ctx.Names())
	_, ok := ctx.CapturedGroupIndex("C")
	assert.False(t, ok)
}

func TestRewrite_ReturnsSameInstanceWhenUnchanged(t *testing.T) {
	nodes := []Filter{
		NewStringLiteral("x"),
		NewTokenProperty("A", "word"),
		NewAnd(NewGroupPosition("A", false), NewIntLiteral(1)),
		NewNot(NewGroupPosition("A", true)),
		NewSameTokens("A", "B", "word", sensitivity.Sensitive),
	}
	for _, n := range nodes {
		assert.Same(t, n, n.Rewrite(), n.String())
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	f := NewAnd(
		NewEquals(NewTokenProperty("A", "word"), NewStringLiteral("cat"), sensitivity.Insensitive),
		NewNot(NewEquals(NewTokenProperty("A", "lemma"), NewTokenProperty("B", "lemma"), sensitivity.Sensitive)),
	)
	once := f.Rewrite()
	assert.NotSame(t, f, once)
	assert.Same(t, once, once.Rewrite())
	assert.Equal(t, once.String(), once.Rewrite().String())
}

func TestRewrite_FoldsLiteralEitherOrder(t *testing.T) {
	left := NewEquals(NewTokenProperty("A", "word"), NewStringLiteral("cat"), sensitivity.Insensitive).Rewrite()
	right := NewEquals(NewStringLiteral("cat"), NewTokenProperty("A", "word"), sensitivity.Insensitive).Rewrite()

	l, ok := left.(*TokenPropertyEqualsString)
	require.True(t, ok, "got %T", left)
	r, ok := right.(*TokenPropertyEqualsString)
	require.True(t, ok, "got %T", right)
	assert.Equal(t, "cat", l.Literal)
	assert.Equal(t, l.String(), r.String())
}

func TestRewrite_FoldsSameAnnotationIntoSameTokens(t *testing.T) {
	f := NewEquals(NewTokenProperty("A", "lemma"), NewTokenProperty("B", "lemma"), sensitivity.Insensitive).Rewrite()
	_, ok := f.(*SameTokens)
	assert.True(t, ok, "got %T", f)

	// Different annotations stay a plain comparison.
	g := NewEquals(NewTokenProperty("A", "lemma"), NewTokenProperty("B", "word"), sensitivity.Insensitive)
	assert.Same(t, g, g.Rewrite())
}

func TestBind_TokenPropertyEqualsString(t *testing.T) {
	acc, doc := corpus(t)
	bound, err := Bind(
		NewEquals(NewTokenProperty("A", "word"), NewStringLiteral("CAT"), sensitivity.Insensitive),
		groups("A"), acc)
	require.NoError(t, err)

	tpes := bound.Filter().(*TokenPropertyEqualsString)
	assert.Equal(t, 2, tpes.TermCount(), "cat and Cat")

	assert.True(t, bound.Matches(doc, []*Span{span(1, 2)}))
	assert.True(t, bound.Matches(doc, []*Span{span(4, 5)}))
	assert.False(t, bound.Matches(doc, []*Span{span(0, 1)}))
	assert.False(t, bound.Matches(doc, []*Span{nil}), "absent capture")
	assert.False(t, bound.Matches(doc, []*Span{span(2, 2)}), "empty capture")
}

func TestBind_SensitiveLiteral(t *testing.T) {
	acc, doc := corpus(t)
	bound, err := Bind(
		NewEquals(NewStringLiteral("Cat"), NewTokenProperty("A", "word"), sensitivity.Sensitive),
		groups("A"), acc)
	require.NoError(t, err)
	assert.False(t, bound.Matches(doc, []*Span{span(1, 2)}))
	assert.True(t, bound.Matches(doc, []*Span{span(4, 5)}))
}

func TestSameTokens(t *testing.T) {
	acc, doc := corpus(t)
	insensitive, err := Bind(NewSameTokens("A", "B", "word", sensitivity.Insensitive), groups("A", "B"), acc)
	require.NoError(t, err)
	sensitive, err := Bind(NewSameTokens("A", "B", "word", sensitivity.Sensitive), groups("A", "B"), acc)
	require.NoError(t, err)

	theThe := []*Span{span(0, 1), span(3, 4)}
	assert.True(t, insensitive.Matches(doc, theThe))
	assert.False(t, sensitive.Matches(doc, theThe))
	assert.True(t, sensitive.Matches(doc, []*Span{span(1, 2), span(1, 3)}))

	assert.False(t, insensitive.Matches(doc, []*Span{span(0, 1), nil}))
	assert.False(t, insensitive.Matches(doc, []*Span{nil, span(0, 1)}))
	assert.False(t, insensitive.Matches(doc, []*Span{span(0, 1)}), "slot beyond captures is absent")
}

func TestSameTokens_Negated(t *testing.T) {
	acc, doc := corpus(t)
	bound, err := Bind(
		NewNot(NewEquals(NewTokenProperty("A", "lemma"), NewTokenProperty("B", "lemma"), sensitivity.Sensitive)),
		groups("A", "B"), acc)
	require.NoError(t, err)
	assert.False(t, bound.Matches(doc, []*Span{span(1, 2), span(4, 5)}))
	assert.True(t, bound.Matches(doc, []*Span{span(1, 2), span(2, 3)}))
}

func TestTokenProperty_Value(t *testing.T) {
	acc, doc := corpus(t)
	bound, err := Bind(NewTokenProperty("A", "lemma"), groups("A"), acc)
	require.NoError(t, err)

	v := bound.Filter().Evaluate(doc, []*Span{span(2, 4)})
	assert.Equal(t, KindString, v.Kind())
	assert.Equal(t, "see", v.StringVal())
	assert.True(t, bound.Filter().Evaluate(doc, []*Span{nil}).IsUndefined())
}

func TestCompareAndPositions(t *testing.T) {
	acc, doc := corpus(t)
	lt, err := NewCompare(NewGroupPosition("A", true), "<=", NewGroupPosition("B", false), sensitivity.Sensitive)
	require.NoError(t, err)
	bound, err := Bind(lt, groups("A", "B"), acc)
	require.NoError(t, err)

	assert.True(t, bound.Matches(doc, []*Span{span(0, 2), span(2, 3)}))
	assert.False(t, bound.Matches(doc, []*Span{span(0, 3), span(2, 3)}))
	assert.False(t, bound.Matches(doc, []*Span{nil, span(2, 3)}))

	_, err = NewCompare(NewIntLiteral(1), "<>", NewIntLiteral(2), sensitivity.Sensitive)
	assert.ErrorIs(t, err, ErrUnknownOperator)

	op, err := ParseOp("==")
	require.NoError(t, err)
	assert.Equal(t, OpEqual, op)
}

func TestLogic(t *testing.T) {
	acc, doc := corpus(t)
	yes := NewEquals(NewIntLiteral(1), NewIntLiteral(1), sensitivity.Sensitive)
	no := NewEquals(NewIntLiteral(1), NewIntLiteral(2), sensitivity.Sensitive)

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"and", NewAnd(yes, no), false},
		{"or", NewOr(no, yes), true},
		{"implication false premise", NewImplication(no, no), true},
		{"implication", NewImplication(yes, no), false},
		{"not", NewNot(no), true},
		{"undefined equals", NewEquals(NewTokenProperty("A", "word"), NewTokenProperty("A", "lemma"), sensitivity.Sensitive), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bound, err := Bind(tc.f, groups("A"), acc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bound.Matches(doc, []*Span{nil}))
		})
	}
}

func TestBind_Errors(t *testing.T) {
	acc, _ := corpus(t)

	_, err := Bind(NewTokenProperty("X", "word"), groups("A"), acc)
	assert.ErrorIs(t, err, ErrUnknownCaptureGroup)

	_, err = Bind(NewTokenProperty("A", "pos"), groups("A"), acc)
	assert.ErrorIs(t, err, fimatch.ErrUnknownAnnotation)
}

func TestEvaluateUnbound(t *testing.T) {
	_, doc := corpus(t)
	f := NewEquals(NewTokenProperty("A", "word"), NewStringLiteral("cat"), sensitivity.Sensitive).Rewrite()
	assert.PanicsWithValue(t, ErrFilterNotBound, func() {
		f.Evaluate(doc, []*Span{span(0, 1)})
	})
}

func TestConstraintValue(t *testing.T) {
	assert.False(t, Undefined().IsTruthy())
	assert.True(t, IntValue(0).IsTruthy())
	assert.True(t, StringValue("").IsTruthy())
	assert.False(t, BoolValue(false).IsTruthy())

	assert.True(t, StringValue("Éte").Equal(StringValue("ete"), sensitivity.Insensitive))
	assert.False(t, StringValue("Éte").Equal(StringValue("ete"), sensitivity.CaseOnly))
	assert.False(t, IntValue(1).Equal(StringValue("1"), sensitivity.Insensitive))

	c, ok := IntValue(1).Compare(IntValue(2), sensitivity.Sensitive)
	assert.True(t, ok)
	assert.Negative(t, c)
	_, ok = IntValue(1).Compare(Undefined(), sensitivity.Sensitive)
	assert.False(t, ok)
}
