package fimatch

import (
	"errors"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CorpusSearch/internal/sensitivity"
)

// testDoc is a single-annotation document with ids assigned in order of
// first appearance.
type testDoc struct {
	ids   []TermID
	words []string
	vocab map[string]TermID
}

func newTestDoc(text string) *testDoc {
	d := &testDoc{vocab: make(map[string]TermID)}
	for _, w := range strings.Fields(text) {
		id, ok := d.vocab[w]
		if !ok {
			id = TermID(len(d.words))
			d.vocab[w] = id
			d.words = append(d.words, w)
		}
		d.ids = append(d.ids, id)
	}
	return d
}

func (d *testDoc) Token(_, pos int) TermID {
	if !d.ValidPos(pos) {
		return NoTerm
	}
	return d.ids[pos]
}

func (d *testDoc) ValidPos(pos int) bool { return pos >= 0 && pos < len(d.ids) }
func (d *testDoc) Length() int           { return len(d.ids) }

func (d *testDoc) TermString(_ int, id TermID) string {
	if id < 0 || int(id) >= len(d.words) {
		return ""
	}
	return d.words[id]
}

func (d *testDoc) TermsEqual(_ int, ids [2]TermID, s sensitivity.Sensitivity) bool {
	return sensitivity.Equal(d.TermString(0, ids[0]), d.TermString(0, ids[1]), s)
}

// terms returns the ids of the given words; unknown words are skipped.
func (d *testDoc) terms(words ...string) *roaring.Bitmap {
	bm := roaring.New()
	for _, w := range words {
		if id, ok := d.vocab[w]; ok {
			bm.Add(uint32(id))
		}
	}
	return bm
}

func (d *testDoc) tok(b *Builder, word string) *Fragment {
	return b.Token(0, d.terms(word), word)
}

// matchPositions runs the automaton at start, start+dir, start+2*dir, ...
// and returns the offsets i at which it matched.
func matchPositions(n *NFA, doc ForwardIndexDocument, start int, dir Direction) []int {
	var out []int
	for i := 0; i < doc.Length(); i++ {
		if n.Matches(NewTokenSource(doc, start+int(dir)*i, dir), 0) {
			out = append(out, i)
		}
	}
	return out
}

func finish(t *testing.T, b *Builder, f *Fragment) *NFA {
	t.Helper()
	n, err := b.Finish(f)
	require.NoError(t, err)
	return n
}

func TestSingleToken(t *testing.T) {
	doc := newTestDoc("This is a test")
	b := NewBuilder()
	n := finish(t, b, doc.tok(b, "test"))

	assert.Equal(t, []int{3}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{0}, matchPositions(n, doc, 3, Backward))
	assert.Equal(t, "NFA:#1:TOKEN(test,#2:MATCH())", n.String())
}

func TestSequence(t *testing.T) {
	doc := newTestDoc("This is a test")

	b := NewBuilder()
	fwd := finish(t, b, b.Sequence(doc.tok(b, "a"), doc.tok(b, "test")))
	assert.Equal(t, []int{2}, matchPositions(fwd, doc, 0, Forward))

	b = NewBuilder()
	bwd := finish(t, b, b.Sequence(doc.tok(b, "test"), doc.tok(b, "a")))
	assert.Equal(t, []int{0}, matchPositions(bwd, doc, 3, Backward))
}

func TestForwardBackwardSymmetry(t *testing.T) {
	doc := newTestDoc("a b a")

	b := NewBuilder()
	fwd := finish(t, b, b.Sequence(doc.tok(b, "a"), doc.tok(b, "b")))
	b = NewBuilder()
	bwd := finish(t, b, b.Sequence(doc.tok(b, "b"), doc.tok(b, "a")))

	for p := 0; p < doc.Length(); p++ {
		forward := fwd.Matches(NewTokenSource(doc, p, Forward), 0)
		backward := bwd.Matches(NewTokenSource(doc, p+1, Backward), 0)
		assert.Equal(t, forward, backward, "position %d", p)
	}
	assert.True(t, fwd.Matches(NewTokenSource(doc, 0, Forward), 0))
	assert.False(t, fwd.Matches(NewTokenSource(doc, 1, Forward), 0))
}

func TestKleeneStar(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"a e", true},
		{"a c c e", true},
		{"a c e", true},
		{"a b e", false},
		{"a c c", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			doc := newTestDoc(tt.text)
			b := NewBuilder()
			star, err := doc.tok(b, "c").Repeat(0, MaxUnlimited)
			require.NoError(t, err)
			n := finish(t, b, b.Sequence(doc.tok(b, "a"), star, doc.tok(b, "e")))
			src := NewTokenSource(doc, 0, Forward)
			assert.Equal(t, tt.want, n.Matches(src, 0))
		})
	}
}

func TestUnboundedRepetition(t *testing.T) {
	doc := newTestDoc("This is very very very fun")

	b := NewBuilder()
	rep, err := doc.tok(b, "very").Repeat(1, MaxUnlimited)
	require.NoError(t, err)
	n := finish(t, b, rep)

	assert.Equal(t, []int{2, 3, 4}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{1, 2, 3}, matchPositions(n, doc, 5, Backward))

	assert.Equal(t, []int{1, 2, 3}, n.FindMatches(NewTokenSource(doc, 2, Forward), 0))
	assert.Equal(t, 1, n.MinLength())
	assert.Equal(t, MaxUnlimited, n.MaxLength())
	assert.False(t, n.MatchesEmptySequence())
}

func TestBoundedRepetition(t *testing.T) {
	doc := newTestDoc("This is very very very fun")

	b := NewBuilder()
	rep, err := doc.tok(b, "very").Repeat(1, 2)
	require.NoError(t, err)
	n := finish(t, b, b.Sequence(doc.tok(b, "is"), rep))
	assert.Equal(t, []int{1}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{2, 3}, n.FindMatches(NewTokenSource(doc, 1, Forward), 0))
	assert.Equal(t, 2, n.MinLength())
	assert.Equal(t, 3, n.MaxLength())

	b = NewBuilder()
	rep, err = doc.tok(b, "very").Repeat(1, 2)
	require.NoError(t, err)
	bwd := finish(t, b, b.Sequence(rep, doc.tok(b, "is")))
	assert.Equal(t, []int{2, 3}, matchPositions(bwd, doc, 5, Backward))
}

func TestLargeBoundedRepetition(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	rep, err := doc.tok(b, "very").Repeat(0, 1000)
	require.NoError(t, err)
	// Every skip edge plus the last copy's next edge stay open.
	assert.Len(t, rep.dangling, 1001)
	n := finish(t, b, rep)
	assert.LessOrEqual(t, len(n.states), 2001)

	assert.Equal(t, []int{0, 1, 2, 3}, n.FindMatches(NewTokenSource(doc, 2, Forward), 0))
	assert.Equal(t, []int{0}, n.FindMatches(NewTokenSource(doc, 0, Forward), 0))
	assert.Equal(t, 1000, n.MaxLength())
}

func TestRepeatedSequenceIsCopied(t *testing.T) {
	doc := newTestDoc("a b a b a")
	b := NewBuilder()
	rep, err := b.Sequence(doc.tok(b, "a"), doc.tok(b, "b")).Repeat(2, 2)
	require.NoError(t, err)
	n := finish(t, b, rep)

	assert.Equal(t, []int{0}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{4}, n.FindMatches(NewTokenSource(doc, 0, Forward), 0))
	assert.True(t, n.AllSameLength())
}

func TestAlternation(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	n := finish(t, b, b.Alternation(
		b.Sequence(doc.tok(b, "is"), doc.tok(b, "very")),
		b.Sequence(doc.tok(b, "very"), doc.tok(b, "fun")),
	))
	assert.Equal(t, []int{1, 4}, matchPositions(n, doc, 0, Forward))
}

func TestAnyTokenRepetition(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	rep, err := b.AnyToken().Repeat(3, 3)
	require.NoError(t, err)
	n := finish(t, b, rep)

	assert.Equal(t, []int{0, 1, 2, 3}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{0, 1, 2, 3}, matchPositions(n, doc, 5, Backward))
}

func TestAnd(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	and, err := b.And(
		b.Sequence(doc.tok(b, "very"), doc.tok(b, "very"), b.AnyToken()),
		b.Sequence(b.AnyToken(), doc.tok(b, "very"), doc.tok(b, "very")),
	)
	require.NoError(t, err)
	n := finish(t, b, and)
	assert.Equal(t, []int{2}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, 3, n.MinLength())
	assert.Equal(t, 3, n.MaxLength())

	_, err = b.And()
	assert.ErrorIs(t, err, ErrEmptyAnd)
}

func TestUnboundedRepetitionOfAnd(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	and, err := b.And(doc.tok(b, "very"), b.AnyToken())
	require.NoError(t, err)
	rep, err := and.Repeat(1, MaxUnlimited)
	require.NoError(t, err)
	n := finish(t, b, b.Sequence(doc.tok(b, "is"), rep))

	assert.Equal(t, []int{2, 3, 4}, n.FindMatches(NewTokenSource(doc, 1, Forward), 0))
	assert.Equal(t, 2, n.MinLength())
	assert.Equal(t, MaxUnlimited, n.MaxLength())
}

func TestNotToken(t *testing.T) {
	doc := newTestDoc("This is very very very fun")
	b := NewBuilder()
	n := finish(t, b, b.NotToken(0, doc.terms("very"), "very"))

	assert.Equal(t, []int{0, 1, 5}, matchPositions(n, doc, 0, Forward))
	assert.Equal(t, []int{0, 4, 5}, matchPositions(n, doc, 5, Backward))
}

func TestOptionalAndEmpty(t *testing.T) {
	doc := newTestDoc("x y")
	b := NewBuilder()
	n := finish(t, b, doc.tok(b, "x").Optional())
	assert.True(t, n.MatchesEmptySequence())
	assert.Equal(t, []int{0, 1}, n.FindMatches(NewTokenSource(doc, 0, Forward), 0))

	b = NewBuilder()
	zero, err := doc.tok(b, "x").Repeat(0, 0)
	require.NoError(t, err)
	n = finish(t, b, zero)
	assert.True(t, n.MatchesEmptySequence())
	assert.Equal(t, 0, n.MaxLength())
}

func TestRepeatErrors(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		wantErr  error
	}{
		{"min above max", 3, 2, ErrInvalidRepetition},
		{"negative min", -1, 2, ErrInvalidRepetition},
		{"negative max", 0, -1, ErrInvalidRepetition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			_, err := b.AnyToken().Repeat(tt.min, tt.max)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	b := NewBuilder()
	_, err := b.AnyToken().Optional().Repeat(1, MaxUnlimited)
	assert.ErrorIs(t, err, ErrEpsilonCycle)
}

func TestFinishRejectsEpsilonLoop(t *testing.T) {
	b := NewBuilder()
	f := b.Empty()
	// Point the empty fragment's Or back at itself.
	f.patch(f.start)
	_, err := b.Finish(&Fragment{b: b, start: f.start})
	assert.ErrorIs(t, err, ErrEpsilonCycle)
}

func TestMarshalJSON(t *testing.T) {
	doc := newTestDoc("a b")
	b := NewBuilder()
	n := finish(t, b, b.Sequence(doc.tok(b, "a"), doc.tok(b, "b")))

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded struct {
		Start  int `json:"start"`
		States []struct {
			Kind  string   `json:"kind"`
			Terms []uint32 `json:"terms"`
		} `json:"states"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.States, 3)
	assert.Equal(t, "token", decoded.States[0].Kind)
	assert.Equal(t, []uint32{0}, decoded.States[0].Terms)
	assert.Equal(t, "match", decoded.States[2].Kind)
}

func FuzzRepeatMatching(f *testing.F) {
	f.Add(0, 3, "a a b a")
	f.Add(1, 1, "a")
	f.Add(2, 5, "b a a a a a a")

	f.Fuzz(func(t *testing.T, min, max int, text string) {
		if min < 0 || min > 8 || max < 0 || max > 8 {
			return
		}
		doc := newTestDoc(text + " a")
		b := NewBuilder()
		rep, err := doc.tok(b, "a").Repeat(min, max)
		if err != nil {
			return
		}
		n, err := b.Finish(rep)
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		for p := 0; p < doc.Length(); p++ {
			src := NewTokenSource(doc, p, Forward)
			ends := n.FindMatches(src, 0)
			if (len(ends) > 0) != n.Matches(src, 0) {
				t.Fatalf("FindMatches and Matches disagree at %d", p)
			}
			for _, e := range ends {
				if e < min || e > max {
					t.Fatalf("match length %d outside {%d,%d}", e, min, max)
				}
			}
		}
	})
}
