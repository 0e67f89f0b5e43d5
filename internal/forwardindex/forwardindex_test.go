package forwardindex

import (
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

func buildIndex(t *testing.T, texts ...string) *Index {
	t.Helper()
	ix, err := New("word", "lower")
	require.NoError(t, err)
	for _, text := range texts {
		words := strings.Fields(text)
		lower := make([]string, len(words))
		for i, w := range words {
			lower[i] = strings.ToLower(w)
		}
		_, err := ix.AddDocument(map[string][]string{"word": words, "lower": lower})
		require.NoError(t, err)
	}
	ix.Freeze()
	return ix
}

func TestTerms_SortPositions(t *testing.T) {
	terms := NewTerms()
	the := terms.Add("The")
	lower := terms.Add("the")
	cafe := terms.Add("café")
	plain := terms.Add("cafe")
	assert.Equal(t, the, terms.Add("The"), "Add must be idempotent")
	terms.Freeze()

	assert.True(t, terms.TermsEqual(the, lower, sensitivity.Insensitive))
	assert.True(t, terms.TermsEqual(the, lower, sensitivity.DiacriticsOnly))
	assert.False(t, terms.TermsEqual(the, lower, sensitivity.Sensitive))
	assert.False(t, terms.TermsEqual(the, lower, sensitivity.CaseOnly))
	assert.True(t, terms.TermsEqual(cafe, plain, sensitivity.CaseOnly))
	assert.False(t, terms.TermsEqual(cafe, plain, sensitivity.DiacriticsOnly))
	assert.False(t, terms.TermsEqual(fimatch.NoTerm, fimatch.NoTerm, sensitivity.Insensitive))

	assert.Equal(t, terms.SortPosition(the, sensitivity.Insensitive), terms.SortPosition(lower, sensitivity.Insensitive))
	assert.NotEqual(t, terms.SortPosition(the, sensitivity.Sensitive), terms.SortPosition(lower, sensitivity.Sensitive))
}

func TestTerms_TermNumbers(t *testing.T) {
	terms := NewTerms()
	for _, w := range []string{"Test", "test", "TEST", "other"} {
		terms.Add(w)
	}
	terms.Freeze()

	assert.Equal(t, uint64(3), terms.TermNumbers("test", sensitivity.Insensitive).GetCardinality())
	assert.Equal(t, []uint32{1}, terms.TermNumbers("test", sensitivity.Sensitive).ToArray())
	assert.True(t, terms.TermNumbers("missing", sensitivity.Insensitive).IsEmpty())

	// Callers may modify the result.
	bm := terms.TermNumbers("test", sensitivity.Insensitive)
	bm.Clear()
	assert.Equal(t, uint64(3), terms.TermNumbers("test", sensitivity.Insensitive).GetCardinality())
}

func TestTerms_Expand(t *testing.T) {
	terms := NewTerms()
	for _, w := range []string{"walk", "Walked", "talk", "walking"} {
		terms.Add(w)
	}
	terms.Freeze()

	got := terms.Expand(func(k string) bool { return strings.HasPrefix(k, "walk") }, sensitivity.Insensitive)
	assert.Equal(t, []uint32{0, 1, 3}, got.ToArray())
}

func TestTerms_FrozenAdd(t *testing.T) {
	terms := NewTerms()
	terms.Add("a")
	terms.Freeze()
	assert.NotPanics(t, func() { terms.Add("a") })
	assert.Panics(t, func() { terms.Add("b") })
}

func TestIndex_Document(t *testing.T) {
	ix := buildIndex(t, "This is a test", "The test")

	word, err := ix.AnnotationNumber("word")
	require.NoError(t, err)
	_, err = ix.AnnotationNumber("pos")
	assert.ErrorIs(t, err, fimatch.ErrUnknownAnnotation)

	doc, err := ix.Document(0)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Length())
	assert.Equal(t, "test", doc.TermString(word, doc.Token(word, 3)))
	assert.Equal(t, fimatch.NoTerm, doc.Token(word, 4))
	assert.Equal(t, fimatch.NoTerm, doc.Token(word, -1))
	assert.Equal(t, []string{"is", "a"}, doc.Text(word, 1, 3))

	_, err = ix.Document(2)
	assert.ErrorIs(t, err, ErrUnknownDoc)

	assert.Equal(t, 2, ix.DocCount())
	assert.Equal(t, int64(6), ix.TotalTokens())
}

func TestIndex_AddDocumentValidation(t *testing.T) {
	ix, err := New("word", "lemma")
	require.NoError(t, err)

	_, err = ix.AddDocument(map[string][]string{"word": {"a", "b"}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = ix.AddDocument(map[string][]string{"word": {"a", "b"}, "lemma": {"a"}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = New()
	assert.ErrorIs(t, err, ErrNoAnnotations)

	_, err = New("word", "word")
	assert.Error(t, err)

	ix.Freeze()
	_, err = ix.AddDocument(map[string][]string{"word": {}, "lemma": {}})
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestAccessor_TokenSource(t *testing.T) {
	ix := buildIndex(t, "This is very very very fun")
	acc := ix.Accessor()
	word, _ := acc.AnnotationNumber("word")
	very := acc.TermNumber(word, "very")

	back := acc.TokenSource(0, 5, fimatch.Backward)
	assert.Equal(t, very, back.Token(word, 1))
	assert.True(t, back.ValidPos(5))
	assert.False(t, back.ValidPos(6))
	assert.Equal(t, fimatch.NoTerm, back.Token(word, 6))

	missing := acc.TokenSource(9, 0, fimatch.Forward)
	assert.False(t, missing.ValidPos(0))

	assert.Equal(t, uint64(1), acc.TermNumbers(word, "VERY", sensitivity.Insensitive).GetCardinality())
	assert.True(t, acc.TermNumbers(word, "VERY", sensitivity.Sensitive).IsEmpty())
	assert.Equal(t, 4, acc.NumberOfTerms(word))
}

func TestSaveLoad(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)

	ix := buildIndex(t, "This is a test", "Another Test here")
	require.NoError(t, Save(fs, "corpus", ix))

	loaded, err := Load(fs, "corpus")
	require.NoError(t, err)
	assert.Equal(t, ix.AnnotationNames(), loaded.AnnotationNames())
	assert.Equal(t, ix.DocCount(), loaded.DocCount())

	lower, _ := loaded.AnnotationNumber("lower")
	doc, err := loaded.Document(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"another", "test", "here"}, doc.Text(lower, 0, 3))
	assert.Equal(t, uint64(1), loaded.Accessor().TermNumbers(lower, "TEST", sensitivity.Insensitive).GetCardinality())
}

func TestSave_RequiresFrozen(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)
	ix, err := New("word")
	require.NoError(t, err)
	assert.ErrorIs(t, Save(fs, "x", ix), ErrNotFrozen)
}
