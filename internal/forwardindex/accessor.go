package forwardindex

import (
	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// Accessor resolves names and literals against a frozen Index and hands out
// token sources. It holds no per-query state.
type Accessor struct {
	ix *Index
}

func (a *Accessor) Index() *Index { return a.ix }

func (a *Accessor) AnnotationNumber(name string) (int, error) {
	return a.ix.AnnotationNumber(name)
}

func (a *Accessor) PropertyNumber(name string) (int, error) {
	return a.AnnotationNumber(name)
}

func (a *Accessor) TermNumbers(annot int, literal string, s sensitivity.Sensitivity) *roaring.Bitmap {
	if annot < 0 || annot >= len(a.ix.annotations) {
		return roaring.New()
	}
	return a.ix.annotations[annot].Terms.TermNumbers(literal, s)
}

func (a *Accessor) NumberOfTerms(annot int) int {
	if annot < 0 || annot >= len(a.ix.annotations) {
		return 0
	}
	return a.ix.annotations[annot].Terms.NumberOfTerms()
}

// TermNumber returns the id of an exact value, or NoTerm.
func (a *Accessor) TermNumber(annot int, value string) fimatch.TermID {
	if annot < 0 || annot >= len(a.ix.annotations) {
		return fimatch.NoTerm
	}
	return a.ix.annotations[annot].Terms.IndexOf(value)
}

// ExpandTerms returns the ids of terms whose comparison key satisfies match.
func (a *Accessor) ExpandTerms(annot int, match func(key string) bool, s sensitivity.Sensitivity) *roaring.Bitmap {
	if annot < 0 || annot >= len(a.ix.annotations) {
		return roaring.New()
	}
	return a.ix.annotations[annot].Terms.Expand(match, s)
}

// TokenSource returns a source over doc; an unknown doc yields a source
// with no valid positions.
func (a *Accessor) TokenSource(doc uint32, start int, dir fimatch.Direction) fimatch.TokenSource {
	d, err := a.ix.Document(doc)
	if err != nil {
		d = &Document{ix: a.ix, doc: doc}
	}
	return fimatch.NewTokenSource(d, start, dir)
}

// Document returns the forward-index document for doc.
func (a *Accessor) Document(doc uint32) (fimatch.ForwardIndexDocument, error) {
	d, err := a.ix.Document(doc)
	if err != nil {
		return nil, err
	}
	return d, nil
}
