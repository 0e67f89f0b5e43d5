package indexing

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/engine"
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/forwardindex"
)

// Postings is the read-only inverted index of a corpus: per annotation and
// term id, the positions of the term in every document holding it. It is
// safe for concurrent use.
type Postings struct {
	lists    []map[fimatch.TermID]*PostingsList
	docCount int
	tokens   int64
}

// BuildPostings inverts a frozen forward index.
func BuildPostings(fi *forwardindex.Index) *Postings {
	names := fi.AnnotationNames()
	buf := NewWriteBuffer(len(names))
	tokens := make([][]fimatch.TermID, len(names))
	for d := 0; d < fi.DocCount(); d++ {
		for annot := range names {
			tokens[annot] = fi.Annotation(annot).Tokens(uint32(d))
		}
		buf.AddDocument(uint32(d), tokens)
	}
	return buf.Postings(fi.DocCount(), fi.TotalTokens())
}

// DocCount returns the number of documents the postings were built from.
func (p *Postings) DocCount() int { return p.docCount }

// TotalTokens returns the number of token positions in the corpus.
func (p *Postings) TotalTokens() int64 { return p.tokens }

// List returns the postings of one term, or nil.
func (p *Postings) List(annot int, term fimatch.TermID) *PostingsList {
	if annot < 0 || annot >= len(p.lists) {
		return nil
	}
	return p.lists[annot][term]
}

// Frequency returns the number of occurrences of any of terms.
func (p *Postings) Frequency(annot int, terms *roaring.Bitmap) int64 {
	var n int64
	for _, pl := range p.lookup(annot, terms) {
		n += pl.Frequency()
	}
	return n
}

// DocFrequency returns the number of documents holding any of terms.
func (p *Postings) DocFrequency(annot int, terms *roaring.Bitmap) int {
	docs := roaring.New()
	for _, pl := range p.lookup(annot, terms) {
		for _, e := range pl.Entries {
			docs.Add(e.DocID)
		}
	}
	return int(docs.GetCardinality())
}

// Source returns the postings of a term set as an engine.PositionSource.
func (p *Postings) Source(annot int, terms *roaring.Bitmap) *TermSetSource {
	return &TermSetSource{lists: p.lookup(annot, terms)}
}

func (p *Postings) lookup(annot int, terms *roaring.Bitmap) []*PostingsList {
	if terms == nil || annot < 0 || annot >= len(p.lists) {
		return nil
	}
	var out []*PostingsList
	it := terms.Iterator()
	for it.HasNext() {
		if pl, ok := p.lists[annot][fimatch.TermID(it.Next())]; ok {
			out = append(out, pl)
		}
	}
	return out
}

// TermSetSource is the union of the postings of several terms.
type TermSetSource struct {
	lists []*PostingsList
}

// Positions returns the sorted positions of any of the terms in doc.
func (s *TermSetSource) Positions(doc uint32) []int32 {
	var out []int32
	found := 0
	for _, pl := range s.lists {
		if e := pl.find(doc); e != nil {
			out = append(out, e.Positions...)
			found++
		}
	}
	if found > 1 {
		slices.Sort(out)
		out = slices.Compact(out)
	}
	return out
}

// Iterator returns a fresh iterator over the documents holding any of the
// terms.
func (s *TermSetSource) Iterator() engine.PostingsIterator {
	its := make([]engine.PostingsIterator, len(s.lists))
	for i, pl := range s.lists {
		docs := make([]uint32, len(pl.Entries))
		positions := make([][]int32, len(pl.Entries))
		for j, e := range pl.Entries {
			docs[j] = e.DocID
			positions[j] = e.Positions
		}
		its[i] = engine.NewSlicePostingsIterator(docs, positions)
	}
	if len(its) == 1 {
		return its[0]
	}
	return engine.NewDisjunctionIterator(its)
}

// Frequency returns the number of occurrences of any of the terms.
func (s *TermSetSource) Frequency() int64 {
	var n int64
	for _, pl := range s.lists {
		n += pl.Frequency()
	}
	return n
}
