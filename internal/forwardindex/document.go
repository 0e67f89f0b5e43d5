package forwardindex

import (
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// Document is a read-only view of one document in a frozen Index.
type Document struct {
	ix     *Index
	doc    uint32
	length int
}

func (d *Document) ID() uint32  { return d.doc }
func (d *Document) Length() int { return d.length }

func (d *Document) ValidPos(pos int) bool { return pos >= 0 && pos < d.length }

// Token returns the term id at pos, or NoTerm when pos is out of range.
func (d *Document) Token(annot, pos int) fimatch.TermID {
	if !d.ValidPos(pos) || annot < 0 || annot >= len(d.ix.annotations) {
		return fimatch.NoTerm
	}
	return d.ix.annotations[annot].docs[d.doc][pos]
}

func (d *Document) TermString(annot int, id fimatch.TermID) string {
	if annot < 0 || annot >= len(d.ix.annotations) {
		return ""
	}
	return d.ix.annotations[annot].Terms.Get(id)
}

func (d *Document) TermsEqual(annot int, ids [2]fimatch.TermID, s sensitivity.Sensitivity) bool {
	if annot < 0 || annot >= len(d.ix.annotations) {
		return false
	}
	return d.ix.annotations[annot].Terms.TermsEqual(ids[0], ids[1], s)
}

// Text joins the values of one annotation between start and end.
func (d *Document) Text(annot, start, end int) []string {
	if start < 0 {
		start = 0
	}
	if end > d.length {
		end = d.length
	}
	out := make([]string, 0, end-start)
	for p := start; p < end; p++ {
		out = append(out, d.TermString(annot, d.Token(annot, p)))
	}
	return out
}
