package fimatch

import (
	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/sensitivity"
)

// TermID identifies a term within one annotation's vocabulary.
type TermID = int32

// NoTerm is returned for positions outside the document.
const NoTerm TermID = -1

// Direction is the scan direction of a TokenSource.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// TokenSource exposes one document's tokens relative to a start position.
// Relative position p maps to absolute position start + direction*p.
type TokenSource interface {
	// Token returns the term id of annotation annot at relPos, or NoTerm
	// if relPos is not a valid position.
	Token(annot, relPos int) TermID

	// ValidPos reports whether relPos falls inside the document.
	ValidPos(relPos int) bool
}

// ForwardIndexDocument gives random access to a document's term ids.
type ForwardIndexDocument interface {
	// Token returns the term id at an absolute position, or NoTerm.
	Token(annot, pos int) TermID
	ValidPos(pos int) bool
	Length() int
	TermString(annot int, id TermID) string
	// TermsEqual compares term ids via their sort positions under s.
	TermsEqual(annot int, ids [2]TermID, s sensitivity.Sensitivity) bool
}

// ForwardIndexAccessor resolves annotation names and literals to numbers.
type ForwardIndexAccessor interface {
	AnnotationNumber(name string) (int, error)
	// PropertyNumber is AnnotationNumber under its older name.
	PropertyNumber(name string) (int, error)
	// TermNumbers returns every term id equal to literal under s.
	TermNumbers(annot int, literal string, s sensitivity.Sensitivity) *roaring.Bitmap
	// NumberOfTerms is the vocabulary size of an annotation.
	NumberOfTerms(annot int) int
}

// TokenPropMapper creates token sources and maps values to term ids.
type TokenPropMapper interface {
	TokenSource(doc uint32, start int, dir Direction) TokenSource
	TermNumber(annot int, value string) TermID
}

// DocTokenSource is a TokenSource over a ForwardIndexDocument.
type DocTokenSource struct {
	doc   ForwardIndexDocument
	start int
	dir   Direction
}

// NewTokenSource returns a token source reading doc from start in direction dir.
func NewTokenSource(doc ForwardIndexDocument, start int, dir Direction) *DocTokenSource {
	if dir != Backward {
		dir = Forward
	}
	return &DocTokenSource{doc: doc, start: start, dir: dir}
}

func (s *DocTokenSource) Token(annot, relPos int) TermID {
	if relPos < 0 {
		return NoTerm
	}
	return s.doc.Token(annot, s.AbsolutePos(relPos))
}

func (s *DocTokenSource) ValidPos(relPos int) bool {
	return relPos >= 0 && s.doc.ValidPos(s.AbsolutePos(relPos))
}

// AbsolutePos converts a relative offset into a document position.
func (s *DocTokenSource) AbsolutePos(relPos int) int {
	return s.start + int(s.dir)*relPos
}

// Start is the absolute position of relative position 0.
func (s *DocTokenSource) Start() int { return s.start }

// Direction is the scan direction.
func (s *DocTokenSource) Direction() Direction { return s.dir }
