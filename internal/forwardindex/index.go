package forwardindex

import (
	"errors"
	"fmt"

	"CorpusSearch/internal/fimatch"
)

var (
	ErrFrozen         = errors.New("forwardindex: index is frozen")
	ErrNotFrozen      = errors.New("forwardindex: index is not frozen yet")
	ErrLengthMismatch = errors.New("forwardindex: annotation lengths differ")
	ErrNoAnnotations  = errors.New("forwardindex: at least one annotation is required")
	ErrUnknownDoc     = errors.New("forwardindex: unknown document")
)

// Annotation is the forward index of one annotation: its vocabulary plus,
// per document, the term id at every position.
type Annotation struct {
	Name  string
	Terms *Terms
	docs  [][]fimatch.TermID
}

// Tokens returns the term ids of a document.
func (a *Annotation) Tokens(doc uint32) []fimatch.TermID {
	if int(doc) >= len(a.docs) {
		return nil
	}
	return a.docs[doc]
}

// Index is the forward index of one annotated field. Documents are added
// while building; Freeze makes the index read-only and safe for
// concurrent readers.
type Index struct {
	annotations []*Annotation
	byName      map[string]int
	lengths     []int
	frozen      bool
}

// New creates an index with the given annotations. The first annotation is
// the main one.
func New(annotations ...string) (*Index, error) {
	if len(annotations) == 0 {
		return nil, ErrNoAnnotations
	}
	ix := &Index{byName: make(map[string]int, len(annotations))}
	for i, name := range annotations {
		if _, dup := ix.byName[name]; dup {
			return nil, fmt.Errorf("forwardindex: duplicate annotation %q", name)
		}
		ix.byName[name] = i
		ix.annotations = append(ix.annotations, &Annotation{Name: name, Terms: NewTerms()})
	}
	return ix, nil
}

// AddDocument appends a document given as annotation name -> values per
// position and returns its id. Every annotation must be present with the
// same length.
func (ix *Index) AddDocument(values map[string][]string) (uint32, error) {
	if ix.frozen {
		return 0, ErrFrozen
	}
	length := -1
	for _, a := range ix.annotations {
		vals, ok := values[a.Name]
		if !ok {
			return 0, fmt.Errorf("%w: missing %q", ErrLengthMismatch, a.Name)
		}
		if length >= 0 && len(vals) != length {
			return 0, fmt.Errorf("%w: %q has %d tokens, expected %d", ErrLengthMismatch, a.Name, len(vals), length)
		}
		length = len(vals)
	}

	for _, a := range ix.annotations {
		vals := values[a.Name]
		ids := make([]fimatch.TermID, len(vals))
		for i, v := range vals {
			ids[i] = a.Terms.Add(v)
		}
		a.docs = append(a.docs, ids)
	}
	ix.lengths = append(ix.lengths, length)
	return uint32(len(ix.lengths) - 1), nil
}

// Freeze finishes the vocabularies.
func (ix *Index) Freeze() {
	for _, a := range ix.annotations {
		a.Terms.Freeze()
	}
	ix.frozen = true
}

func (ix *Index) Frozen() bool { return ix.frozen }

// DocCount returns the number of documents.
func (ix *Index) DocCount() int { return len(ix.lengths) }

// DocLength returns the number of tokens in doc, or 0.
func (ix *Index) DocLength(doc uint32) int {
	if int(doc) >= len(ix.lengths) {
		return 0
	}
	return ix.lengths[doc]
}

// TotalTokens returns the number of tokens in the whole index.
func (ix *Index) TotalTokens() int64 {
	var n int64
	for _, l := range ix.lengths {
		n += int64(l)
	}
	return n
}

// AnnotationNames returns the annotation names, main annotation first.
func (ix *Index) AnnotationNames() []string {
	names := make([]string, len(ix.annotations))
	for i, a := range ix.annotations {
		names[i] = a.Name
	}
	return names
}

// AnnotationNumber returns the number of a named annotation.
func (ix *Index) AnnotationNumber(name string) (int, error) {
	n, ok := ix.byName[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", fimatch.ErrUnknownAnnotation, name)
	}
	return n, nil
}

// Annotation returns an annotation by number.
func (ix *Index) Annotation(n int) *Annotation {
	return ix.annotations[n]
}

// Document returns a read view of one document.
func (ix *Index) Document(doc uint32) (*Document, error) {
	if int(doc) >= len(ix.lengths) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDoc, doc)
	}
	return &Document{ix: ix, doc: doc, length: ix.lengths[doc]}, nil
}

// Accessor returns the query-time accessor for this index.
func (ix *Index) Accessor() *Accessor {
	return &Accessor{ix: ix}
}
