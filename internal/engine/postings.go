package engine

import "slices"

// PostingsIterator iterates over a positional postings list in document
// ID order.
type PostingsIterator interface {
	// Next advances to the next document. Returns false when exhausted.
	Next() bool

	// DocID returns the current document ID. Valid only after Next() returns true.
	DocID() uint32

	// Freq returns the number of occurrences in the current document.
	Freq() uint32

	// Positions returns the sorted token positions in the current document.
	Positions() []int32

	// Advance moves to the first document >= target. Returns false if no such document.
	Advance(target uint32) bool

	// Cost returns an estimate of remaining documents.
	Cost() int64
}

// SlicePostingsIterator is a simple in-memory PostingsIterator backed by slices.
type SlicePostingsIterator struct {
	docIDs    []uint32
	positions [][]int32
	pos       int
}

// NewSlicePostingsIterator creates a PostingsIterator from doc IDs and the
// positions per doc. docIDs must be sorted ascending; positions may be nil
// for a doc-only list.
func NewSlicePostingsIterator(docIDs []uint32, positions [][]int32) *SlicePostingsIterator {
	return &SlicePostingsIterator{
		docIDs:    docIDs,
		positions: positions,
		pos:       -1,
	}
}

func (it *SlicePostingsIterator) Next() bool {
	it.pos++
	return it.pos < len(it.docIDs)
}

func (it *SlicePostingsIterator) DocID() uint32 {
	return it.docIDs[it.pos]
}

func (it *SlicePostingsIterator) Freq() uint32 {
	if it.positions == nil {
		return 1
	}
	return uint32(len(it.Positions()))
}

func (it *SlicePostingsIterator) Positions() []int32 {
	if it.pos < 0 || it.pos >= len(it.positions) {
		return nil
	}
	return it.positions[it.pos]
}

func (it *SlicePostingsIterator) Advance(target uint32) bool {
	// If already positioned at or past target, return true.
	if it.pos >= 0 && it.pos < len(it.docIDs) && it.docIDs[it.pos] >= target {
		return true
	}
	for it.pos+1 < len(it.docIDs) {
		it.pos++
		if it.docIDs[it.pos] >= target {
			return true
		}
	}
	it.pos = len(it.docIDs)
	return false
}

func (it *SlicePostingsIterator) Cost() int64 {
	remaining := len(it.docIDs) - it.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

// HasPosition reports whether pos occurs in the iterator's current document.
func HasPosition(it PostingsIterator, pos int) bool {
	_, found := slices.BinarySearch(it.Positions(), int32(pos))
	return found
}
