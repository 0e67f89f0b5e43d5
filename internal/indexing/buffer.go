package indexing

import (
	"errors"
	"sort"
	"sync/atomic"

	"CorpusSearch/internal/fimatch"
)

// Buffer limits.
const (
	DefaultBufferMemoryLimit = 256 * 1024 * 1024 // 256MB
	DefaultMaxDocs           = 1_000_000
)

var (
	ErrBufferFull      = errors.New("write buffer memory limit reached")
	ErrWriterNotActive = errors.New("writer is not active")
)

// PostingEntry holds the positions of one term in one document.
type PostingEntry struct {
	DocID     uint32
	Positions []int32
}

// PostingsList accumulates postings for a single term of one annotation.
// Entries are in ascending DocID order.
type PostingsList struct {
	Entries []PostingEntry
}

// Frequency returns the total number of occurrences.
func (pl *PostingsList) Frequency() int64 {
	var n int64
	for _, e := range pl.Entries {
		n += int64(len(e.Positions))
	}
	return n
}

// find returns the entry for doc, or nil.
func (pl *PostingsList) find(doc uint32) *PostingEntry {
	i := sort.Search(len(pl.Entries), func(i int) bool { return pl.Entries[i].DocID >= doc })
	if i < len(pl.Entries) && pl.Entries[i].DocID == doc {
		return &pl.Entries[i]
	}
	return nil
}

// WriteBuffer accumulates the inverted index of documents before commit.
// Documents must be added in ascending id order.
type WriteBuffer struct {
	// postings: annotation number → term id → postings list
	postings []map[fimatch.TermID]*PostingsList

	DocCount  int
	TermCount int

	memoryUsed  atomic.Int64
	MemoryLimit int64
	MaxDocs     int
}

// NewWriteBuffer creates a new empty write buffer for the given number of
// annotations.
func NewWriteBuffer(annotations int) *WriteBuffer {
	b := &WriteBuffer{
		MemoryLimit: DefaultBufferMemoryLimit,
		MaxDocs:     DefaultMaxDocs,
	}
	b.reset(annotations)
	return b
}

// AddPosting adds the positions of term in docID.
func (b *WriteBuffer) AddPosting(annot int, term fimatch.TermID, docID uint32, positions []int32) {
	terms := b.postings[annot]
	pl, ok := terms[term]
	if !ok {
		pl = &PostingsList{}
		terms[term] = pl
		b.TermCount++
	}

	pl.Entries = append(pl.Entries, PostingEntry{
		DocID:     docID,
		Positions: positions,
	})

	// Approximate memory tracking.
	b.memoryUsed.Add(int64(16 + len(positions)*4))
}

// AddDocument inverts the term ids of every annotation of one document.
// tokens is indexed by annotation number.
func (b *WriteBuffer) AddDocument(docID uint32, tokens [][]fimatch.TermID) {
	for annot, ids := range tokens {
		positions := make(map[fimatch.TermID][]int32)
		var order []fimatch.TermID
		for pos, id := range ids {
			if _, seen := positions[id]; !seen {
				order = append(order, id)
			}
			positions[id] = append(positions[id], int32(pos))
		}
		for _, id := range order {
			b.AddPosting(annot, id, docID, positions[id])
		}
	}
	b.DocCount++
}

// MemoryUsed returns the approximate memory used by the buffer.
func (b *WriteBuffer) MemoryUsed() int64 {
	return b.memoryUsed.Load()
}

// IsFull returns true if the buffer has reached its memory or document limit.
func (b *WriteBuffer) IsFull() bool {
	if b.DocCount >= b.MaxDocs {
		return true
	}
	if b.memoryUsed.Load() >= b.MemoryLimit {
		return true
	}
	return false
}

// Postings hands the buffered lists over as read-only postings and resets
// the buffer.
func (b *WriteBuffer) Postings(docCount int, tokens int64) *Postings {
	p := &Postings{lists: b.postings, docCount: docCount, tokens: tokens}
	b.reset(len(b.postings))
	return p
}

// Reset clears the buffer for reuse.
func (b *WriteBuffer) Reset() {
	b.reset(len(b.postings))
}

func (b *WriteBuffer) reset(annotations int) {
	b.postings = make([]map[fimatch.TermID]*PostingsList, annotations)
	for i := range b.postings {
		b.postings[i] = make(map[fimatch.TermID]*PostingsList)
	}
	b.DocCount = 0
	b.TermCount = 0
	b.memoryUsed.Store(0)
}
