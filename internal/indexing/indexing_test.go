package indexing

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hack-pad/hackpadfs/mem"

	"CorpusSearch/internal/analysis"
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/index"
	"CorpusSearch/internal/sensitivity"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(index.DefaultSchema(), analysis.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func testCorpus(t *testing.T, texts ...string) *Corpus {
	t.Helper()
	w := testWriter(t)
	for _, text := range texts {
		if _, err := w.AddDocument(Document{Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	c, err := w.Commit()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// --- WriteBuffer Tests ---

func TestWriteBuffer_AddDocument(t *testing.T) {
	buf := NewWriteBuffer(1)

	buf.AddDocument(0, [][]fimatch.TermID{{0, 1, 0}})
	buf.AddDocument(1, [][]fimatch.TermID{{0}})

	if buf.TermCount != 2 {
		t.Errorf("TermCount = %d, want 2", buf.TermCount)
	}
	if buf.DocCount != 2 {
		t.Errorf("DocCount = %d, want 2", buf.DocCount)
	}

	p := buf.Postings(2, 4)
	pl := p.List(0, 0)
	if len(pl.Entries) != 2 {
		t.Fatalf("term 0 entries = %d, want 2", len(pl.Entries))
	}
	if got := pl.Entries[0].Positions; len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("term 0 positions in doc 0 = %v, want [0 2]", got)
	}
	if pl.Frequency() != 3 {
		t.Errorf("Frequency = %d, want 3", pl.Frequency())
	}
	if p.DocCount() != 2 || p.TotalTokens() != 4 {
		t.Errorf("DocCount, TotalTokens = %d, %d; want 2, 4", p.DocCount(), p.TotalTokens())
	}
	if buf.TermCount != 0 {
		t.Error("handing over the postings should reset the buffer")
	}
}

func TestWriteBuffer_IsFull_DocLimit(t *testing.T) {
	buf := NewWriteBuffer(1)
	buf.MaxDocs = 2

	buf.AddDocument(0, [][]fimatch.TermID{{0}})
	if buf.IsFull() {
		t.Error("should not be full with 1 doc")
	}

	buf.AddDocument(1, [][]fimatch.TermID{{0}})
	if !buf.IsFull() {
		t.Error("should be full with 2 docs")
	}
}

func TestWriteBuffer_IsFull_MemoryLimit(t *testing.T) {
	buf := NewWriteBuffer(1)
	buf.MemoryLimit = 10

	buf.AddPosting(0, 0, 0, []int32{1, 2, 3})
	if !buf.IsFull() {
		t.Errorf("should be full, memory used %d", buf.MemoryUsed())
	}

	buf.Reset()
	if buf.MemoryUsed() != 0 || buf.IsFull() {
		t.Error("Reset should clear memory accounting")
	}
}

// --- Writer Tests ---

func TestWriter_AddDocument(t *testing.T) {
	c := testCorpus(t, "The cats ran. The cat runs!")

	if c.DocCount() != 1 {
		t.Fatalf("DocCount = %d, want 1", c.DocCount())
	}
	doc, err := c.Forward.Document(0)
	if err != nil {
		t.Fatal(err)
	}
	// The, cats, ran, ., The, cat, runs, !
	if doc.Length() != 8 {
		t.Errorf("Length = %d, want 8", doc.Length())
	}

	acc := c.Accessor()
	word, _ := acc.AnnotationNumber("word")
	lemma, _ := acc.AnnotationNumber("lemma")

	the := acc.TermNumbers(word, "the", sensitivity.Insensitive)
	if got := c.Postings.Frequency(word, the); got != 2 {
		t.Errorf("frequency of 'the' = %d, want 2", got)
	}
	cat := acc.TermNumbers(lemma, "cat", sensitivity.Insensitive)
	positions := c.Postings.Source(lemma, cat).Positions(0)
	if len(positions) != 2 || positions[0] != 1 || positions[1] != 5 {
		t.Errorf("lemma 'cat' positions = %v, want [1 5]", positions)
	}
}

func TestWriter_NotActiveAfterCommit(t *testing.T) {
	w := testWriter(t)
	if _, err := w.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddDocument(Document{Text: "late"}); err != ErrWriterNotActive {
		t.Errorf("expected ErrWriterNotActive, got %v", err)
	}
	if _, err := w.Commit(); err != ErrWriterNotActive {
		t.Errorf("second Commit: expected ErrWriterNotActive, got %v", err)
	}
}

func TestWriter_Release(t *testing.T) {
	w := testWriter(t)
	w.Release()
	if _, err := w.AddDocument(Document{Text: "x"}); err != ErrWriterNotActive {
		t.Errorf("expected ErrWriterNotActive, got %v", err)
	}
}

func TestWriter_Abort(t *testing.T) {
	w := testWriter(t)
	if err := w.AddDocuments([]Document{{Text: "one two"}, {Text: "three"}}); err != nil {
		t.Fatal(err)
	}
	if w.DocCount() != 2 {
		t.Fatalf("DocCount = %d, want 2", w.DocCount())
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}
	if w.DocCount() != 0 {
		t.Errorf("DocCount after Abort = %d, want 0", w.DocCount())
	}
	id, err := w.AddDocument(Document{Text: "again"})
	if err != nil || id != 0 {
		t.Errorf("AddDocument after Abort = %d, %v; want 0, nil", id, err)
	}
}

func TestWriter_BufferFull(t *testing.T) {
	w := testWriter(t)
	w.Buffer().MaxDocs = 1
	if _, err := w.AddDocument(Document{Text: "first"}); err != nil {
		t.Fatal(err)
	}
	if !w.IsFull() {
		t.Fatal("writer should be full")
	}
	if _, err := w.AddDocument(Document{Text: "second"}); err != ErrBufferFull {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
}

func TestNewWriter_UnknownAnnotator(t *testing.T) {
	schema := index.DefaultSchema()
	registry := analysis.NewRegistry()
	schema.Annotations[0].Annotator = "lowercase"
	if _, err := NewWriter(schema, registry, nil); err != nil {
		t.Fatalf("lowercase annotator should resolve: %v", err)
	}

	schema.Analyzer = "nonexistent"
	if _, err := NewWriter(schema, registry, nil); err == nil {
		t.Error("expected an error for an unknown analyzer")
	}
}

// --- Postings Tests ---

func TestPostings_SourceIterator(t *testing.T) {
	c := testCorpus(t, "a dog", "a cat", "the dog and the cat")
	acc := c.Accessor()

	terms := roaring.New()
	terms.Add(uint32(acc.TermNumber(0, "dog")))
	terms.Add(uint32(acc.TermNumber(0, "cat")))

	if got := c.Postings.DocFrequency(0, terms); got != 3 {
		t.Errorf("DocFrequency = %d, want 3", got)
	}
	src := c.Postings.Source(0, terms)
	if src.Frequency() != 4 {
		t.Errorf("Frequency = %d, want 4", src.Frequency())
	}

	it := src.Iterator()
	var docs []uint32
	for it.Next() {
		docs = append(docs, it.DocID())
	}
	if len(docs) != 3 || docs[0] != 0 || docs[2] != 2 {
		t.Errorf("docs = %v, want [0 1 2]", docs)
	}
	if got := src.Positions(2); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Errorf("positions in doc 2 = %v, want [1 4]", got)
	}
}

func TestPostings_UnknownTerms(t *testing.T) {
	c := testCorpus(t, "a dog")
	src := c.Postings.Source(0, roaring.BitmapOf(99))
	if src.Iterator().Next() {
		t.Error("unknown term should have no documents")
	}
	if c.Postings.Source(7, roaring.BitmapOf(0)).Positions(0) != nil {
		t.Error("unknown annotation should have no positions")
	}
}

func TestBuildPostings_MatchesWriter(t *testing.T) {
	c := testCorpus(t, "the cat saw the dog", "the end")
	rebuilt := BuildPostings(c.Forward)
	acc := c.Accessor()

	for _, word := range []string{"the", "cat", "dog", "end"} {
		terms := roaring.BitmapOf(uint32(acc.TermNumber(0, word)))
		if a, b := c.Postings.Frequency(0, terms), rebuilt.Frequency(0, terms); a != b {
			t.Errorf("frequency of %q: writer %d, rebuilt %d", word, a, b)
		}
	}
}

// --- Corpus Tests ---

func TestCorpus_SaveOpen(t *testing.T) {
	fs, err := mem.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	c := testCorpus(t, "The cat sat.", "A dog barked!")
	dir := index.NewCorpusDir("corpus")
	if err := c.Save(fs, dir); err != nil {
		t.Fatal(err)
	}
	if c.Manifest == nil || c.Manifest.DocCount != 2 {
		t.Fatalf("manifest = %+v", c.Manifest)
	}

	opened, err := OpenCorpus(fs, dir)
	if err != nil {
		t.Fatal(err)
	}
	if opened.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", opened.DocCount())
	}
	if opened.Manifest.ID != c.Manifest.ID {
		t.Errorf("manifest id = %s, want %s", opened.Manifest.ID, c.Manifest.ID)
	}
	acc := opened.Accessor()
	dog := roaring.BitmapOf(uint32(acc.TermNumber(0, "dog")))
	if got := opened.Postings.Source(0, dog).Positions(1); len(got) != 1 || got[0] != 1 {
		t.Errorf("positions of 'dog' = %v, want [1]", got)
	}
}

func TestOpenCorpus_Missing(t *testing.T) {
	fs, err := mem.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := OpenCorpus(fs, index.NewCorpusDir("missing")); err == nil {
		t.Error("expected an error for a missing corpus")
	}
}
