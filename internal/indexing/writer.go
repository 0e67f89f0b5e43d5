package indexing

import (
	"fmt"
	"log/slog"
	"sync"

	"CorpusSearch/internal/analysis"
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/forwardindex"
	"CorpusSearch/internal/index"
)

// Document is one text to be indexed.
type Document struct {
	Text string `json:"text"`
}

// Writer is the exclusive writer for a corpus under construction. Every
// document is tokenized once, annotated per the schema and appended to
// both the forward index and the postings buffer.
type Writer struct {
	schema     *index.Schema
	analyzer   analysis.Analyzer
	annotators map[string]analysis.Annotator
	fi         *forwardindex.Index
	buffer     *WriteBuffer
	logger     *slog.Logger

	mu     sync.Mutex
	active bool
}

// NewWriter creates a new Writer for the given schema, resolving its
// analyzer and annotators in registry.
func NewWriter(schema *index.Schema, registry *analysis.Registry, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := registry.Get(schema.Analyzer)
	if err != nil {
		return nil, err
	}
	annotators := make(map[string]analysis.Annotator, len(schema.Annotations))
	for _, def := range schema.Annotations {
		a, err := registry.Annotator(def.Annotator)
		if err != nil {
			return nil, fmt.Errorf("annotation %q: %w", def.Name, err)
		}
		annotators[def.Name] = a
	}
	fi, err := forwardindex.New(schema.AnnotationNames()...)
	if err != nil {
		return nil, err
	}
	return &Writer{
		schema:     schema,
		analyzer:   analyzer,
		annotators: annotators,
		fi:         fi,
		buffer:     NewWriteBuffer(len(schema.Annotations)),
		logger:     logger,
		active:     true,
	}, nil
}

// AddDocument tokenizes, annotates and indexes a single document and
// returns its id.
func (w *Writer) AddDocument(doc Document) (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return 0, ErrWriterNotActive
	}
	if w.buffer.IsFull() {
		return 0, ErrBufferFull
	}

	tokens := w.analyzer.Analyze(w.schema.MainAnnotation(), doc.Text)
	docID, err := w.fi.AddDocument(analysis.Annotate(tokens, w.annotators))
	if err != nil {
		return 0, err
	}

	ids := make([][]fimatch.TermID, len(w.schema.Annotations))
	for annot := range ids {
		ids[annot] = w.fi.Annotation(annot).Tokens(docID)
	}
	w.buffer.AddDocument(docID, ids)
	return docID, nil
}

// AddDocuments indexes multiple documents.
func (w *Writer) AddDocuments(docs []Document) error {
	for i, doc := range docs {
		if _, err := w.AddDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// DocCount returns the number of documents added so far.
func (w *Writer) DocCount() int {
	return w.fi.DocCount()
}

// IsFull returns true if the write buffer has reached its memory or document limit.
func (w *Writer) IsFull() bool {
	return w.buffer.IsFull()
}

// Buffer returns the current write buffer.
func (w *Writer) Buffer() *WriteBuffer {
	return w.buffer
}

// Commit freezes the indexes and returns the finished corpus. The writer
// cannot be used afterwards.
func (w *Writer) Commit() (*Corpus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return nil, ErrWriterNotActive
	}
	w.active = false
	w.fi.Freeze()

	c := &Corpus{
		Schema:   w.schema,
		Forward:  w.fi,
		Postings: w.buffer.Postings(w.fi.DocCount(), w.fi.TotalTokens()),
	}
	w.logger.Debug("corpus committed",
		"docs", w.fi.DocCount(),
		"tokens", w.fi.TotalTokens(),
		"annotations", w.schema.AnnotationNames(),
	)
	return c, nil
}

// Abort discards all buffered documents. The writer stays usable.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}
	fi, err := forwardindex.New(w.schema.AnnotationNames()...)
	if err != nil {
		return err
	}
	w.fi = fi
	w.buffer.Reset()
	return nil
}

// Release deactivates the writer without committing.
func (w *Writer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}
