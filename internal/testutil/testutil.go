package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/analysis"
	"CorpusSearch/internal/engine"
	"CorpusSearch/internal/index"
	"CorpusSearch/internal/indexing"
	"CorpusSearch/internal/sensitivity"
)

// WordSchema returns a whitespace-tokenized schema with a case-insensitive
// word annotation and a lemma annotation. Tests that need exact token
// positions use it.
func WordSchema() *index.Schema {
	return &index.Schema{
		Version:   index.SchemaVersion,
		CreatedAt: time.Now().UTC(),
		Analyzer:  index.AnalyzerWhitespace,
		Annotations: []index.AnnotationDef{
			{Name: "word", Annotator: index.AnnotatorWord, Sensitivity: sensitivity.Insensitive},
			{Name: "lemma", Annotator: index.AnnotatorLemma, Sensitivity: sensitivity.Insensitive},
		},
	}
}

// SampleTexts returns a small set of test documents.
func SampleTexts() []string {
	return []string{
		"This is a test",
		"This is very very very fun",
		"This is lots and lots and lots of fun",
		"The cat saw the dog and the dog saw the cat",
		"A dog is a dog is a dog",
	}
}

// NewCorpus indexes texts with schema and commits the result.
func NewCorpus(t testing.TB, schema *index.Schema, texts ...string) *indexing.Corpus {
	t.Helper()
	w, err := indexing.NewWriter(schema, analysis.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	IngestTexts(t, w, texts)
	c, err := w.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return c
}

// IngestTexts indexes a set of documents into a writer.
func IngestTexts(t testing.TB, w *indexing.Writer, texts []string) {
	t.Helper()
	for i, text := range texts {
		if _, err := w.AddDocument(indexing.Document{Text: text}); err != nil {
			t.Fatalf("AddDocument(%d): %v", i, err)
		}
	}
}

// HitText returns the main annotation values a hit covers, space separated.
func HitText(t testing.TB, c *indexing.Corpus, h engine.Hit) string {
	t.Helper()
	doc, err := c.Forward.Document(h.Doc)
	if err != nil {
		t.Fatalf("Document(%d): %v", h.Doc, err)
	}
	return strings.Join(doc.Text(0, h.Start, h.End), " ")
}

// HitTexts applies HitText to every hit.
func HitTexts(t testing.TB, c *indexing.Corpus, hits []engine.Hit) []string {
	t.Helper()
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = HitText(t, c, h)
	}
	return out
}

// AssertFileExists checks that a file exists at the given path.
func AssertFileExists(t testing.TB, fsys hackpadfs.FS, path string) {
	t.Helper()
	info, err := hackpadfs.Stat(fsys, path)
	if err != nil {
		t.Errorf("expected file to exist: %s: %v", path, err)
		return
	}
	if info.IsDir() {
		t.Errorf("expected %s to be a file", path)
	}
}

// AssertDirExists checks that a directory exists at the given path.
func AssertDirExists(t testing.TB, fsys hackpadfs.FS, path string) {
	t.Helper()
	info, err := hackpadfs.Stat(fsys, path)
	if err != nil {
		t.Errorf("expected directory to exist: %s: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}
