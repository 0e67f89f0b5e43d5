package indexing

import (
	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/forwardindex"
	"CorpusSearch/internal/index"
)

// Corpus is a searchable, read-only corpus: the schema plus the forward
// and inverted indexes built from the same documents.
type Corpus struct {
	Schema   *index.Schema
	Forward  *forwardindex.Index
	Postings *Postings
	// Manifest is set for corpora that were saved or opened.
	Manifest *index.Manifest
}

// Accessor returns the forward index accessor of the corpus.
func (c *Corpus) Accessor() *forwardindex.Accessor {
	return c.Forward.Accessor()
}

// DocCount returns the number of documents.
func (c *Corpus) DocCount() int {
	return c.Forward.DocCount()
}

// Save writes the corpus to dir. Postings are not stored; they are rebuilt
// from the forward index on open.
func (c *Corpus) Save(fsys hackpadfs.FS, dir *index.CorpusDir) error {
	m, err := index.Save(fsys, dir, c.Schema, c.Forward)
	if err != nil {
		return err
	}
	c.Manifest = m
	return nil
}

// OpenCorpus reads a corpus saved with Save.
func OpenCorpus(fsys hackpadfs.FS, dir *index.CorpusDir) (*Corpus, error) {
	schema, fi, m, err := index.Open(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &Corpus{
		Schema:   schema,
		Forward:  fi,
		Postings: BuildPostings(fi),
		Manifest: m,
	}, nil
}
