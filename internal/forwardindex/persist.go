package forwardindex

import (
	"fmt"
	"path"

	"github.com/goccy/go-json"
	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/storage"
)

// FileName is the name of the forward index file inside an index directory.
const FileName = "forward.json"

const fileVersion = 1

type annotationFile struct {
	Name  string             `json:"name"`
	Terms []string           `json:"terms"`
	Docs  [][]fimatch.TermID `json:"docs"`
}

type indexFile struct {
	Version     int              `json:"version"`
	Annotations []annotationFile `json:"annotations"`
}

// Save writes a frozen index to dir in fsys.
func Save(fsys hackpadfs.FS, dir string, ix *Index) error {
	if !ix.frozen {
		return ErrNotFrozen
	}
	f := indexFile{Version: fileVersion}
	for _, a := range ix.annotations {
		f.Annotations = append(f.Annotations, annotationFile{
			Name:  a.Name,
			Terms: a.Terms.Strings(),
			Docs:  a.docs,
		})
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal forward index: %w", err)
	}
	if err := storage.WriteChecked(fsys, path.Join(dir, FileName), data); err != nil {
		return fmt.Errorf("save forward index: %w", err)
	}
	return nil
}

// Load reads an index written by Save and freezes it.
func Load(fsys hackpadfs.FS, dir string) (*Index, error) {
	data, err := storage.ReadChecked(fsys, path.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("load forward index: %w", err)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal forward index: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("forwardindex: unsupported file version %d", f.Version)
	}

	names := make([]string, len(f.Annotations))
	for i, a := range f.Annotations {
		names[i] = a.Name
	}
	ix, err := New(names...)
	if err != nil {
		return nil, err
	}

	var lengths []int
	for i, af := range f.Annotations {
		a := ix.annotations[i]
		for _, term := range af.Terms {
			a.Terms.Add(term)
		}
		if i == 0 {
			for _, d := range af.Docs {
				lengths = append(lengths, len(d))
			}
		}
		if len(af.Docs) != len(lengths) {
			return nil, fmt.Errorf("%w: annotation %q has %d documents, expected %d", ErrLengthMismatch, af.Name, len(af.Docs), len(lengths))
		}
		for d, ids := range af.Docs {
			if len(ids) != lengths[d] {
				return nil, fmt.Errorf("%w: annotation %q document %d", ErrLengthMismatch, af.Name, d)
			}
			for _, id := range ids {
				if id < 0 || int(id) >= len(af.Terms) {
					return nil, fmt.Errorf("forwardindex: annotation %q document %d: term id %d out of range", af.Name, d, id)
				}
			}
		}
		a.docs = af.Docs
	}
	ix.lengths = lengths
	ix.Freeze()
	return ix, nil
}
