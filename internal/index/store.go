package index

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/forwardindex"
	"CorpusSearch/internal/storage"
)

var ErrSchemaMismatch = errors.New("forward index annotations do not match the schema")

// Save writes schema, forward index and manifest to dir. The manifest is
// written last and records the size and checksum of every other file.
func Save(fsys hackpadfs.FS, dir *CorpusDir, schema *Schema, fi *forwardindex.Index) (*Manifest, error) {
	if err := checkAnnotations(schema, fi); err != nil {
		return nil, err
	}
	if err := WriteSchema(fsys, dir, schema); err != nil {
		return nil, err
	}
	if err := forwardindex.Save(fsys, dir.ForwardIndexDir(), fi); err != nil {
		return nil, err
	}

	m := &Manifest{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: schema.Version,
		DocCount:      uint64(fi.DocCount()),
		TokenCount:    uint64(fi.TotalTokens()),
		Files:         make(map[string]FileMeta),
	}
	for _, p := range []string{dir.SchemaPath(), path.Join(dir.ForwardIndexDir(), forwardindex.FileName)} {
		meta, err := fileMeta(fsys, p)
		if err != nil {
			return nil, err
		}
		m.Files[relative(dir, p)] = meta
	}

	data, err := MarshalManifest(m)
	if err != nil {
		return nil, err
	}
	tmp := dir.ManifestPath() + ".tmp"
	if err := hackpadfs.WriteFullFile(fsys, tmp, data, storage.FilePerm); err != nil {
		return nil, fmt.Errorf("write tmp manifest: %w", err)
	}
	if err := hackpadfs.Rename(fsys, tmp, dir.ManifestPath()); err != nil {
		_ = hackpadfs.Remove(fsys, tmp)
		return nil, fmt.Errorf("rename manifest: %w", err)
	}
	return m, nil
}

// Open reads a corpus written by Save. Every file listed in the manifest
// is verified against its recorded checksum before it is parsed.
func Open(fsys hackpadfs.FS, dir *CorpusDir) (*Schema, *forwardindex.Index, *Manifest, error) {
	data, err := hackpadfs.ReadFile(fsys, dir.ManifestPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := UnmarshalManifest(data)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, name := range m.FileNames() {
		got, err := storage.ComputeFileChecksum(fsys, path.Join(dir.Root, name))
		if err != nil {
			return nil, nil, nil, err
		}
		if got != m.Files[name].Checksum {
			return nil, nil, nil, fmt.Errorf("%w: %s", storage.ErrChecksumMismatch, name)
		}
	}

	schema, err := LoadSchema(fsys, dir)
	if err != nil {
		return nil, nil, nil, err
	}
	fi, err := forwardindex.Load(fsys, dir.ForwardIndexDir())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkAnnotations(schema, fi); err != nil {
		return nil, nil, nil, err
	}
	if uint64(fi.DocCount()) != m.DocCount {
		return nil, nil, nil, fmt.Errorf("%w: manifest lists %d documents, forward index has %d", ErrManifestCorrupt, m.DocCount, fi.DocCount())
	}
	return schema, fi, m, nil
}

func checkAnnotations(schema *Schema, fi *forwardindex.Index) error {
	want := schema.AnnotationNames()
	got := fi.AnnotationNames()
	if len(want) != len(got) {
		return fmt.Errorf("%w: schema %v, index %v", ErrSchemaMismatch, want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: schema %v, index %v", ErrSchemaMismatch, want, got)
		}
	}
	return nil
}

func fileMeta(fsys hackpadfs.FS, name string) (FileMeta, error) {
	info, err := hackpadfs.Stat(fsys, name)
	if err != nil {
		return FileMeta{}, fmt.Errorf("stat %s: %w", name, err)
	}
	sum, err := storage.ComputeFileChecksum(fsys, name)
	if err != nil {
		return FileMeta{}, err
	}
	return FileMeta{Size: info.Size(), Checksum: sum}, nil
}

func relative(dir *CorpusDir, p string) string {
	if dir.Root == "." {
		return p
	}
	return p[len(dir.Root)+1:]
}
