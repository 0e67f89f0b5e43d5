package index

import (
	"path"
	"strings"
)

// CorpusDir represents the directory layout of a saved corpus inside a
// hackpadfs.FS. All path methods are pure functions with no I/O side
// effects. Paths are slash-separated and relative to the FS root.
type CorpusDir struct {
	Root string
}

// NewCorpusDir creates a CorpusDir for the given root path.
func NewCorpusDir(root string) *CorpusDir {
	root = strings.TrimPrefix(path.Clean("/"+root), "/")
	if root == "" {
		root = "."
	}
	return &CorpusDir{Root: root}
}

// SchemaPath returns the path to schema.json.
func (d *CorpusDir) SchemaPath() string {
	return path.Join(d.Root, "schema.json")
}

// ManifestPath returns the path to manifest.json.
func (d *CorpusDir) ManifestPath() string {
	return path.Join(d.Root, "manifest.json")
}

// ForwardIndexDir returns the directory holding the forward index file.
func (d *CorpusDir) ForwardIndexDir() string {
	return path.Join(d.Root, "forward")
}
