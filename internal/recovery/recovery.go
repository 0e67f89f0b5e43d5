// Package recovery brings a saved corpus directory back to a consistent
// state after an interrupted save.
package recovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/index"
	"CorpusSearch/internal/storage"
)

// ErrRecoveryImpossible is returned when the directory holds no valid
// manifest with intact files.
var ErrRecoveryImpossible = errors.New("recovery impossible: no valid manifest with intact files found")

// Result contains the outcome of recovery.
type Result struct {
	// Manifest is the validated manifest of the corpus.
	Manifest *index.Manifest

	// TmpFilesRemoved lists temporary files left by interrupted writes.
	TmpFilesRemoved []string

	// OrphansRemoved lists files the manifest does not reference.
	OrphansRemoved []string
}

// Recover validates the corpus in dir and removes what an interrupted
// save left behind. It must run before the corpus is opened.
func Recover(fsys hackpadfs.FS, dir *index.CorpusDir, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Step 1: Load manifest
	manifest, err := loadManifest(fsys, dir, logger)
	if err != nil {
		return nil, fmt.Errorf("recovery step 1 (load manifest): %w", err)
	}

	// Step 2: Verify files
	if opts.VerifyChecksums {
		if err := verifyFiles(fsys, dir, manifest, logger); err != nil {
			return nil, fmt.Errorf("recovery step 2 (verify files): %w", err)
		}
	}

	// Step 3: Find leftovers
	tmp, orphans, err := findLeftovers(fsys, dir, manifest)
	if err != nil {
		return nil, fmt.Errorf("recovery step 3 (scan directory): %w", err)
	}

	// Step 4: Clean up
	result := &Result{Manifest: manifest}
	result.TmpFilesRemoved = removeAll(fsys, tmp, logger)
	if opts.RemoveOrphans {
		result.OrphansRemoved = removeAll(fsys, orphans, logger)
	} else if len(orphans) > 0 {
		logger.Info("recovery: orphan files kept", "count", len(orphans))
	}

	logger.Info("recovery complete",
		"manifest_id", manifest.ID,
		"docs", manifest.DocCount,
		"tmp_removed", len(result.TmpFilesRemoved),
		"orphans_removed", len(result.OrphansRemoved),
	)
	return result, nil
}

func loadManifest(fsys hackpadfs.FS, dir *index.CorpusDir, logger *slog.Logger) (*index.Manifest, error) {
	data, err := hackpadfs.ReadFile(fsys, dir.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryImpossible, err)
	}
	m, err := index.UnmarshalManifest(data)
	if err != nil {
		logger.Error("manifest unreadable", "path", dir.ManifestPath(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRecoveryImpossible, err)
	}
	return m, nil
}

func verifyFiles(fsys hackpadfs.FS, dir *index.CorpusDir, m *index.Manifest, logger *slog.Logger) error {
	for _, name := range m.FileNames() {
		p := path.Join(dir.Root, name)
		got, err := storage.ComputeFileChecksum(fsys, p)
		if err != nil {
			logger.Error("corpus file missing", "file", name, "error", err)
			return fmt.Errorf("%w: %v", ErrRecoveryImpossible, err)
		}
		if got != m.Files[name].Checksum {
			logger.Error("corpus file checksum mismatch", "file", name)
			return fmt.Errorf("%w: %s: %w", ErrRecoveryImpossible, name, storage.ErrChecksumMismatch)
		}
	}
	return nil
}

// findLeftovers lists the temporary files and the files not named by the
// manifest, relative to the FS root.
func findLeftovers(fsys hackpadfs.FS, dir *index.CorpusDir, m *index.Manifest) (tmp, orphans []string, err error) {
	err = fs.WalkDir(fsys, dir.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(p, ".tmp"):
			tmp = append(tmp, p)
		case p == dir.ManifestPath():
		default:
			if _, ok := m.Files[relative(dir, p)]; !ok {
				orphans = append(orphans, p)
			}
		}
		return nil
	})
	return tmp, orphans, err
}

func removeAll(fsys hackpadfs.FS, paths []string, logger *slog.Logger) []string {
	var removed []string
	for _, p := range paths {
		if err := hackpadfs.Remove(fsys, p); err != nil {
			logger.Warn("failed to remove leftover file", "path", p, "error", err)
			continue
		}
		logger.Debug("removed leftover file", "path", p)
		removed = append(removed, p)
	}
	return removed
}

func relative(dir *index.CorpusDir, p string) string {
	if dir.Root == "." {
		return p
	}
	return strings.TrimPrefix(p, dir.Root+"/")
}
