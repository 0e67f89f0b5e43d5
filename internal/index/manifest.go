package index

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"CorpusSearch/internal/storage"
)

var ErrManifestCorrupt = errors.New("manifest checksum verification failed")

// Manifest describes a saved corpus. It is written last, so a directory
// without a valid manifest holds no complete corpus.
type Manifest struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	SchemaVersion uint32              `json:"schema_version"`
	DocCount      uint64              `json:"doc_count"`
	TokenCount    uint64              `json:"token_count"`
	Files         map[string]FileMeta `json:"files"`
	Checksum      storage.Checksum    `json:"checksum"`
}

// FileMeta describes a single file of a saved corpus.
type FileMeta struct {
	Size     int64            `json:"size"`
	Checksum storage.Checksum `json:"checksum"`
}

// FileNames returns the manifest's file names in sorted order.
func (m *Manifest) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalManifest serializes a manifest to JSON and computes its checksum.
// The checksum is computed over the JSON with the checksum field set to empty.
func MarshalManifest(m *Manifest) ([]byte, error) {
	checksum, err := computeManifestChecksum(m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum: %w", err)
	}
	m.Checksum = checksum

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest deserializes a manifest from JSON and verifies its checksum.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	savedChecksum := m.Checksum
	computed, err := computeManifestChecksum(&m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum for verification: %w", err)
	}
	if computed != savedChecksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrManifestCorrupt, savedChecksum, computed)
	}

	return &m, nil
}

// computeManifestChecksum serializes m with an empty checksum field and
// computes SHA-256 over the result. Map keys are emitted sorted, so the
// encoding is deterministic.
func computeManifestChecksum(m *Manifest) (storage.Checksum, error) {
	saved := m.Checksum
	m.Checksum = ""
	defer func() { m.Checksum = saved }()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}
