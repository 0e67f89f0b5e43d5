package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path"

	"github.com/hack-pad/hackpadfs"
)

// File and directory permissions used for everything written here.
const (
	FilePerm = 0o644
	DirPerm  = 0o755
)

var ErrMissingHeader = errors.New("checksummed file has no header line")

// WriteChecked writes data to name in fsys, prefixed by a checksum header
// line. The file is written to a temporary name first and renamed into
// place, so readers never observe a partial file.
func WriteChecked(fsys hackpadfs.FS, name string, data []byte) error {
	if dir := path.Dir(name); dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, DirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(ChecksumPrefix) + 65 + len(data))
	buf.WriteString(string(ComputeChecksum(data)))
	buf.WriteByte('\n')
	buf.Write(data)

	tmp := name + ".tmp"
	if err := hackpadfs.WriteFullFile(fsys, tmp, buf.Bytes(), FilePerm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := hackpadfs.Rename(fsys, tmp, name); err != nil {
		_ = hackpadfs.Remove(fsys, tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadChecked reads a file written by WriteChecked and verifies it.
func ReadChecked(fsys hackpadfs.FS, name string) ([]byte, error) {
	raw, err := hackpadfs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingHeader)
	}
	data := raw[nl+1:]
	if err := VerifyChecksum(data, Checksum(raw[:nl])); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}
