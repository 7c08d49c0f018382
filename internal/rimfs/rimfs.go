// Package rimfs implements an in-memory, read-only filesystem view of a
// decompressed javadoc JAR.
//
// archive/zip (standard library) is used for decompression; see DESIGN.md
// for why no third-party zip reader was used instead.
package rimfs

import (
	"archive/zip"
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound means the requested entry name is not present in the
// filesystem.
var ErrNotFound = errors.New("rimfs: entry not found")

// Fs is an immutable, fully-decompressed view of a JAR's entries. All
// entries are decompressed once at construction so Bytes is non-blocking
// and allocation-free beyond the slice share it hands back.
type Fs struct {
	size int64
	data map[string][]byte
}

// FromZip opens the zip archive at path and eagerly decompresses every
// entry into memory. Directory entries (names ending in "/", zero-length payloads)
// are retained in the map with empty payloads, matching the source
// archive, but can never satisfy a Bytes lookup for a file path.
func FromZip(path string) (*Fs, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "rimfs: opening %s", path)
	}
	defer zr.Close()

	data := make(map[string][]byte, len(zr.File))
	var total int64
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "rimfs: opening entry %s", f.Name)
		}
		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "rimfs: reading entry %s", f.Name)
		}
		data[f.Name] = buf
		total += int64(len(buf))
	}

	return &Fs{size: total, data: data}, nil
}

// Bytes returns the decompressed payload for name. The returned slice
// shares its backing array with the stored entry — callers that hand it
// to an HTTP response body don't pay a copy, but must not mutate it.
func (f *Fs) Bytes(name string) ([]byte, error) {
	b, ok := f.data[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	return b, nil
}

// Size returns the sum of decompressed entry sizes, which is what drives
// in-memory LRU eviction accounting (NOT the on-disk archive size).
func (f *Fs) Size() int64 {
	return f.size
}
