// Package assets persists formation images under their canonical filenames.
package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical/formation-extractor/internal/domain"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer stores assets in a single flat directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns where the asset for id is stored.
func (w *Writer) Path(id domain.FormationID) string {
	return filepath.Join(w.dir, id.Filename())
}

// Write stores the asset as <dir>/FS-<id>.png, replacing any previous file.
// The data goes to a temporary file that is renamed into place, so readers
// never observe a partially written image.
func (w *Writer) Write(asset domain.Asset) (string, error) {
	path := w.Path(asset.ID)

	if asset.ID == "" {
		return "", domain.WriteError(asset.ID, path, fmt.Errorf("empty formation identifier"))
	}
	if err := os.MkdirAll(w.dir, dirPerm); err != nil {
		return "", domain.WriteError(asset.ID, path, err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+asset.ID.Filename()+".*")
	if err != nil {
		return "", domain.WriteError(asset.ID, path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(asset.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", domain.WriteError(asset.ID, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", domain.WriteError(asset.ID, path, err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return "", domain.WriteError(asset.ID, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", domain.WriteError(asset.ID, path, err)
	}

	return path, nil
}
