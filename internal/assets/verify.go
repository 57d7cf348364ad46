package assets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spherical/formation-extractor/internal/domain"
)

// Inventory compares an output directory with the expected asset set.
type Inventory struct {
	Present    []string
	Missing    []string
	Unexpected []string
}

// Complete reports whether every expected file exists and nothing else does.
func (inv Inventory) Complete() bool {
	return len(inv.Missing) == 0 && len(inv.Unexpected) == 0
}

// Verify lists dir and checks it against the filenames of ids. Only files
// following the FS-*.png convention count as unexpected; a missing directory
// means every asset is missing.
func Verify(dir string, ids []domain.FormationID) (Inventory, error) {
	expected := make(map[string]bool, len(ids))
	for _, id := range ids {
		expected[id.Filename()] = true
	}

	var inv Inventory
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return inv, domain.NewError(domain.ErrorTypeValidation, "cannot list output directory", err)
	}

	found := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "FS-") || filepath.Ext(name) != ".png" {
			continue
		}
		found[name] = true
		if expected[name] {
			inv.Present = append(inv.Present, name)
		} else {
			inv.Unexpected = append(inv.Unexpected, name)
		}
	}
	for name := range expected {
		if !found[name] {
			inv.Missing = append(inv.Missing, name)
		}
	}

	sort.Strings(inv.Present)
	sort.Strings(inv.Missing)
	sort.Strings(inv.Unexpected)
	return inv, nil
}
