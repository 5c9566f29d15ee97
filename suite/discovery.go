package suite

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtension is the file extension of suite files.
const DefaultExtension = ".asmtest"

// Discover walks root and returns the identifier of every suite file below it,
// sorted so repeated runs see the same order. An identifier is the slash
// separated path relative to root with the extension removed.
func Discover(root, ext string) ([]string, error) {
	var ids []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == ext || !strings.HasSuffix(name, ext) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, ext)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering suites in %s: %w", root, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Path returns the file that holds the suite with the given identifier.
func Path(root, id, ext string) string {
	return filepath.Join(root, filepath.FromSlash(id)+ext)
}
