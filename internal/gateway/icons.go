package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IconStore reads notification icons from a configured directory. Icon paths
// stored on templates and notifications are relative to this directory.
type IconStore struct {
	dir string
}

func NewIconStore(dir string) *IconStore {
	return &IconStore{dir: dir}
}

// Open returns the icon bytes and its base filename. Paths escaping the icon
// directory are rejected.
func (s *IconStore) Open(iconPath string) ([]byte, string, error) {
	cleaned := filepath.Clean(iconPath)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, "", fmt.Errorf("icon path %q escapes icon directory", iconPath)
	}

	full := filepath.Join(s.dir, cleaned)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(full), nil
}
