package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteConfig writes a YAML configuration document into dir under the
// given file name and returns its path.
func WriteConfig(t testing.TB, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}
