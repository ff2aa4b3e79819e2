// Package testutil provides deterministic fixtures shared by tests:
// pseudo-ROM images and on-disk configuration documents.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ROM returns a deterministic pseudo-ROM of the given size.
//
// The byte pattern is a fixed function of the offset, so two calls with
// the same size produce identical images. This makes fingerprints,
// checksums, and golden artifacts stable across test runs.
func ROM(size int) []byte {
	rom := make([]byte, size)
	for i := range rom {
		rom[i] = byte(i*31 + i>>8)
	}
	return rom
}

// WriteROM writes a deterministic pseudo-ROM into dir and returns its
// path along with the generated bytes.
func WriteROM(t testing.TB, dir string, size int) (string, []byte) {
	t.Helper()
	rom := ROM(size)
	path := filepath.Join(dir, "baserom.bin")
	if err := os.WriteFile(path, rom, 0o644); err != nil {
		t.Fatalf("write test rom: %v", err)
	}
	return path, rom
}
