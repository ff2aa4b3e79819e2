package segment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
)

func init() {
	Register("bin", newBin)
}

// Bin is the raw-binary segment type: its split artifact is the
// segment's byte slice, verbatim. A bin segment left unnamed is the
// "we don't know what this is yet" case; statistics rebucket those
// into the unknown category.
type Bin struct {
	Base
}

func newBin(desc Descriptor, rng addr.Range, opts *config.Options) (Segment, error) {
	return &Bin{Base: NewBase(desc, rng, opts)}, nil
}

func (s *Bin) ShouldSplit() bool { return true }

func (s *Bin) Split(rom []byte) error {
	data := s.romSlice(rom)

	path := s.Options().ResolvePath(filepath.Join("bin", s.Name()+".bin"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bin output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
