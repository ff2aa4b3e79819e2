package segment

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
)

func init() {
	Register("header", newHeader)
}

// Header is the ROM header segment: a short fixed-layout region
// emitted as assembler .word directives so the rebuilt image carries
// the exact original bytes.
type Header struct {
	Base
}

func newHeader(desc Descriptor, rng addr.Range, opts *config.Options) (Segment, error) {
	return &Header{Base: NewBase(desc, rng, opts)}, nil
}

func (s *Header) ShouldScan() bool  { return true }
func (s *Header) ShouldSplit() bool { return true }

func (s *Header) Scan(rom []byte) error {
	size, ok := s.Range().Size()
	if !ok {
		s.Warn("header segment has no resolved end")
		return nil
	}
	if size%4 != 0 {
		s.Warn("header size 0x%X is not word-aligned", size)
	}
	if int(s.Range().End) > len(rom) {
		s.Warn("header extends past the end of the ROM")
	}
	return nil
}

func (s *Header) Split(rom []byte) error {
	data := s.romSlice(rom)

	path := s.Options().ResolvePath(filepath.Join("asm", s.Name()+".s"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create header output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, ".section .%s\n\n", s.Name())
	for len(data) >= 4 {
		fmt.Fprintf(f, ".word 0x%08X\n", binary.BigEndian.Uint32(data))
		data = data[4:]
	}
	for _, b := range data {
		fmt.Fprintf(f, ".byte 0x%02X\n", b)
	}
	return nil
}
