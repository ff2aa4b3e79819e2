package segment

import (
	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
)

func init() {
	Register("asm", newAsm)
}

// Asm is a code segment. The core's responsibility ends at granting it
// a symbol partition and scanning for metadata; instruction decoding is
// an external collaborator, so asm produces no split artifact here.
type Asm struct {
	Base
}

func newAsm(desc Descriptor, rng addr.Range, opts *config.Options) (Segment, error) {
	return &Asm{Base: NewBase(desc, rng, opts)}, nil
}

func (s *Asm) ShouldScan() bool         { return true }
func (s *Asm) RequiresUniqueName() bool { return true }
func (s *Asm) NeedsSymbols() bool       { return true }

func (s *Asm) Scan(rom []byte) error {
	if !s.Range().HasVRAM {
		s.Warn("code segment has no vram address; symbols cannot be attributed")
		return nil
	}

	if s.SymbolsGranted() {
		for vram, syms := range s.OwnedSymbols() {
			if !s.Range().ContainsVRAM(vram) {
				s.Warn("owned symbol %s at 0x%X lies outside segment vram range", syms[0].Name, vram)
			}
		}
	}

	size, ok := s.Range().Size()
	if ok && size%4 != 0 {
		s.Warn("code segment size 0x%X is not a multiple of the instruction width", size)
	}
	return nil
}
