// Package symbols holds the process-wide registry of known symbols and
// the isolation algorithm that partitions them per segment.
package symbols

import (
	"fmt"

	"github.com/ElectronicsArchiver/splat/internal/addr"
)

// Kind classifies a symbol for the undefined-symbol listings.
type Kind string

const (
	KindFunc  Kind = "func"
	KindData  Kind = "data"
	KindOther Kind = ""
)

// Symbol is one known address-space name. Identity is (Name, VRAM);
// multiple symbols may alias the same address.
type Symbol struct {
	Name string
	VRAM uint32

	// ROM is the symbol's explicit ROM address, when declared. A symbol
	// with a ROM address is attributed by ROM containment, never by the
	// vram-isolation path.
	ROM    uint32
	HasROM bool

	Kind       Kind
	Referenced bool
	Defined    bool
	Dead       bool
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s = 0x%X", s.Name, s.VRAM)
}

// Map groups symbols by vram address. Aliases at one address are all
// preserved in declaration order, never deduplicated.
type Map map[uint32][]*Symbol

func (m Map) add(sym *Symbol) {
	m[sym.VRAM] = append(m[sym.VRAM], sym)
}

// Region is the view of a segment the isolation algorithm needs.
type Region interface {
	Range() addr.Range
}

// Table is the process-wide symbol registry. Populated once per run,
// read-mostly afterward.
type Table struct {
	all []*Symbol
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a symbol. Declaration order is preserved; it determines
// the order of the undefined-symbol listings.
func (t *Table) Add(sym *Symbol) {
	t.all = append(t.all, sym)
}

// All returns every known symbol in declaration order.
func (t *Table) All() []*Symbol {
	return t.all
}

// Len returns the number of known symbols.
func (t *Table) Len() int {
	return len(t.all)
}

// IsIsolated reports whether exactly one region in the entire segment
// tree contains the symbol's vram address. Isolation is what lets a
// vram-only symbol be attributed without ambiguity: overlapping
// overlays each claim the address, so no single owner exists.
func IsIsolated(sym *Symbol, all []Region) bool {
	count := 0
	for _, region := range all {
		if region.Range().ContainsVRAM(sym.VRAM) {
			count++
			if count > 1 {
				return false
			}
		}
	}
	return count == 1
}

// Isolate partitions every known symbol into the owned and external
// sets of one segment. The isolation test is global: all must be the
// complete top-level segment list (not the flattened tree, since a
// group shares its vram range with its children and double-counting
// would defeat the test). Ownership is segment-relative, so this runs
// once per segment that needs symbols.
//
// Attribution rules:
//   - vram-isolated symbol without a ROM address: owned by the one
//     region containing it, external to every other segment
//   - symbol with a ROM address: owned when seg's ROM range contains
//     it, external otherwise
//   - everything else: external
func (t *Table) Isolate(seg Region, all []Region) (owned, external Map) {
	owned = make(Map)
	external = make(Map)

	for _, sym := range t.all {
		if !sym.HasROM && IsIsolated(sym, all) {
			if seg.Range().ContainsVRAM(sym.VRAM) {
				owned.add(sym)
			} else {
				external.add(sym)
			}
			continue
		}

		if sym.HasROM && seg.Range().ContainsROM(sym.ROM) {
			owned.add(sym)
		} else {
			external.add(sym)
		}
	}

	return owned, external
}
