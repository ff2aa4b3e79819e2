// Package linker turns the final ordered segment list into addressing
// metadata: a linker script, a boundary-symbol header, and the optional
// section and undefined-symbol listings. Every artifact is plain text
// with \n line endings regardless of host platform.
package linker

import (
	"bytes"
	"fmt"

	"github.com/ElectronicsArchiver/splat/internal/segment"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

// Placement is one emitted entry: a segment (or size-bearing group
// subsegment) pinned at its resolved ROM and VRAM addresses. Placements
// preserve segment list order exactly; that ordering is the one
// guarantee the rest of the system upholds end-to-end.
type Placement struct {
	SegmentName string
	ROM         uint32
	VRAM        uint32
	Section     string
}

// Writer accumulates placements in the order segments are added.
type Writer struct {
	placements []Placement
}

func NewWriter() *Writer {
	return &Writer{}
}

// Add records the segment and, for a group, every subsegment with a
// resolved size. Call once per top-level segment, in list order.
func (w *Writer) Add(seg segment.Segment) {
	w.place(seg)
	for _, sub := range seg.Subsegments() {
		if _, ok := sub.Range().Size(); ok {
			w.place(sub)
		}
	}
}

func (w *Writer) place(seg segment.Segment) {
	rng := seg.Range()
	vram := rng.Start
	if rng.HasVRAM {
		vram = rng.VRAMStart
	}
	w.placements = append(w.placements, Placement{
		SegmentName: seg.Name(),
		ROM:         rng.Start,
		VRAM:        vram,
		Section:     "." + ToCName(seg.Name()),
	})
}

// Placements returns the accumulated records in insertion order.
func (w *Writer) Placements() []Placement {
	return w.placements
}

// LinkerScript renders the GNU ld SECTIONS block placing each section
// at its VRAM address, loaded from its ROM address, in list order.
func (w *Writer) LinkerScript() []byte {
	var buf bytes.Buffer
	buf.WriteString("SECTIONS\n{\n")
	for _, p := range w.placements {
		cname := ToCName(p.SegmentName)
		fmt.Fprintf(&buf, "    %s 0x%08X : AT(0x%08X)\n", p.Section, p.VRAM, p.ROM)
		buf.WriteString("    {\n")
		fmt.Fprintf(&buf, "        %s_ROM_START = 0x%08X;\n", cname, p.ROM)
		fmt.Fprintf(&buf, "        %s_VRAM = ADDR(%s);\n", cname, p.Section)
		fmt.Fprintf(&buf, "        *(%s);\n", p.Section)
		fmt.Fprintf(&buf, "        %s_ROM_END = 0x%08X + SIZEOF(%s);\n", cname, p.ROM, p.Section)
		buf.WriteString("    }\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// SymbolHeader renders the C header exposing one boundary symbol per
// placed section, so handwritten code can reference extraction output
// by name.
func (w *Writer) SymbolHeader() []byte {
	var buf bytes.Buffer
	buf.WriteString("#ifndef SPLAT_SYMBOLS_H\n")
	buf.WriteString("#define SPLAT_SYMBOLS_H\n\n")
	seen := map[string]bool{}
	for _, p := range w.placements {
		cname := ToCName(p.SegmentName)
		if seen[cname] {
			continue
		}
		seen[cname] = true
		fmt.Fprintf(&buf, "extern unsigned char %s_ROM_START[];\n", cname)
		fmt.Fprintf(&buf, "extern unsigned char %s_ROM_END[];\n", cname)
	}
	buf.WriteString("\n#endif\n")
	return buf.Bytes()
}

// SectionList renders the flat list of generated section names, one per
// top-level segment. Sections a group folds into one elf section are
// not repeated.
func SectionList(segs []segment.Segment) []byte {
	var buf bytes.Buffer
	for _, seg := range segs {
		fmt.Fprintf(&buf, ".%s\n", ToCName(seg.Name()))
	}
	return buf.Bytes()
}

// UndefinedFuncs lists referenced, undefined, live function symbols as
// assignment lines for iterative fixup. Nil when there is nothing to
// write; callers skip the file entirely then.
func UndefinedFuncs(table *symbols.Table) []byte {
	return undefined(table, true)
}

// UndefinedSyms is UndefinedFuncs for every non-function symbol.
func UndefinedSyms(table *symbols.Table) []byte {
	return undefined(table, false)
}

func undefined(table *symbols.Table, wantFunc bool) []byte {
	var buf bytes.Buffer
	for _, sym := range table.All() {
		if !sym.Referenced || sym.Defined || sym.Dead {
			continue
		}
		if (sym.Kind == symbols.KindFunc) != wantFunc {
			continue
		}
		fmt.Fprintf(&buf, "%s = 0x%X;\n", sym.Name, sym.VRAM)
	}
	if buf.Len() == 0 {
		return nil
	}
	return buf.Bytes()
}

// ToCName mangles a segment name into a valid C identifier.
func ToCName(name string) string {
	out := []byte(name)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) > 0 && out[0] >= '0' && out[0] <= '9' {
		out = append([]byte{'_'}, out...)
	}
	return string(out)
}
