// Package addr provides the address-range primitive shared by the
// segment model, symbol isolation, and linker emission.
package addr

import "fmt"

// Range is a half-open [Start, End) interval in ROM space, optionally
// mirrored into the runtime (VRAM) address space.
//
// End may be unresolved (HasEnd == false) for the final segment of a
// configuration whose extent is only known once the ROM is loaded. An
// open-ended range contains every address at or above Start.
//
// INVARIANT: Start <= End whenever HasEnd is true. The VRAM interval,
// when present, always has the same size as the ROM interval.
type Range struct {
	Start  uint32
	End    uint32
	HasEnd bool

	VRAMStart uint32
	VRAMEnd   uint32
	HasVRAM   bool
}

// NewRange constructs a resolved ROM-space range.
func NewRange(start, end uint32) Range {
	return Range{Start: start, End: end, HasEnd: true}
}

// NewOpenRange constructs a range with an unresolved end address.
func NewOpenRange(start uint32) Range {
	return Range{Start: start}
}

// WithVRAM returns a copy of r mapped into the runtime address space at
// vram. The VRAM interval mirrors the ROM interval's size; it stays
// unresolved while the ROM end is unresolved.
func (r Range) WithVRAM(vram uint32) Range {
	r.VRAMStart = vram
	r.HasVRAM = true
	if r.HasEnd {
		r.VRAMEnd = vram + (r.End - r.Start)
	}
	return r
}

// Size returns End - Start. The second return is false while the end
// address is unresolved.
func (r Range) Size() (uint32, bool) {
	if !r.HasEnd {
		return 0, false
	}
	return r.End - r.Start, true
}

// ContainsROM reports whether a falls inside [Start, End) in ROM space.
// Open-ended ranges contain every address at or above Start.
func (r Range) ContainsROM(a uint32) bool {
	if a < r.Start {
		return false
	}
	return !r.HasEnd || a < r.End
}

// ContainsVRAM reports whether a falls inside the runtime-space
// interval. Always false for ranges not mapped into VRAM.
func (r Range) ContainsVRAM(a uint32) bool {
	if !r.HasVRAM {
		return false
	}
	if a < r.VRAMStart {
		return false
	}
	return !r.HasEnd || a < r.VRAMEnd
}

// Overlaps reports whether two ranges share any ROM address. An
// open-ended range overlaps everything at or above its start.
func (r Range) Overlaps(o Range) bool {
	rEndsBefore := r.HasEnd && r.End <= o.Start
	oEndsBefore := o.HasEnd && o.End <= r.Start
	return !rEndsBefore && !oEndsBefore
}

// ContainsRange reports whether child is fully nested in r. Used by the
// builder to validate group subsegments.
func (r Range) ContainsRange(child Range) bool {
	if child.Start < r.Start {
		return false
	}
	if !r.HasEnd {
		return true
	}
	if !child.HasEnd {
		// An open-ended child cannot fit inside a bounded parent.
		return false
	}
	return child.End <= r.End
}

func (r Range) String() string {
	if !r.HasEnd {
		return fmt.Sprintf("[0x%X, ...)", r.Start)
	}
	return fmt.Sprintf("[0x%X, 0x%X)", r.Start, r.End)
}
