package segment

import (
	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

func init() {
	Register("group", newGroup)
}

// Group is the container type: an ordered run of subsegments nested in
// the group's range. The orchestrator drives top-level segments only;
// a group forwards scan, split, and symbol grants to its children.
type Group struct {
	Base
}

func newGroup(desc Descriptor, rng addr.Range, opts *config.Options) (Segment, error) {
	return &Group{Base: NewBase(desc, rng, opts)}, nil
}

// adopt installs the built subsegments. Called once by the builder.
func (s *Group) adopt(children []Segment) {
	for _, child := range children {
		child.setParent(s)
	}
	s.setSubsegments(children)
}

func (s *Group) ShouldScan() bool  { return true }
func (s *Group) ShouldSplit() bool { return true }

// NeedsSymbols reports whether any subsegment needs the partition.
func (s *Group) NeedsSymbols() bool {
	for _, child := range s.Subsegments() {
		if child.NeedsSymbols() {
			return true
		}
	}
	return false
}

// GrantSymbols forwards the partition to the subsegments that need it.
// The owned/external split was computed against the group's range;
// each child gets it narrowed to its own vram range, so a symbol owned
// by the group but living in a sibling child is external to this one.
func (s *Group) GrantSymbols(owned, external symbols.Map) {
	s.Base.GrantSymbols(owned, external)
	for _, child := range s.Subsegments() {
		if !child.NeedsSymbols() {
			continue
		}

		childOwned := make(symbols.Map, len(owned))
		childExternal := make(symbols.Map, len(owned)+len(external))
		for vram, syms := range external {
			childExternal[vram] = syms
		}
		for vram, syms := range owned {
			if child.Range().ContainsVRAM(vram) {
				childOwned[vram] = syms
			} else {
				childExternal[vram] = syms
			}
		}
		child.GrantSymbols(childOwned, childExternal)
	}
}

func (s *Group) Scan(rom []byte) error {
	for _, child := range s.Subsegments() {
		if !child.ShouldScan() {
			continue
		}
		if err := child.Scan(rom); err != nil {
			child.Warn("scan failed: %v", err)
		}
		if err := child.Advance(StatusScanned); err != nil {
			return err
		}
	}
	return nil
}

func (s *Group) Split(rom []byte) error {
	for _, child := range s.Subsegments() {
		if child.ShouldSplit() {
			if err := child.Split(rom); err != nil {
				child.Warn("split failed: %v", err)
			}
		}
		if err := child.Advance(StatusSplit); err != nil {
			return err
		}
	}
	return nil
}
