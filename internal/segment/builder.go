package segment

import (
	"fmt"

	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/config"
)

// Build turns the ordered descriptor list into the segment tree.
//
// Range resolution per descriptor: rom_start comes from the descriptor;
// rom_end is the next entry's declared start (a following boundary
// marker supplies an explicit end the same way), or unresolved for the
// final entry. Group descriptors recurse into their subsegments, which
// must nest inside the parent's range.
//
// Name uniqueness is enforced across the whole tree for types that
// require it, and id collisions between distinct segments abort the
// build rather than silently sharing a cache key.
func Build(descs []Descriptor, opts *config.Options) ([]Segment, error) {
	st := &buildState{
		opts:      opts,
		seenNames: map[string]bool{},
		seenIDs:   map[string]string{},
	}
	return st.build(descs, nil)
}

type buildState struct {
	opts      *config.Options
	seenNames map[string]bool
	seenIDs   map[string]string // id -> segment name, for collision reporting
}

func (st *buildState) build(descs []Descriptor, parent *addr.Range) ([]Segment, error) {
	var out []Segment
	var prevStart uint32
	havePrev := false

	for i, desc := range descs {
		if !desc.HasStart {
			return nil, &BuildError{
				Code:    ErrCodeBadDescriptor,
				Segment: desc.Name,
				Message: "descriptor has no start address",
			}
		}
		if havePrev && desc.Start < prevStart {
			return nil, &BuildError{
				Code:    ErrCodeBadDescriptor,
				Segment: desc.Name,
				Message: fmt.Sprintf("start 0x%X not in ascending order (previous 0x%X)", desc.Start, prevStart),
			}
		}
		prevStart = desc.Start
		havePrev = true

		// Boundary markers carry only an address: they bound the
		// previous entry via the end inference below and are discarded.
		if desc.IsMarker() {
			continue
		}

		rng, err := resolveRange(desc, descs[i+1:])
		if err != nil {
			return nil, err
		}

		ctor, err := Lookup(desc.Type)
		if err != nil {
			return nil, err
		}

		seg, err := ctor(desc, rng, st.opts)
		if err != nil {
			return nil, err
		}

		// An open-ended final subsegment extends to its parent's end.
		if parent != nil && parent.HasEnd && !rng.HasEnd {
			seg.ResolveEnd(parent.End)
			rng = seg.Range()
		}

		if group, ok := seg.(*Group); ok {
			children, err := st.build(desc.Subsegments, &rng)
			if err != nil {
				return nil, err
			}
			group.adopt(children)
		} else if len(desc.Subsegments) > 0 {
			return nil, &BuildError{
				Code:    ErrCodeBadDescriptor,
				Segment: seg.Name(),
				Message: fmt.Sprintf("type %q does not take subsegments", desc.Type),
			}
		}

		if parent != nil && !parent.ContainsRange(rng) {
			return nil, &BuildError{
				Code:    ErrCodeNestingViolation,
				Segment: seg.Name(),
				Message: fmt.Sprintf("range %s escapes parent range %s", rng, *parent),
			}
		}

		if seg.RequiresUniqueName() {
			if st.seenNames[seg.Name()] {
				return nil, &BuildError{
					Code:    ErrCodeDuplicateName,
					Segment: seg.Name(),
					Message: "segment name is not unique",
				}
			}
			st.seenNames[seg.Name()] = true
		}

		if other, exists := st.seenIDs[seg.ID()]; exists {
			return nil, &BuildError{
				Code:    ErrCodeDuplicateID,
				Segment: seg.Name(),
				Message: fmt.Sprintf("id collides with segment %q", other),
			}
		}
		st.seenIDs[seg.ID()] = seg.Name()

		out = append(out, seg)
	}

	return out, nil
}

// resolveRange computes a descriptor's range. The end is the next
// entry's start (marker or real segment alike); with no entry after,
// the range stays open. Only the final segment can be open, which the
// ascending-order check above guarantees.
func resolveRange(desc Descriptor, rest []Descriptor) (addr.Range, error) {
	var rng addr.Range
	if next, ok := nextStart(rest); ok {
		if next < desc.Start {
			return addr.Range{}, &BuildError{
				Code:    ErrCodeBadDescriptor,
				Segment: desc.Name,
				Message: fmt.Sprintf("end 0x%X precedes start 0x%X", next, desc.Start),
			}
		}
		rng = addr.NewRange(desc.Start, next)
	} else {
		rng = addr.NewOpenRange(desc.Start)
	}

	if desc.HasVRAM {
		rng = rng.WithVRAM(desc.VRAM)
	}
	return rng, nil
}

func nextStart(rest []Descriptor) (uint32, bool) {
	for _, d := range rest {
		if d.HasStart {
			return d.Start, true
		}
	}
	return 0, false
}

// Flatten returns the tree in depth-first order (each segment before
// its subsegments). The warnings report walks the flattened tree.
func Flatten(segs []Segment) []Segment {
	var out []Segment
	for _, seg := range segs {
		out = append(out, seg)
		out = append(out, Flatten(seg.Subsegments())...)
	}
	return out
}
