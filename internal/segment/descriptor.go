package segment

import "fmt"

// Descriptor is one decoded entry of the configuration's segments list.
// Two source forms are accepted:
//
//	- [0x1000, asm, main, 0x80000400]   sequence shorthand
//	- {start: 0x1000, type: asm, ...}   mapping form
//
// A descriptor carrying only an address (a one-element sequence, or a
// mapping whose only field is start) is a boundary marker: it bounds
// the preceding segment and never becomes a Segment itself.
type Descriptor struct {
	Start    uint32
	HasStart bool

	Type string
	Name string

	VRAM    uint32
	HasVRAM bool

	Subsegments []Descriptor

	// Raw retains the decoded entry exactly as configured; it feeds
	// the segment fingerprint so any descriptor edit is a cache miss.
	Raw any

	marker bool
}

// IsMarker reports whether this entry is a boundary marker.
func (d Descriptor) IsMarker() bool {
	return d.marker
}

// ParseDescriptors decodes a configuration segments list.
func ParseDescriptors(raw []any) ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(raw))
	for i, entry := range raw {
		d, err := parseDescriptor(entry)
		if err != nil {
			return nil, &BuildError{
				Code:    ErrCodeBadDescriptor,
				Message: fmt.Sprintf("segments[%d]: %v", i, err),
			}
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func parseDescriptor(entry any) (Descriptor, error) {
	switch v := entry.(type) {
	case []any:
		return parseSequenceDescriptor(v)
	case map[string]any:
		return parseMappingDescriptor(v)
	default:
		return Descriptor{}, fmt.Errorf("expected sequence or mapping, got %T", entry)
	}
}

// parseSequenceDescriptor decodes [start], [start, type],
// [start, type, name], or [start, type, name, vram].
func parseSequenceDescriptor(v []any) (Descriptor, error) {
	if len(v) == 0 || len(v) > 4 {
		return Descriptor{}, fmt.Errorf("sequence descriptor needs 1-4 fields, got %d", len(v))
	}

	d := Descriptor{Raw: v}

	start, ok := toUint32(v[0])
	if !ok {
		return Descriptor{}, fmt.Errorf("bad start address %v", v[0])
	}
	d.Start = start
	d.HasStart = true

	if len(v) == 1 {
		d.marker = true
		return d, nil
	}

	typeTag, ok := v[1].(string)
	if !ok {
		return Descriptor{}, fmt.Errorf("bad type tag %v", v[1])
	}
	d.Type = typeTag

	if len(v) >= 3 {
		name, ok := v[2].(string)
		if !ok {
			return Descriptor{}, fmt.Errorf("bad name %v", v[2])
		}
		d.Name = name
	}
	if len(v) == 4 {
		vram, ok := toUint32(v[3])
		if !ok {
			return Descriptor{}, fmt.Errorf("bad vram address %v", v[3])
		}
		d.VRAM = vram
		d.HasVRAM = true
	}

	return d, nil
}

func parseMappingDescriptor(v map[string]any) (Descriptor, error) {
	d := Descriptor{Raw: v}

	if rawStart, ok := v["start"]; ok {
		start, ok := toUint32(rawStart)
		if !ok {
			return Descriptor{}, fmt.Errorf("bad start address %v", rawStart)
		}
		d.Start = start
		d.HasStart = true
	}

	if len(v) == 1 && d.HasStart {
		d.marker = true
		return d, nil
	}

	if rawType, ok := v["type"]; ok {
		typeTag, ok := rawType.(string)
		if !ok {
			return Descriptor{}, fmt.Errorf("bad type tag %v", rawType)
		}
		d.Type = typeTag
	}

	if rawName, ok := v["name"]; ok {
		name, ok := rawName.(string)
		if !ok {
			return Descriptor{}, fmt.Errorf("bad name %v", rawName)
		}
		d.Name = name
	}

	if rawVRAM, ok := v["vram"]; ok {
		vram, ok := toUint32(rawVRAM)
		if !ok {
			return Descriptor{}, fmt.Errorf("bad vram address %v", rawVRAM)
		}
		d.VRAM = vram
		d.HasVRAM = true
	}

	if rawSubs, ok := v["subsegments"]; ok {
		subsList, ok := rawSubs.([]any)
		if !ok {
			return Descriptor{}, fmt.Errorf("subsegments must be a list, got %T", rawSubs)
		}
		subs, err := ParseDescriptors(subsList)
		if err != nil {
			return Descriptor{}, err
		}
		d.Subsegments = subs
	}

	return d, nil
}

// toUint32 accepts the integer types yaml.v3 produces for addresses.
func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case int:
		if n < 0 || int64(n) > 0xFFFF_FFFF {
			return 0, false
		}
		return uint32(n), true
	case int64:
		if n < 0 || n > 0xFFFF_FFFF {
			return 0, false
		}
		return uint32(n), true
	case uint64:
		if n > 0xFFFF_FFFF {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}
