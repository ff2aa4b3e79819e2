// Package segment models the typed, address-ranged units of the ROM
// and builds the segment tree from configuration descriptors. Concrete
// extraction logic (disassembly, image decoding) stays outside the
// core: segment types plug in through the Segment contract and the
// type registry.
package segment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ElectronicsArchiver/splat/internal/addr"
	"github.com/ElectronicsArchiver/splat/internal/cache"
	"github.com/ElectronicsArchiver/splat/internal/config"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

// Segment is the polymorphic unit of work the pipeline drives. Created
// once per run by the builder, mutated in place during the scan pass
// (status, warnings, symbol sets) and the split pass (status), never
// destroyed mid-run.
type Segment interface {
	// ID is the deterministic cache key derived from type, name, and
	// resolved range. Stable across runs for unchanged configuration.
	ID() string
	Name() string
	Type() string
	Range() addr.Range
	Parent() Segment
	Subsegments() []Segment

	Status() Status
	Advance(to Status) error
	Warnings() []string
	Warn(format string, args ...any)

	// Scan derives metadata (symbols, warnings) from the read-only ROM
	// without producing output artifacts.
	Scan(rom []byte) error
	// Split materializes the segment's output artifacts.
	Split(rom []byte) error
	// Fingerprint captures every input determining this segment's
	// output. The policy is owned by the concrete type.
	Fingerprint(rom []byte) cache.Fingerprint

	ShouldScan() bool
	ShouldSplit() bool
	IsNameDefault() bool
	RequiresUniqueName() bool
	NeedsSymbols() bool

	// GrantSymbols hands the segment its owned/external partition.
	// Must happen before Scan for segments that need symbols.
	GrantSymbols(owned, external symbols.Map)
	SymbolsGranted() bool

	// ResolveEnd closes an open-ended range once the ROM length is
	// known. No-op for resolved ranges.
	ResolveEnd(end uint32)

	setParent(p Segment)
}

// idNamespace is the fixed UUIDv5 namespace for segment ids.
var idNamespace = uuid.MustParse("8f0ff37e-8b19-5f4b-9c69-6a21cfb0c16f")

// deriveID computes the deterministic segment id from the immutable
// identifying fields. Collisions between distinct segments are caught
// by the builder.
func deriveID(typeTag, name string, rng addr.Range) string {
	end := "open"
	if rng.HasEnd {
		end = fmt.Sprintf("%X", rng.End)
	}
	seed := fmt.Sprintf("%s:%s:%X-%s", typeTag, name, rng.Start, end)
	return uuid.NewSHA1(idNamespace, []byte(seed)).String()
}

// Base carries the state every segment type shares. Concrete types
// embed it and override the contract methods they care about.
type Base struct {
	id      string
	name    string
	typeTag string
	rng     addr.Range

	parent Segment
	subs   []Segment

	status   Status
	warnings []string

	opts *config.Options
	raw  any

	nameDefault bool

	owned          symbols.Map
	external       symbols.Map
	symbolsGranted bool
}

// NewBase builds the shared portion of a segment from its descriptor
// and resolved range. A descriptor without a name gets the default
// name: the hex ROM start address.
func NewBase(desc Descriptor, rng addr.Range, opts *config.Options) Base {
	name := desc.Name
	nameDefault := false
	if name == "" {
		name = fmt.Sprintf("%X", rng.Start)
		nameDefault = true
	}
	return Base{
		id:          deriveID(desc.Type, name, rng),
		name:        name,
		typeTag:     desc.Type,
		rng:         rng,
		status:      StatusPending,
		opts:        opts,
		raw:         desc.Raw,
		nameDefault: nameDefault,
	}
}

func (b *Base) ID() string            { return b.id }
func (b *Base) Name() string          { return b.name }
func (b *Base) Type() string          { return b.typeTag }
func (b *Base) Range() addr.Range     { return b.rng }
func (b *Base) Parent() Segment       { return b.parent }
func (b *Base) Subsegments() []Segment { return b.subs }
func (b *Base) Status() Status        { return b.status }
func (b *Base) Warnings() []string    { return b.warnings }

func (b *Base) setParent(p Segment)        { b.parent = p }
func (b *Base) setSubsegments(s []Segment) { b.subs = s }

// Options returns the run configuration the segment was built with.
func (b *Base) Options() *config.Options { return b.opts }

// Advance moves the status machine, rejecting illegal transitions.
func (b *Base) Advance(to Status) error {
	if !b.status.CanAdvance(to) {
		return fmt.Errorf("segment %s: illegal status transition %s -> %s", b.name, b.status, to)
	}
	b.status = to
	return nil
}

// Warn records a per-segment warning. Warnings never abort the run;
// the orchestrator reports them after both passes.
func (b *Base) Warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// Scan is a no-op by default; types that derive metadata override it.
func (b *Base) Scan(rom []byte) error { return nil }

// Split is a no-op by default; types with output artifacts override it.
func (b *Base) Split(rom []byte) error { return nil }

// Fingerprint is the default policy: the raw descriptor (deterministic
// CBOR), the resolved range, and the segment's ROM byte slice.
func (b *Base) Fingerprint(rom []byte) cache.Fingerprint {
	cfg, err := cache.ComputeValue(b.raw)
	if err != nil {
		// Raw descriptors come from YAML and always CBOR-encode; if one
		// day they don't, an unmatchable fingerprint just disables the
		// cache for this segment.
		return cache.Compute([]byte(b.id), []byte("unencodable"))
	}
	return cache.Compute(cfg[:], []byte(b.rng.String()), b.romSlice(rom))
}

// romSlice returns the segment's byte window, clamped to the ROM.
func (b *Base) romSlice(rom []byte) []byte {
	start := int(b.rng.Start)
	if start >= len(rom) {
		return nil
	}
	end := len(rom)
	if b.rng.HasEnd && int(b.rng.End) < end {
		end = int(b.rng.End)
	}
	return rom[start:end]
}

func (b *Base) ShouldScan() bool          { return false }
func (b *Base) ShouldSplit() bool         { return false }
func (b *Base) IsNameDefault() bool       { return b.nameDefault }
func (b *Base) RequiresUniqueName() bool  { return false }
func (b *Base) NeedsSymbols() bool        { return false }

func (b *Base) GrantSymbols(owned, external symbols.Map) {
	b.owned = owned
	b.external = external
	b.symbolsGranted = true
}

func (b *Base) SymbolsGranted() bool { return b.symbolsGranted }

// OwnedSymbols returns the partition granted during the scan pass.
// Empty until GrantSymbols runs; callers must not assume attribution
// happened for a cache-skipped segment.
func (b *Base) OwnedSymbols() symbols.Map    { return b.owned }
func (b *Base) ExternalSymbols() symbols.Map { return b.external }

// ResolveEnd closes an open range. An end before the range's start
// would invert the interval, so the range is left open instead; the
// caller decides whether that is a warning (pipeline) or a nesting
// error (builder).
func (b *Base) ResolveEnd(end uint32) {
	if b.rng.HasEnd || end < b.rng.Start {
		return
	}
	b.rng.End = end
	b.rng.HasEnd = true
	if b.rng.HasVRAM {
		b.rng.VRAMEnd = b.rng.VRAMStart + (end - b.rng.Start)
	}
}

// Size returns the segment's byte size, or 0 for an unresolved range.
// Statistics treat unresolved segments as contributing nothing.
func Size(s Segment) uint32 {
	size, ok := s.Range().Size()
	if !ok {
		return 0
	}
	return size
}
