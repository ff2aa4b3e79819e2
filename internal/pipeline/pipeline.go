// Package pipeline drives the two-pass run over the segment tree: a
// scan pass that derives metadata and a split pass that materializes
// output artifacts. Both passes consult the fingerprint cache so
// unchanged segments cost nothing.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ElectronicsArchiver/splat/internal/cache"
	"github.com/ElectronicsArchiver/splat/internal/config"
	"github.com/ElectronicsArchiver/splat/internal/console"
	"github.com/ElectronicsArchiver/splat/internal/segment"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

// Pipeline owns one run over one ROM. It mutates the segment tree in
// place (statuses, warnings, symbol grants) and accumulates statistics.
type Pipeline struct {
	opts  *config.Options
	rom   []byte
	segs  []segment.Segment
	flat  []segment.Segment
	table *symbols.Table
	store *cache.Store
	out   *console.Writer
	stats *Stats
}

// New prepares a run. The final top-level segment may arrive open-ended
// from the builder; the ROM length closes it (and any open tail it
// nests) here, before anything reads ranges.
func New(opts *config.Options, rom []byte, segs []segment.Segment, table *symbols.Table, store *cache.Store, out *console.Writer) *Pipeline {
	if len(segs) > 0 {
		resolveTail(segs[len(segs)-1], uint32(len(rom)))
	}
	return &Pipeline{
		opts:  opts,
		rom:   rom,
		segs:  segs,
		flat:  segment.Flatten(segs),
		table: table,
		store: store,
		out:   out,
		stats: newStats(uint64(len(rom))),
	}
}

// resolveTail closes an open range against end, then recurses into the
// last subsegment, which inherits the freshly resolved end. A segment
// starting at or beyond end cannot be closed without inverting the
// interval; it stays open (size zero for statistics) with a warning.
func resolveTail(seg segment.Segment, end uint32) {
	if rng := seg.Range(); !rng.HasEnd && rng.Start > end {
		seg.Warn("start 0x%X lies beyond the end of the rom (0x%X); nothing to extract", rng.Start, end)
		return
	}
	seg.ResolveEnd(end)
	if subs := seg.Subsegments(); len(subs) > 0 {
		resolveTail(subs[len(subs)-1], seg.Range().End)
	}
}

// Stats returns the accumulated run statistics.
func (p *Pipeline) Stats() *Stats { return p.stats }

// Run executes the scan pass then the split pass.
func (p *Pipeline) Run() error {
	if err := p.Scan(); err != nil {
		return fmt.Errorf("scan pass: %w", err)
	}
	if err := p.Split(); err != nil {
		return fmt.Errorf("split pass: %w", err)
	}
	return nil
}

// Scan walks the top-level segments, grants symbol partitions, and runs
// each segment's scan. A cache hit skips the segment entirely: no
// symbols are attributed to it this run.
func (p *Pipeline) Scan() error {
	for _, seg := range p.segs {
		p.stats.Sizes[bucketFor(seg)] += uint64(segment.Size(seg))

		if !seg.ShouldScan() {
			continue
		}

		if p.store.Hit(seg.ID(), seg.Fingerprint(p.rom)) {
			if err := seg.Advance(segment.StatusSkippedScan); err != nil {
				return err
			}
			p.out.Verbosef("%s %s", console.Dim("skipped (cached)"), seg.Name())
			continue
		}

		p.grantSymbols(seg)

		if err := seg.Scan(p.rom); err != nil {
			seg.Warn("scan failed: %v", err)
		}
		if err := seg.Advance(segment.StatusScanned); err != nil {
			return err
		}
		slog.Debug("scanned segment", "name", seg.Name(), "type", seg.Type(), "range", seg.Range().String())
	}
	return nil
}

// grantSymbols isolates the table against the top-level segment list
// and hands the segment its partition; a group forwards the grant to
// its children. Isolation uses top-level ranges only, because a group
// and its children cover the same vram and would never isolate.
func (p *Pipeline) grantSymbols(seg segment.Segment) {
	if p.table == nil || p.table.Len() == 0 {
		return
	}
	if !seg.NeedsSymbols() || seg.SymbolsGranted() {
		return
	}
	owned, external := p.table.Isolate(seg, p.regions())
	seg.GrantSymbols(owned, external)
}

func (p *Pipeline) regions() []symbols.Region {
	regions := make([]symbols.Region, len(p.segs))
	for i, s := range p.segs {
		regions[i] = s
	}
	return regions
}

// Split walks the top-level segments and materializes artifacts. The
// cache check is independent of the scan pass; a miss records the fresh
// fingerprint before the output decision, so segments without artifacts
// still hit on the next run.
func (p *Pipeline) Split() error {
	for _, seg := range p.segs {
		bucket := bucketFor(seg)

		fp := seg.Fingerprint(p.rom)
		if p.store.Hit(seg.ID(), fp) {
			p.stats.Cached[bucket]++
			if err := seg.Advance(segment.StatusSkippedSplit); err != nil {
				return err
			}
			continue
		}
		p.store.Update(seg.ID(), fp)

		if seg.ShouldSplit() {
			if err := seg.Split(p.rom); err != nil {
				seg.Warn("split failed: %v", err)
			} else {
				p.stats.Split[bucket]++
			}
		}
		if err := seg.Advance(segment.StatusSplit); err != nil {
			return err
		}
		slog.Debug("split segment", "name", seg.Name(), "type", seg.Type())
	}
	return nil
}

// WarningCount returns the number of warnings across the whole tree.
func (p *Pipeline) WarningCount() int {
	n := 0
	for _, seg := range p.flat {
		n += len(seg.Warnings())
	}
	return n
}

// ReportWarnings prints every segment's warnings, grouped under a
// header line naming the segment.
func (p *Pipeline) ReportWarnings() {
	for _, seg := range p.flat {
		warns := seg.Warnings()
		if len(warns) == 0 {
			continue
		}
		p.out.Printf("%s %s %s:",
			console.Dim(fmt.Sprintf("0x%06X", seg.Range().Start)),
			seg.Type(),
			console.Bright(seg.Name()))
		for _, w := range warns {
			p.out.Warnf("%s", w)
		}
	}
}

// ReportStatistics prints the coverage summary.
func (p *Pipeline) ReportStatistics() {
	p.stats.Report(p.out)
}
