package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ElectronicsArchiver/splat/internal/cache"
	"github.com/ElectronicsArchiver/splat/internal/config"
	"github.com/ElectronicsArchiver/splat/internal/console"
	"github.com/ElectronicsArchiver/splat/internal/segment"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

func testROM(size int) []byte {
	rom := make([]byte, size)
	for i := range rom {
		rom[i] = byte(i * 13)
	}
	return rom
}

func buildSegments(t *testing.T, opts *config.Options, doc string) []segment.Segment {
	t.Helper()
	var parsed struct {
		Segments []any `yaml:"segments"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &parsed))
	descs, err := segment.ParseDescriptors(parsed.Segments)
	require.NoError(t, err)
	segs, err := segment.Build(descs, opts)
	require.NoError(t, err)
	return segs
}

func quietWriter() *console.Writer {
	return console.New(&bytes.Buffer{}, false)
}

// Three segments, three stat buckets: a header, a named bin, and an
// unnamed (open-ended) bin that rebuckets to unknown.
const threeBucketDoc = `
segments:
  - [0x0, header, header]
  - [0x10, bin, data]
  - [0x30, bin]
`

func TestRun_SplitsAndResolvesOpenEnd(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)

	segs := buildSegments(t, opts, threeBucketDoc)
	p := New(opts, rom, segs, nil, cache.Open("", false), quietWriter())
	require.NoError(t, p.Run())

	tail := segs[2].Range()
	require.True(t, tail.HasEnd, "rom length closes the final segment")
	assert.Equal(t, uint32(0x40), tail.End)

	stats := p.Stats()
	assert.Equal(t, uint64(0x40), stats.TotalBytes)
	assert.Equal(t, uint64(0x10), stats.Sizes["header"])
	assert.Equal(t, uint64(0x20), stats.Sizes["bin"])
	assert.Equal(t, uint64(0x10), stats.Sizes[UnknownBucket], "unnamed bin counts as unknown")
	assert.Equal(t, map[string]int{"header": 1, "bin": 1, UnknownBucket: 1}, stats.Split)
	assert.Empty(t, stats.Cached, "nothing cached on a cold run")

	data, err := os.ReadFile(filepath.Join(dir, "bin", "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, rom[0x10:0x30], data)

	unk, err := os.ReadFile(filepath.Join(dir, "bin", "30.bin"))
	require.NoError(t, err)
	assert.Equal(t, rom[0x30:0x40], unk)

	for _, seg := range segs {
		assert.Equal(t, segment.StatusSplit, seg.Status())
	}
}

func TestRun_TailBeyondRomStaysOpen(t *testing.T) {
	// A final segment starting past the ROM end cannot be closed by the
	// ROM length without inverting its interval.
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)

	segs := buildSegments(t, opts, `
segments:
  - [0x0, bin, data]
  - [0x100, bin, tail]
`)
	p := New(opts, rom, segs, nil, cache.Open("", false), quietWriter())
	require.NoError(t, p.Run())

	tail := segs[1]
	assert.False(t, tail.Range().HasEnd, "range stays open instead of inverting")
	assert.Equal(t, uint32(0), segment.Size(tail))
	require.Len(t, tail.Warnings(), 1)
	assert.Contains(t, tail.Warnings()[0], "beyond the end of the rom")

	stats := p.Stats()
	assert.Equal(t, uint64(0x40), stats.TotalBytes)
	assert.Equal(t, uint64(0x100), stats.Sizes["bin"], "only the resolved segment contributes bytes")
}

func TestStatsAttribution(t *testing.T) {
	// Cache hits must count in the bucket of the segment being skipped,
	// not wherever the entry was first recorded.
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)
	store := cache.Open(filepath.Join(dir, "cache.db"), true)

	first := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, first.Run())
	assert.Equal(t, map[string]int{"header": 1, "bin": 1, UnknownBucket: 1}, first.Stats().Split)
	assert.Empty(t, first.Stats().Cached)

	second := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, second.Run())
	assert.Empty(t, second.Stats().Split, "nothing changed, nothing re-split")
	assert.Equal(t, map[string]int{"header": 1, "bin": 1, UnknownBucket: 1}, second.Stats().Cached,
		"each hit lands in the skipped segment's own bucket")
}

func TestRun_CachePersistsAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)
	path := filepath.Join(dir, "cache.db")

	store := cache.Open(path, true)
	first := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, first.Run())
	require.NoError(t, store.Save())
	require.NoError(t, store.Close())

	reopened := cache.Open(path, true)
	defer reopened.Close()

	segs := buildSegments(t, opts, threeBucketDoc)
	second := New(opts, rom, segs, nil, reopened, quietWriter())
	require.NoError(t, second.Run())

	assert.Empty(t, second.Stats().Split)
	assert.Equal(t, 3, second.Stats().Cached["header"]+second.Stats().Cached["bin"]+second.Stats().Cached[UnknownBucket])
	for _, seg := range segs {
		assert.Equal(t, segment.StatusSkippedSplit, seg.Status())
	}
}

func TestRun_RomEditInvalidatesOneSegment(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)
	store := cache.Open(filepath.Join(dir, "cache.db"), true)

	first := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, first.Run())

	edited := testROM(0x40)
	edited[0x18] ^= 0xFF // inside the named bin only

	second := New(opts, edited, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, second.Run())

	assert.Equal(t, map[string]int{"bin": 1}, second.Stats().Split)
	assert.Equal(t, map[string]int{"header": 1, UnknownBucket: 1}, second.Stats().Cached)
}

func TestRun_OptionsChangeDiscardsCache(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{BasePath: dir}
	rom := testROM(0x40)
	store := cache.Open(filepath.Join(dir, "cache.db"), true)

	optionsFp, err := cache.ComputeValue(map[string]any{"platform": "n64"})
	require.NoError(t, err)
	store.InvalidateOnOptionsChange(optionsFp)

	first := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, first.Run())

	changedFp, err := cache.ComputeValue(map[string]any{"platform": "psx"})
	require.NoError(t, err)
	require.True(t, store.InvalidateOnOptionsChange(changedFp))

	second := New(opts, rom, buildSegments(t, opts, threeBucketDoc), nil, store, quietWriter())
	require.NoError(t, second.Run())
	assert.Equal(t, map[string]int{"header": 1, "bin": 1, UnknownBucket: 1}, second.Stats().Split,
		"an options change re-splits everything")
	assert.Empty(t, second.Stats().Cached)
}

func TestScan_GrantsPerSegmentPartitions(t *testing.T) {
	opts := &config.Options{BasePath: t.TempDir()}
	rom := testROM(0x2000)

	segs := buildSegments(t, opts, `
segments:
  - [0x0, asm, boot, 0x80000000]
  - [0x1000, asm, game, 0x80001000]
`)

	table := symbols.NewTable()
	bootSym := &symbols.Symbol{Name: "boot_main", VRAM: 0x8000_0100}
	gameSym := &symbols.Symbol{Name: "game_loop", VRAM: 0x8000_1100}
	table.Add(bootSym)
	table.Add(gameSym)

	p := New(opts, rom, segs, table, cache.Open("", false), quietWriter())
	require.NoError(t, p.Scan())

	boot := segs[0].(*segment.Asm)
	game := segs[1].(*segment.Asm)
	require.True(t, boot.SymbolsGranted())
	require.True(t, game.SymbolsGranted())

	assert.Equal(t, []*symbols.Symbol{bootSym}, boot.OwnedSymbols()[bootSym.VRAM])
	assert.Empty(t, boot.OwnedSymbols()[gameSym.VRAM], "sibling's symbol stays external")
	assert.Equal(t, []*symbols.Symbol{gameSym}, game.OwnedSymbols()[gameSym.VRAM])
	assert.Equal(t, []*symbols.Symbol{bootSym}, game.ExternalSymbols()[bootSym.VRAM])
}

func TestScan_GroupForwardsGrantToChildren(t *testing.T) {
	opts := &config.Options{BasePath: t.TempDir()}
	rom := testROM(0x2000)

	segs := buildSegments(t, opts, `
segments:
  - start: 0x0
    type: group
    name: main
    vram: 0x80000000
    subsegments:
      - [0x0, asm, boot, 0x80000000]
      - [0x1000, bin, payload]
  - start: 0x2000
`)

	table := symbols.NewTable()
	sym := &symbols.Symbol{Name: "boot_main", VRAM: 0x8000_0100}
	table.Add(sym)

	p := New(opts, rom, segs, table, cache.Open("", false), quietWriter())
	require.NoError(t, p.Scan())

	children := segs[0].Subsegments()
	require.True(t, children[0].SymbolsGranted(), "asm child inherits the group's grant")
	assert.Equal(t, []*symbols.Symbol{sym}, children[0].(*segment.Asm).OwnedSymbols()[sym.VRAM])
	assert.False(t, children[1].SymbolsGranted(), "bin child never needs symbols")
}

func TestScan_CacheHitSkipsSymbolAttribution(t *testing.T) {
	opts := &config.Options{BasePath: t.TempDir()}
	rom := testROM(0x1000)
	store := cache.Open(filepath.Join(opts.BasePath, "cache.db"), true)

	doc := `
segments:
  - [0x0, asm, boot, 0x80000000]
  - [0x1000]
`
	table := symbols.NewTable()
	table.Add(&symbols.Symbol{Name: "boot_main", VRAM: 0x8000_0100})

	first := New(opts, rom, buildSegments(t, opts, doc), table, store, quietWriter())
	require.NoError(t, first.Run())

	segs := buildSegments(t, opts, doc)
	second := New(opts, rom, segs, table, store, quietWriter())
	require.NoError(t, second.Scan())

	assert.Equal(t, segment.StatusSkippedScan, segs[0].Status())
	assert.False(t, segs[0].SymbolsGranted(), "a skipped segment gets no partition")
}

func TestReportWarnings_GroupsBySegment(t *testing.T) {
	opts := &config.Options{BasePath: t.TempDir()}
	rom := testROM(0x10)

	segs := buildSegments(t, opts, `
segments:
  - [0x0, asm, boot]
  - [0x10]
`)

	var buf bytes.Buffer
	p := New(opts, rom, segs, nil, cache.Open("", false), console.New(&buf, false))
	require.NoError(t, p.Run())

	require.Equal(t, 1, p.WarningCount())
	p.ReportWarnings()
	out := buf.String()
	assert.Contains(t, out, "0x000000")
	assert.Contains(t, out, "boot")
	assert.Contains(t, out, "no vram address")
}

func TestFmtSize(t *testing.T) {
	assert.Equal(t, "0 B", FmtSize(0))
	assert.Equal(t, "999 B", FmtSize(999))
	assert.Equal(t, "1 KB", FmtSize(1000))
	assert.Equal(t, "64 KB", FmtSize(64_900))
	assert.Equal(t, "999 KB", FmtSize(999_999))
	assert.Equal(t, "1 MB", FmtSize(1_000_000))
	assert.Equal(t, "8 MB", FmtSize(8_388_608))
}

func TestStats_Report(t *testing.T) {
	s := newStats(0x40)
	s.Sizes["header"] = 0x10
	s.Sizes["bin"] = 0x20
	s.Sizes[UnknownBucket] = 0x10
	s.Split["bin"] = 1
	s.Cached["header"] = 1

	var buf bytes.Buffer
	s.Report(console.New(&buf, false))
	out := buf.String()

	assert.Contains(t, out, "Total size: 64 bytes")
	assert.Contains(t, out, "Split 48 B (75.00%) in defined segments")
	assert.Contains(t, out, "1 split")
	assert.Contains(t, out, "1 cached")
	assert.Contains(t, out, "from unknown bin files")
}
