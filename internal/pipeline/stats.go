package pipeline

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ElectronicsArchiver/splat/internal/console"
	"github.com/ElectronicsArchiver/splat/internal/segment"
)

// UnknownBucket is the statistics category for unnamed raw-binary
// segments: regions nobody has identified yet. The rebucket applies to
// statistics only, never to the segment's real type behavior.
const UnknownBucket = "unk"

// Stats aggregates per-type byte totals, split counts, and cache-hit
// counts across both passes.
type Stats struct {
	TotalBytes uint64
	Sizes      map[string]uint64
	Split      map[string]int
	Cached     map[string]int
}

func newStats(totalBytes uint64) *Stats {
	return &Stats{
		TotalBytes: totalBytes,
		Sizes:      map[string]uint64{},
		Split:      map[string]int{},
		Cached:     map[string]int{},
	}
}

// bucketFor returns the statistics category for a segment.
func bucketFor(seg segment.Segment) string {
	if seg.Type() == "bin" && seg.IsNameDefault() {
		return UnknownBucket
	}
	return seg.Type()
}

// FmtSize renders a byte count for the coverage summary:
// "<n> B" below 1000, "<n/1000> KB" up to 1,000,000, "<n/1000000> MB"
// at or above (integer division throughout).
func FmtSize(n uint64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d B", n)
	case n < 1_000_000:
		return fmt.Sprintf("%d KB", n/1000)
	default:
		return fmt.Sprintf("%d MB", n/1_000_000)
	}
}

// Report writes the human-readable coverage summary.
func (s *Stats) Report(out *console.Writer) {
	printer := message.NewPrinter(language.English)

	var knownBytes uint64
	for typ, size := range s.Sizes {
		if typ != UnknownBucket {
			knownBytes += size
		}
	}
	unknownBytes := s.Sizes[UnknownBucket]

	out.Printf("%s", printer.Sprintf("Total size: %d bytes", s.TotalBytes))
	out.Printf("Split %s (%s) in defined segments", FmtSize(knownBytes), s.ratio(knownBytes))

	for _, typ := range s.sortedTypes() {
		if typ == UnknownBucket {
			continue
		}
		out.Printf("%20s: %8s (%s) %s, %s",
			typ,
			FmtSize(s.Sizes[typ]),
			s.ratio(s.Sizes[typ]),
			console.Green(fmt.Sprintf("%d split", s.Split[typ])),
			console.Dim(fmt.Sprintf("%d cached", s.Cached[typ])),
		)
	}
	out.Printf("%20s: %8s (%s) from unknown bin files",
		"unknown", FmtSize(unknownBytes), s.ratio(unknownBytes))
}

func (s *Stats) ratio(n uint64) string {
	if s.TotalBytes == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(s.TotalBytes)*100)
}

func (s *Stats) sortedTypes() []string {
	types := make([]string, 0, len(s.Sizes))
	for typ := range s.Sizes {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
