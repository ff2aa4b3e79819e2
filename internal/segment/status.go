package segment

import "fmt"

// Status tracks a segment through the two passes as an explicit state
// machine, so "has this segment been scanned" is a checked fact rather
// than an implicit invariant.
//
//	Pending -> Scanned | SkippedScan -> Split | SkippedSplit
//
// A segment whose scan predicate is false goes straight from Pending to
// one of the split states.
type Status int

const (
	StatusPending Status = iota
	StatusScanned
	StatusSkippedScan
	StatusSplit
	StatusSkippedSplit
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusScanned:
		return "scanned"
	case StatusSkippedScan:
		return "skipped-scan"
	case StatusSplit:
		return "split"
	case StatusSkippedSplit:
		return "skipped-split"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// scanState reports whether s is a scan-pass outcome.
func (s Status) scanState() bool {
	return s == StatusScanned || s == StatusSkippedScan
}

// CanAdvance reports whether the transition s -> to is legal.
func (s Status) CanAdvance(to Status) bool {
	switch to {
	case StatusScanned, StatusSkippedScan:
		return s == StatusPending
	case StatusSplit, StatusSkippedSplit:
		return s == StatusPending || s.scanState()
	default:
		return false
	}
}
