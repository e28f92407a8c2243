package peer

// Stats holds the counters reported by the stats-collector subroutine
// (spec.md §3). ConnectedPeers is the status-driving signal consumed by
// handleStats; the remaining counters are implementation-defined and
// carried through unchanged.
type Stats struct {
	ConnectedPeers int
	Extra          map[string]int64
}
