package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// windowEntries returns up to size most-recent entries that actually record
// the statistic. Entries with a null value are skipped, not zeroed, so a DNP
// or untracked game never drags the window down. Logs must be ordered most
// recent first.
func windowEntries(logs []GameLogEntry, statType StatType, size int) []GameLogEntry {
	entries := make([]GameLogEntry, 0, size)
	for _, e := range logs {
		if len(entries) == size {
			break
		}
		if _, ok := statType.Value(e); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// windowValues extracts the statistic values from already-filtered entries.
func windowValues(entries []GameLogEntry, statType StatType) []float64 {
	values := make([]float64, 0, len(entries))
	for _, e := range entries {
		if v, ok := statType.Value(e); ok {
			values = append(values, v)
		}
	}
	return values
}

// computeWindow reduces a value window to its summary statistics. The hit
// count uses the side's strict condition: over the line for OVER, under it
// for UNDER. An empty window yields all zeros; callers must treat a zero
// sample size as insufficient data rather than a real floor of zero.
func computeWindow(values []float64, line float64, side Side) WindowStats {
	if len(values) == 0 {
		return WindowStats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	hits := 0
	for _, v := range values {
		if sideHit(v, line, side) {
			hits++
		}
	}

	return WindowStats{
		Min:        floats.Min(values),
		Max:        floats.Max(values),
		Avg:        stat.Mean(values, nil),
		Median:     median(sorted),
		HitCount:   hits,
		SampleSize: len(values),
	}
}

// median returns the conventional sample median of an already sorted window.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// sideHit reports whether a single game value would have cashed the side.
// Exact pushes count for neither side.
func sideHit(v, line float64, side Side) bool {
	if side == SideUnder {
		return v < line
	}
	return v > line
}
