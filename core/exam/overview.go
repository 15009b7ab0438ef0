package exam

import "github.com/trezcool/examguard/core"

// ComputeStats aggregates a roster. An empty roster yields zeros.
func ComputeStats(roster []RosterEntry) Stats {
	var (
		stats Stats
		total float64
	)
	for _, entry := range roster {
		if entry.Status != StatusNotStarted {
			stats.Started++
		}
		if entry.IsFlagged {
			stats.Flagged++
		}
		if entry.Status == StatusSubmitted {
			stats.Completed++
			if entry.Percentage != nil {
				total += *entry.Percentage
			}
		}
	}
	if stats.Completed > 0 {
		stats.AvgScore = core.Round2(total / float64(stats.Completed))
	}
	return stats
}
