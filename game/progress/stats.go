package progress

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats aggregates solve times across records.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`

	MeanSolveSeconds    float64 `json:"mean_solve_seconds"`
	StdDevSolveSeconds  float64 `json:"stddev_solve_seconds"`
	MedianSolveSeconds  float64 `json:"median_solve_seconds"`
	FastestSolveSeconds float64 `json:"fastest_solve_seconds"`
	SlowestSolveSeconds float64 `json:"slowest_solve_seconds"`

	ByKind map[Kind]int `json:"by_kind"`
}

// ComputeStats summarizes records. Timing fields are zero when nothing is
// completed; the standard deviation needs at least two solves.
func ComputeStats(records []Record) Stats {
	st := Stats{Total: len(records), ByKind: make(map[Kind]int)}

	var durations []float64
	for _, rec := range records {
		st.ByKind[rec.PuzzleKind]++
		if !rec.IsCompleted {
			st.InProgress++
			continue
		}
		st.Completed++
		if d, ok := solveDuration(rec); ok {
			durations = append(durations, float64(d)/1000)
		}
	}
	if len(durations) == 0 {
		return st
	}

	sort.Float64s(durations)
	st.MeanSolveSeconds = stat.Mean(durations, nil)
	st.MedianSolveSeconds = stat.Quantile(0.5, stat.Empirical, durations, nil)
	st.FastestSolveSeconds = floats.Min(durations)
	st.SlowestSolveSeconds = floats.Max(durations)
	if len(durations) > 1 {
		st.StdDevSolveSeconds = stat.StdDev(durations, nil)
	}
	return st
}

// Stats computes statistics over everything in the store.
func (s *Store) Stats() Stats {
	return ComputeStats(s.GetAll())
}
