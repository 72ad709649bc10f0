package voxel

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the sample buffer for run diagnostics.
type Stats struct {
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
	Nonzero int64
}

// Stats computes min/max/mean/stddev and the nonzero-sample count over the
// whole buffer. Intended for log lines and the CLI summary, not for the
// export contract; it walks the full buffer, so call it once per time step
// at most.
func (v *Volume) Stats() Stats {
	if len(v.samples) == 0 {
		return Stats{}
	}

	vals := make([]float64, len(v.samples))
	var nonzero int64
	for i, s := range v.samples {
		vals[i] = float64(s)
		if s != 0 {
			nonzero++
		}
	}

	mean, std := stat.MeanStdDev(vals, nil)
	return Stats{
		Min:     floats.Min(vals),
		Max:     floats.Max(vals),
		Mean:    mean,
		StdDev:  std,
		Nonzero: nonzero,
	}
}
