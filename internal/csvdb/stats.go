package csvdb

import (
	"math"
	"slices"
)

// Summary holds descriptive statistics of a numeric column. Std is nil when
// fewer than two values are present.
type Summary struct {
	Count  int      `json:"count" yaml:"count"`
	Mean   float64  `json:"mean" yaml:"mean"`
	Std    *float64 `json:"std" yaml:"std"`
	Min    float64  `json:"min" yaml:"min"`
	Q1     float64  `json:"25%" yaml:"25%"`
	Median float64  `json:"50%" yaml:"50%"`
	Q3     float64  `json:"75%" yaml:"75%"`
	Max    float64  `json:"max" yaml:"max"`
}

// Describe summarizes the non-missing numeric cells of vals. It returns false
// when there are none.
func Describe(vals []Value) (Summary, bool) {
	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.Number(); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return Summary{}, false
	}
	// Welford's online mean and variance.
	var mean, m2 float64
	for i, x := range nums {
		d := x - mean
		mean += d / float64(i+1)
		m2 += d * (x - mean)
	}
	slices.Sort(nums)
	s := Summary{
		Count:  len(nums),
		Mean:   mean,
		Min:    nums[0],
		Q1:     quantile(nums, 0.25),
		Median: quantile(nums, 0.5),
		Q3:     quantile(nums, 0.75),
		Max:    nums[len(nums)-1],
	}
	if len(nums) > 1 {
		std := math.Sqrt(m2 / float64(len(nums)-1))
		s.Std = &std
	}
	return s, true
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
