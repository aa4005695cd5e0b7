package baseline

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmpty is returned when a baseline holds no values
var ErrEmpty = errors.New("baseline distribution is empty")

// Distribution is an immutable set of reference log-likelihoods.
// It is safe for concurrent readers; nothing mutates it after construction.
type Distribution struct {
	sorted []float64
}

// New builds a distribution from a copy of values.
// Empty input and NaN samples are rejected.
func New(values []float64) (*Distribution, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}

	sorted := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("baseline sample %d is NaN", i)
		}
		sorted[i] = v
	}
	sort.Float64s(sorted)

	return &Distribution{sorted: sorted}, nil
}

// Len returns the number of samples
func (d *Distribution) Len() int {
	return len(d.sorted)
}

// Values returns the samples in ascending order
func (d *Distribution) Values() []float64 {
	out := make([]float64, len(d.sorted))
	copy(out, d.sorted)
	return out
}

// CountAbove returns how many samples are strictly greater than ll and how many are exactly equal.
// Comparisons are exact; no tolerance is applied.
func (d *Distribution) CountAbove(ll float64) (greater, equal int) {
	if math.IsNaN(ll) {
		return 0, 0
	}
	lo := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i] >= ll })
	hi := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i] > ll })
	return len(d.sorted) - hi, hi - lo
}

// PValue returns the one-sided empirical p-value of ll with half weight on ties:
//
//	(#{b > ll} + 0.5 * #{b == ll}) / N
func (d *Distribution) PValue(ll float64) float64 {
	greater, equal := d.CountAbove(ll)
	return (float64(greater) + 0.5*float64(equal)) / float64(len(d.sorted))
}
