// Package statistic holds the per-packet accumulators shared by the sliding
// windows and the lifetime tables.
package statistic

// Welford keeps a running mean and variance in a single pass.
type Welford struct {
	n    int
	mean float64
	m2   float64
}

// Add folds x into the running statistics.
func (w *Welford) Add(x float64) {
	w.n++
	if w.n == 1 {
		w.mean = x
		w.m2 = 0
		return
	}
	diff := x - w.mean
	w.mean += diff / float64(w.n)
	w.m2 += diff * (x - w.mean)
}

// Count returns the number of samples added.
func (w *Welford) Count() int { return w.n }

// Mean returns the sample mean, or 0 without samples.
func (w *Welford) Mean() float64 { return w.mean }

// Variance returns the unbiased sample variance, or 0 with fewer than two samples.
func (w *Welford) Variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

// Reset clears all samples.
func (w *Welford) Reset() { *w = Welford{} }
