package statistic

import "math"

// PortEntropy returns the Shannon entropy in bits of a port histogram.
func PortEntropy(hist map[uint16]int) float64 {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
