package wordcorr

import "math"

// Pearson returns the Pearson correlation coefficient of x and y.
// It is NaN when the lengths differ, fewer than two samples exist, or either
// side is constant.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 || isConstant(x) || isConstant(y) {
		return math.NaN()
	}
	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var num, sx, sy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		sx += dx * dx
		sy += dy * dy
	}
	den := math.Sqrt(sx * sy)
	if den == 0 {
		return math.NaN()
	}
	return clampUnit(num / den)
}

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// Correlator applies an OOV policy and computes Pearson correlations.
// It reuses scratch buffers and must not be shared between goroutines.
type Correlator struct {
	policy OOVPolicy
	xs     []float64
	ys     []float64
}

// NewCorrelator returns a correlator sized for n reference rows.
func NewCorrelator(policy OOVPolicy, n int) *Correlator {
	if policy == "" {
		policy = OOVZero
	}
	return &Correlator{
		policy: policy,
		xs:     make([]float64, 0, n),
		ys:     make([]float64, 0, n),
	}
}

// Correlate returns the correlation between sims and scores under the policy.
func (c *Correlator) Correlate(sims []Similarity, scores []float64) float64 {
	if len(sims) != len(scores) {
		return math.NaN()
	}
	c.xs = c.xs[:0]
	c.ys = c.ys[:0]
	switch c.policy {
	case OOVDrop:
		for i, s := range sims {
			if !s.Known {
				continue
			}
			c.xs = append(c.xs, s.Value)
			c.ys = append(c.ys, scores[i])
		}
		return Pearson(c.xs, c.ys)
	default:
		for _, s := range sims {
			c.xs = append(c.xs, s.Imputed())
		}
		return Pearson(c.xs, scores)
	}
}

// Correlate is a convenience wrapper around a one-off Correlator.
func Correlate(sims []Similarity, scores []float64, policy OOVPolicy) float64 {
	return NewCorrelator(policy, len(sims)).Correlate(sims, scores)
}
