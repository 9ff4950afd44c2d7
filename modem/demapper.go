package modem

import (
	"fmt"
	"math"

	"github.com/wiless/vlib"
)

// Demapper converts equalized symbols into per-bit log-likelihood ratios with
// the exact a-posteriori metric: for each bit position the Gaussian
// likelihoods of all constellation points with that bit at 0 and at 1 are
// summed in the log domain. LLR = log(P(bit=0)/P(bit=1)), so a positive sign
// is a hard zero. Output is always finite; magnitudes are clamped so the
// decoder never sees Inf or NaN.
type Demapper struct {
	c      *Constellation
	llrMax float64
	// per bit position, the point indices carrying 0 and 1
	zeros [][]int
	ones  [][]int
}

// noiseFloor keeps the Gaussian metric defined when the effective noise
// collapses to zero at very high SNR.
const noiseFloor = 1e-12

func NewDemapper(c *Constellation) *Demapper {
	d := &Demapper{c: c, llrMax: 40.0}
	bps := c.BitsPerSymbol()
	d.zeros = make([][]int, bps)
	d.ones = make([][]int, bps)
	for b := 0; b < bps; b++ {
		for i := range c.Points() {
			if c.PointBit(i, b) == 0 {
				d.zeros[b] = append(d.zeros[b], i)
			} else {
				d.ones[b] = append(d.ones[b], i)
			}
		}
	}
	return d
}

// LLR computes bitsPerSymbol LLRs for every equalized symbol, concatenated in
// transmit bit order. n0Eff carries the post-equalization noise variance per
// symbol and must match xHat in length.
func (d *Demapper) LLR(xHat vlib.VectorC, n0Eff vlib.VectorF) (vlib.VectorF, error) {
	if xHat.Size() != len(n0Eff) {
		return nil, fmt.Errorf("modem: %d symbols but %d noise entries", xHat.Size(), len(n0Eff))
	}
	bps := d.c.BitsPerSymbol()
	points := d.c.Points()
	llr := make(vlib.VectorF, xHat.Size()*bps)

	metric := make([]float64, len(points))
	for s, y := range xHat {
		n0 := n0Eff[s]
		if n0 < noiseFloor {
			n0 = noiseFloor
		}
		for i, p := range points {
			dr := real(y) - real(p)
			di := imag(y) - imag(p)
			metric[i] = -(dr*dr + di*di) / n0
		}
		for b := 0; b < bps; b++ {
			v := logSumExp(metric, d.zeros[b]) - logSumExp(metric, d.ones[b])
			if v > d.llrMax {
				v = d.llrMax
			} else if v < -d.llrMax {
				v = -d.llrMax
			}
			llr[s*bps+b] = v
		}
	}
	return llr, nil
}

// logSumExp folds the selected metrics stably around their maximum.
func logSumExp(metric []float64, idx []int) float64 {
	max := math.Inf(-1)
	for _, i := range idx {
		if metric[i] > max {
			max = metric[i]
		}
	}
	var sum float64
	for _, i := range idx {
		sum += math.Exp(metric[i] - max)
	}
	return max + math.Log(sum)
}
