package fec

import (
	"math"

	"github.com/wiless/vlib"
)

// BPDecoder runs iterative belief propagation over the code's factor graph.
// Channel LLRs use the log(P(bit=0)/P(bit=1)) convention, so a positive
// belief is a hard zero. Decoding never fails: after MaxIters the hard
// decision of the current beliefs is returned together with converged=false.
// All working state is allocated per call, so one decoder may be shared
// across concurrent batch elements.
type BPDecoder struct {
	code     *Code
	maxIters int

	// flattened edge list, grouped by check row
	edgeVar  []int // variable index of each edge
	checkOff []int // edge range of check j is [checkOff[j], checkOff[j+1])
	varEdges [][]int
}

const (
	// tanhClip keeps atanh away from its poles.
	tanhClip = 0.9999999
	// msgClip bounds message magnitudes between iterations.
	msgClip = 30.0
)

func NewBPDecoder(code *Code, maxIters int) *BPDecoder {
	if maxIters <= 0 {
		maxIters = 25
	}
	d := &BPDecoder{code: code, maxIters: maxIters}
	d.checkOff = make([]int, code.m+1)
	d.varEdges = make([][]int, code.n)
	for j := 0; j < code.m; j++ {
		d.checkOff[j] = len(d.edgeVar)
		for _, v := range code.checkVars[j] {
			d.varEdges[v] = append(d.varEdges[v], len(d.edgeVar))
			d.edgeVar = append(d.edgeVar, v)
		}
	}
	d.checkOff[code.m] = len(d.edgeVar)
	return d
}

func (d *BPDecoder) MaxIters() int { return d.maxIters }

// Decode runs message passing on a codeword-length LLR vector and returns the
// hard information bits, the number of iterations spent, and whether all
// parity checks were satisfied.
func (d *BPDecoder) Decode(llr vlib.VectorF) ([]uint8, int, bool) {
	code := d.code
	nEdges := len(d.edgeVar)

	v2c := make([]float64, nEdges)
	c2v := make([]float64, nEdges)
	hard := make([]uint8, code.n)

	for e, v := range d.edgeVar {
		v2c[e] = llr[v]
	}
	hardDecide(llr, hard)
	if code.CheckParity(hard) == 0 {
		return hard[:code.k], 0, true
	}

	iter := 0
	converged := false
	belief := make(vlib.VectorF, code.n)

	for iter = 1; iter <= d.maxIters; iter++ {
		// check node update: extrinsic tanh-domain combination
		for j := 0; j < code.m; j++ {
			lo, hi := d.checkOff[j], d.checkOff[j+1]
			for e := lo; e < hi; e++ {
				prod := 1.0
				for o := lo; o < hi; o++ {
					if o == e {
						continue
					}
					prod *= math.Tanh(v2c[o] / 2.0)
				}
				if prod > tanhClip {
					prod = tanhClip
				} else if prod < -tanhClip {
					prod = -tanhClip
				}
				c2v[e] = 2.0 * math.Atanh(prod)
			}
		}

		// variable node update: channel prior plus extrinsic check messages
		for v := 0; v < code.n; v++ {
			sum := llr[v]
			for _, e := range d.varEdges[v] {
				sum += c2v[e]
			}
			belief[v] = sum
			for _, e := range d.varEdges[v] {
				v2c[e] = clip(sum - c2v[e])
			}
		}

		hardDecide(belief, hard)
		if code.CheckParity(hard) == 0 {
			converged = true
			break
		}
	}
	if iter > d.maxIters {
		iter = d.maxIters
	}
	return hard[:code.k], iter, converged
}

func hardDecide(llr vlib.VectorF, hard []uint8) {
	for i, v := range llr {
		if v < 0 {
			hard[i] = 1
		} else {
			hard[i] = 0
		}
	}
}

func clip(x float64) float64 {
	if x > msgClip {
		return msgClip
	}
	if x < -msgClip {
		return -msgClip
	}
	return x
}
