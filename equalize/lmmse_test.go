package equalize_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/wiless/linksim/equalize"
	"github.com/wiless/vlib"
)

func TestPerfectCSIConvergence(t *testing.T) {
	q := equalize.New()
	x := vlib.VectorC{complex(1, 1), complex(-1, 1), complex(0.5, -0.5)}
	h := vlib.VectorC{complex(1, 0), complex(0, 2), complex(-0.7, 0.7)}
	rx := make(vlib.VectorC, len(x))
	for i := range x {
		rx[i] = h[i] * x[i]
	}
	errVar := make(vlib.VectorF, len(x))

	// shrinking n0 drives the estimate to the transmitted symbol
	prevDist := math.MaxFloat64
	for _, n0 := range []float64{1.0, 0.1, 1e-3, 1e-9} {
		xHat, n0Eff, err := q.Equalize(rx, h, errVar, n0)
		if err != nil {
			t.Fatal(err)
		}
		var dist float64
		for i := range x {
			dist += cmplx.Abs(xHat[i] - x[i])
			if n0Eff[i] < 0 || n0Eff[i] >= 1 {
				t.Fatalf("effective noise %v outside [0,1)", n0Eff[i])
			}
		}
		if dist > prevDist+1e-12 {
			t.Fatalf("estimate distance grew from %v to %v as n0 shrank", prevDist, dist)
		}
		prevDist = dist
	}
	if prevDist > 1e-6 {
		t.Fatalf("estimate did not converge to transmitted symbols, residual %v", prevDist)
	}
}

func TestVanishingChannel(t *testing.T) {
	q := equalize.New()
	rx := vlib.VectorC{complex(0.4, -0.2)}
	h := vlib.VectorC{0}
	errVar := vlib.VectorF{0}

	xHat, n0Eff, err := q.Equalize(rx, h, errVar, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cmplx.IsNaN(xHat[0]) || cmplx.IsInf(xHat[0]) {
		t.Fatalf("vanishing channel produced %v", xHat[0])
	}
	if math.IsNaN(n0Eff[0]) || math.IsInf(n0Eff[0], 0) {
		t.Fatalf("vanishing channel produced effective noise %v", n0Eff[0])
	}
}

func TestNoiseWeighting(t *testing.T) {
	q := equalize.New()
	rx := vlib.VectorC{complex(1, 0)}
	h := vlib.VectorC{complex(1, 0)}

	// larger estimation error pushes the effective noise toward one
	_, weak, err := q.Equalize(rx, h, vlib.VectorF{0.01}, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	_, strong, err := q.Equalize(rx, h, vlib.VectorF{10.0}, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if strong[0] <= weak[0] {
		t.Fatalf("effective noise should grow with estimation error: %v vs %v", strong[0], weak[0])
	}
}

func TestEqualizeChecks(t *testing.T) {
	q := equalize.New()
	if _, _, err := q.Equalize(make(vlib.VectorC, 2), make(vlib.VectorC, 3), make(vlib.VectorF, 2), 0.1); err == nil {
		t.Error("length mismatch should be rejected")
	}
	if _, _, err := q.Equalize(make(vlib.VectorC, 2), make(vlib.VectorC, 2), make(vlib.VectorF, 2), -0.1); err == nil {
		t.Error("negative noise variance should be rejected")
	}
}
