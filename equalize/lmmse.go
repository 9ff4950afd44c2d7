// Per-element LMMSE equalization for a single-antenna OFDM stream.
package equalize

import (
	"fmt"
	"math/cmplx"

	"github.com/wiless/vlib"
)

// LMMSE applies the single-stream specialization of the linear MMSE filter
// W = H^H (H H^H + (N0+err) I)^-1 independently at every resource element:
//
//	xHat  = conj(h) * y / (|h|^2 + N0 + err)
//	n0Eff = (N0 + err) / (|h|^2 + N0 + err)
//
// The denominator is floored so that a vanishing channel estimate degrades
// into a noisy zero estimate instead of a division blow-up. A multi-stream
// variant would invert a per-element covariance sized by the stream count;
// with one stream the inversion collapses to this scalar form.
type LMMSE struct {
	floor float64
}

func New() *LMMSE {
	return &LMMSE{floor: 1e-12}
}

// Equalize processes a full grid (or any matching slice of elements). All
// four inputs are per-element; lengths must agree.
func (q *LMMSE) Equalize(rx, hHat vlib.VectorC, errVar vlib.VectorF, n0 float64) (vlib.VectorC, vlib.VectorF, error) {
	if rx.Size() != hHat.Size() || rx.Size() != len(errVar) {
		return nil, nil, fmt.Errorf("equalize: length mismatch rx=%d h=%d err=%d", rx.Size(), hHat.Size(), len(errVar))
	}
	if n0 < 0 {
		return nil, nil, fmt.Errorf("equalize: negative noise variance %v", n0)
	}

	xHat := make(vlib.VectorC, rx.Size())
	n0Eff := make(vlib.VectorF, rx.Size())
	for i, h := range hHat {
		hPow := real(h)*real(h) + imag(h)*imag(h)
		residual := n0 + errVar[i]
		den := hPow + residual
		if den < q.floor {
			den = q.floor
		}
		xHat[i] = cmplx.Conj(h) * rx[i] / complex(den, 0)
		n0Eff[i] = residual / den
	}
	return xHat, n0Eff, nil
}
