// Least-squares channel estimation from pilot observations with
// nearest-neighbor interpolation over the resource grid.
package chest

import (
	"fmt"
	"math/cmplx"

	"github.com/wiless/linksim/grid"
	"github.com/wiless/vlib"
)

// Estimator recovers the channel frequency response at every grid element
// from the pilot positions alone. At a pilot the LS estimate is rx/pilot with
// error variance N0/|pilot|^2; every other element borrows estimate and error
// variance from its nearest pilot (Manhattan distance over symbol and
// subcarrier, ties broken toward the lower subcarrier then the earlier
// symbol). The nearest-pilot map depends only on the grid geometry and is
// precomputed once, so a single-pilot grid degenerates to broadcasting that
// pilot everywhere.
type Estimator struct {
	rg      *grid.ResourceGrid
	nearest []int // per grid element, index into the pilot list
}

func NewEstimator(rg *grid.ResourceGrid) (*Estimator, error) {
	if rg == nil {
		return nil, fmt.Errorf("chest: nil resource grid")
	}
	pilots := rg.PilotIndices()
	if pilots.Size() == 0 {
		return nil, fmt.Errorf("chest: resource grid carries no pilots")
	}

	F := rg.NumSubcarriers()
	e := &Estimator{rg: rg}
	e.nearest = make([]int, rg.TotalElements())

	type coord struct{ t, f int }
	pc := make([]coord, pilots.Size())
	for i, idx := range pilots {
		pc[i] = coord{idx / F, idx % F}
	}

	for t := 0; t < rg.NumOFDMSymbols(); t++ {
		for f := 0; f < F; f++ {
			best := 0
			bestDist := -1
			for i, p := range pc {
				d := abs(p.t-t) + abs(p.f-f)
				if bestDist < 0 || d < bestDist ||
					(d == bestDist && (p.f < pc[best].f || (p.f == pc[best].f && p.t < pc[best].t))) {
					best = i
					bestDist = d
				}
			}
			e.nearest[rg.Index(t, f)] = best
		}
	}
	return e, nil
}

// Estimate returns the channel estimate and its error variance for the full
// grid. Only the pilot positions of rxGrid are observed; the ground-truth
// channel never enters here.
func (e *Estimator) Estimate(rxGrid vlib.VectorC, n0 float64) (vlib.VectorC, vlib.VectorF, error) {
	if rxGrid.Size() != e.rg.TotalElements() {
		return nil, nil, fmt.Errorf("chest: expected %d grid elements, got %d", e.rg.TotalElements(), rxGrid.Size())
	}
	if n0 < 0 {
		return nil, nil, fmt.Errorf("chest: negative noise variance %v", n0)
	}

	pilots := e.rg.PilotIndices()
	values := e.rg.PilotValues()

	hp := make(vlib.VectorC, pilots.Size())
	ep := make(vlib.VectorF, pilots.Size())
	for i, idx := range pilots {
		p := values[i]
		hp[i] = rxGrid[idx] / p
		mag2 := real(p)*real(p) + imag(p)*imag(p)
		ep[i] = n0 / mag2
	}

	hHat := make(vlib.VectorC, rxGrid.Size())
	errVar := make(vlib.VectorF, rxGrid.Size())
	for idx := range hHat {
		src := e.nearest[idx]
		hHat[idx] = hp[src]
		errVar[idx] = ep[src]
	}
	return hHat, errVar, nil
}

// EstimateAtPilots exposes the raw LS estimates, mostly for diagnostics.
func (e *Estimator) EstimateAtPilots(rxGrid vlib.VectorC) (vlib.VectorC, error) {
	if rxGrid.Size() != e.rg.TotalElements() {
		return nil, fmt.Errorf("chest: expected %d grid elements, got %d", e.rg.TotalElements(), rxGrid.Size())
	}
	pilots := e.rg.PilotIndices()
	values := e.rg.PilotValues()
	hp := make(vlib.VectorC, pilots.Size())
	for i, idx := range pilots {
		hp[i] = rxGrid[idx] / values[i]
	}
	return hp, nil
}

// MeanPilotPower is the average received power across pilot positions, a
// cheap link quality indicator.
func (e *Estimator) MeanPilotPower(rxGrid vlib.VectorC) float64 {
	pilots := e.rg.PilotIndices()
	var sum float64
	for _, idx := range pilots {
		a := cmplx.Abs(rxGrid[idx])
		sum += a * a
	}
	return sum / float64(pilots.Size())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
