// Statistical multipath channel between a single transmitter and receiver.
// Emulates Rayleigh tap fading over the OFDM resource grid and injects AWGN;
// the true frequency response is returned alongside the received symbols so a
// harness can validate the receiver-side estimator against it.
package channel

import (
	"fmt"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/linksim/grid"
	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/dsp/fourier"
)

func init() {
	log.Debugln("Initiated linksim.channel")
}

// Channel applies the fading model to resource grids. The tap process is an
// AR(1) chain across OFDM symbols with the Jakes coefficient from the model
// setting; the frequency response per symbol is the FFT of the tap impulse
// response. Configuration is read-only after New; the random stream is
// internal, so Apply must not be called concurrently on one Channel.
type Channel struct {
	rg      *grid.ResourceGrid
	setting ModelSetting
	powers  vlib.VectorF
	rho     float64
	fft     *fourier.CmplxFFT
	rng     *rand.Rand
}

func New(rg *grid.ResourceGrid, s ModelSetting, seed int64) (*Channel, error) {
	if rg == nil {
		return nil, fmt.Errorf("channel: nil resource grid")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumTaps > rg.NumSubcarriers() {
		return nil, fmt.Errorf("channel: %d taps exceed %d subcarriers", s.NumTaps, rg.NumSubcarriers())
	}
	c := &Channel{
		rg:      rg,
		setting: s,
		powers:  s.TapPowers(rg.NumSubcarriers()),
		rho:     s.DopplerCoeff(rg.NumSubcarriers(), rg.Setting().CyclicPrefix),
		fft:     fourier.NewCmplxFFT(rg.NumSubcarriers()),
		rng:     rand.New(rand.NewSource(seed)),
	}
	log.Debugf("channel: %s profile, %d taps, doppler coeff %.6f", s.Type, s.NumTaps, c.rho)
	return c, nil
}

func (c *Channel) Setting() ModelSetting { return c.setting }

// Apply passes a batch of transmit grids through independent channel
// realizations with noise variance n0. It returns the received grids and the
// ground-truth frequency response per grid element.
func (c *Channel) Apply(txGrids []vlib.VectorC, n0 float64) (rxGrids, hTrue []vlib.VectorC, err error) {
	if n0 < 0 {
		return nil, nil, fmt.Errorf("channel: negative noise variance %v", n0)
	}
	rxGrids = make([]vlib.VectorC, len(txGrids))
	hTrue = make([]vlib.VectorC, len(txGrids))
	for b, tx := range txGrids {
		if tx.Size() != c.rg.TotalElements() {
			return nil, nil, fmt.Errorf("channel: batch %d has %d elements, expected %d", b, tx.Size(), c.rg.TotalElements())
		}
		rxGrids[b], hTrue[b] = c.applyOne(tx, n0)
	}
	return rxGrids, hTrue, nil
}

func (c *Channel) applyOne(tx vlib.VectorC, n0 float64) (vlib.VectorC, vlib.VectorC) {
	T := c.rg.NumOFDMSymbols()
	F := c.rg.NumSubcarriers()
	L := c.setting.NumTaps

	taps := make(vlib.VectorC, L)
	for l := 0; l < L; l++ {
		taps[l] = c.drawTap(c.powers[l])
	}

	rx := make(vlib.VectorC, T*F)
	h := make(vlib.VectorC, T*F)
	impulse := make([]complex128, F)
	spectrum := make([]complex128, F)
	noiseSigma := math.Sqrt(n0 / 2)
	evolve := math.Sqrt(1 - c.rho*c.rho)

	for t := 0; t < T; t++ {
		if t > 0 {
			for l := 0; l < L; l++ {
				taps[l] = complex(c.rho, 0)*taps[l] + complex(evolve, 0)*c.drawTap(c.powers[l])
			}
		}
		for f := range impulse {
			impulse[f] = 0
		}
		copy(impulse, taps)
		c.fft.Coefficients(spectrum, impulse)

		for f := 0; f < F; f++ {
			idx := t*F + f
			h[idx] = spectrum[f]
			noise := complex(c.rng.NormFloat64()*noiseSigma, c.rng.NormFloat64()*noiseSigma)
			rx[idx] = spectrum[f]*tx[idx] + noise
		}
	}
	return rx, h
}

// drawTap samples a circularly symmetric complex Gaussian with variance p.
func (c *Channel) drawTap(p float64) complex128 {
	sigma := math.Sqrt(p / 2)
	return complex(c.rng.NormFloat64()*sigma, c.rng.NormFloat64()*sigma)
}
