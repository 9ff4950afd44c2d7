// Tap statistics for the multipath fading model.
package channel

import (
	"fmt"
	"math"

	"github.com/wiless/vlib"
)

type ProfileType int

var ProfileTypes = [...]string{
	"Exponential",
	"Uniform",
}

func (p ProfileType) String() string {
	if int(p) >= len(ProfileTypes) {
		return "Unknown!!"
	}
	return ProfileTypes[p]
}

const (
	Exponential ProfileType = iota
	Uniform
)

// ModelSetting parameterizes the tap-delay-line channel: a power-delay
// profile shaped by the delay spread and a Doppler process from the UE speed
// and carrier frequency. Taps sit on the OFDM sample lattice, one sample
// apart.
type ModelSetting struct {
	Type                ProfileType
	CarrierGHz          float64
	DelaySpreadNs       float64
	UESpeedMps          float64
	NumTaps             int
	SubcarrierSpacingHz float64
}

func NewModelSetting() *ModelSetting {
	result := new(ModelSetting)
	result.SetDefault()
	return result
}

func (m *ModelSetting) SetDefault() {
	m.Type = Exponential
	m.CarrierGHz = 2.6
	m.DelaySpreadNs = 100.0
	m.UESpeedMps = 10.0
	m.NumTaps = 4
	m.SubcarrierSpacingHz = 30e3
}

func (m ModelSetting) Validate() error {
	if m.NumTaps <= 0 {
		return fmt.Errorf("channel: invalid tap count %d", m.NumTaps)
	}
	if m.SubcarrierSpacingHz <= 0 {
		return fmt.Errorf("channel: invalid subcarrier spacing %v", m.SubcarrierSpacingHz)
	}
	if m.DelaySpreadNs < 0 || m.UESpeedMps < 0 || m.CarrierGHz <= 0 {
		return fmt.Errorf("channel: invalid model setting %+v", m)
	}
	return nil
}

// TapPowers returns the normalized power-delay profile: the per-tap variances
// sum to one so the channel neither amplifies nor attenuates on average.
func (m ModelSetting) TapPowers(fftSize int) vlib.VectorF {
	powers := make(vlib.VectorF, m.NumTaps)
	switch m.Type {
	case Uniform:
		for l := range powers {
			powers[l] = 1.0
		}
	default:
		// exponential decay over the sample-spaced taps
		ts := 1.0 / (m.SubcarrierSpacingHz * float64(fftSize))
		rms := m.DelaySpreadNs * 1e-9
		if rms <= 0 || m.NumTaps == 1 {
			powers[0] = 1.0
			for l := 1; l < m.NumTaps; l++ {
				powers[l] = 0
			}
			return powers
		}
		for l := range powers {
			powers[l] = math.Exp(-float64(l) * ts / rms)
		}
	}
	total := vlib.Sum(powers)
	for l := range powers {
		powers[l] /= total
	}
	return powers
}

// DopplerCoeff is the Jakes autocorrelation J0(2 pi fd Tsym) between channel
// realizations one OFDM symbol apart.
func (m ModelSetting) DopplerCoeff(fftSize, cyclicPrefix int) float64 {
	const c = 299792458.0
	fd := m.UESpeedMps / c * m.CarrierGHz * 1e9
	tsym := float64(fftSize+cyclicPrefix) / (m.SubcarrierSpacingHz * float64(fftSize))
	return math.J0(2 * math.Pi * fd * tsym)
}
