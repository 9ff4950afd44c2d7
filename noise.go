package linksim

import (
	"fmt"

	"github.com/wiless/vlib"
)

// NoiseVariance translates an Eb/N0 operating point in dB into the linear
// noise power spectral density N0 for unit-energy constellation symbols. The
// energy per bit is spread over bitsPerSymbol*codeRate information bits per
// symbol, and the grid overhead (total elements over data elements) accounts
// for the power spent on pilots and guards. Recompute whenever the nominal
// SNR changes; N0 must never be cached across differing Eb/N0 values.
func NoiseVariance(ebnoDb float64, bitsPerSymbol int, codeRate, overhead float64) (float64, error) {
	if bitsPerSymbol <= 0 {
		return 0, fmt.Errorf("linksim: bits per symbol %d", bitsPerSymbol)
	}
	if codeRate <= 0 {
		return 0, fmt.Errorf("linksim: code rate %v", codeRate)
	}
	if overhead <= 0 {
		return 0, fmt.Errorf("linksim: grid overhead %v", overhead)
	}
	esN0 := vlib.InvDb(ebnoDb) * float64(bitsPerSymbol) * codeRate * overhead
	return 1.0 / esN0, nil
}
