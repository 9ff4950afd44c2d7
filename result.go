package linksim

// LinkResult collects the error-rate metrics of one Eb/N0 operating point.
// Field tags feed the csv/json dumps of the sweep harness.
type LinkResult struct {
	EbNoDb        float64 `csv:"ebno_db" json:"ebnoDb"`
	N0            float64 `csv:"n0" json:"n0"`
	BitErrors     int     `csv:"bit_errors" json:"bitErrors"`
	NumBits       int     `csv:"num_bits" json:"numBits"`
	BER           float64 `csv:"ber" json:"ber"`
	BlockErrors   int     `csv:"block_errors" json:"blockErrors"`
	NumBlocks     int     `csv:"num_blocks" json:"numBlocks"`
	BLER          float64 `csv:"bler" json:"bler"`
	AvgIterations float64 `csv:"avg_iterations" json:"avgIterations"`
	Converged     int     `csv:"converged" json:"converged"`
}

// RxStat reports per-codeword decoder behavior. Non-convergence is a normal
// outcome, not an error.
type RxStat struct {
	Iterations int
	Converged  bool
}

// CountBitErrors compares two equal-length bit slices.
func CountBitErrors(decoded, sent []uint8) int {
	errors := 0
	for i := range sent {
		if decoded[i] != sent[i] {
			errors++
		}
	}
	return errors
}

// MeasureBER fills the error counts of a result from a decoded batch against
// the transmitted ground truth.
func MeasureBER(decoded, sent [][]uint8) (bitErrors, numBits, blockErrors int) {
	for b := range sent {
		e := CountBitErrors(decoded[b], sent[b])
		bitErrors += e
		numBits += len(sent[b])
		if e > 0 {
			blockErrors++
		}
	}
	return bitErrors, numBits, blockErrors
}
