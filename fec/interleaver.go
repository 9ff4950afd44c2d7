// Forward error correction for the OFDM link: a seeded random interleaver and
// an LDPC code with belief-propagation decoding.
package fec

import (
	"fmt"
	"math/rand"

	"github.com/wiless/vlib"
)

// Interleaver applies a pseudo-random bit permutation on the transmit side
// and its exact inverse on LLRs at the receiver. The permutation is derived
// from an explicit seed shared by both directions; transmitter and receiver
// must be handed the same Interleaver (or the same seed) so the inversion is
// exact rather than coincidental.
type Interleaver struct {
	perm []int
	inv  []int
	seed int64
}

func NewInterleaver(n int, seed int64) (*Interleaver, error) {
	if n <= 0 {
		return nil, fmt.Errorf("fec: interleaver length %d", n)
	}
	il := &Interleaver{seed: seed}
	il.perm = rand.New(rand.NewSource(seed)).Perm(n)
	il.inv = make([]int, n)
	for i, p := range il.perm {
		il.inv[p] = i
	}
	return il, nil
}

func (il *Interleaver) Len() int { return len(il.perm) }

func (il *Interleaver) Seed() int64 { return il.seed }

// Interleave permutes coded bits into transmit order.
func (il *Interleaver) Interleave(bits []uint8) ([]uint8, error) {
	if len(bits) != len(il.perm) {
		return nil, fmt.Errorf("fec: interleaver built for %d bits, got %d", len(il.perm), len(bits))
	}
	out := make([]uint8, len(bits))
	for i, p := range il.perm {
		out[i] = bits[p]
	}
	return out, nil
}

// DeinterleaveLLR reorders received LLRs back to coded-bit order.
func (il *Interleaver) DeinterleaveLLR(llr vlib.VectorF) (vlib.VectorF, error) {
	if len(llr) != len(il.perm) {
		return nil, fmt.Errorf("fec: interleaver built for %d bits, got %d", len(il.perm), len(llr))
	}
	out := make(vlib.VectorF, len(llr))
	for i, p := range il.perm {
		out[p] = llr[i]
	}
	return out, nil
}
