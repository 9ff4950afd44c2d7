package fec

import (
	"fmt"
	"math/rand"
)

// maxLift caps the circulant lifting size of the parity-check construction.
const maxLift = 64

// Code is a systematic LDPC code with parity-check matrix H = [A | S]. A is a
// sparse m x k matrix expanded from a seeded base graph with circulant
// lifting (info column weight 3); S is the m x m dual-diagonal accumulator,
// which makes encoding a single back-substitution pass. The first k codeword
// bits are the information bits.
type Code struct {
	n, k, m  int
	liftSize int
	seed     int64

	// adjacency of H, fixed after construction
	checkVars [][]int // per check row, all variable indices (info then parity)
	infoVars  [][]int // per check row, the indices < k (encoding walk)
	varChecks [][]int // per variable, check rows touching it
}

// NewCode builds the parity-check structure for an (n, k) code. The same
// (n, k, seed) triple yields the identical structure on both ends of a link.
func NewCode(k, n int, seed int64) (*Code, error) {
	if k <= 0 || n <= k {
		return nil, fmt.Errorf("fec: invalid code dimensions k=%d n=%d", k, n)
	}
	m := n - k
	c := &Code{n: n, k: k, m: m, seed: seed}
	c.liftSize = liftSize(k, m)

	kb := k / c.liftSize
	mb := m / c.liftSize

	colWeight := 3
	if colWeight > mb {
		colWeight = mb
	}

	rng := rand.New(rand.NewSource(seed))
	c.checkVars = make([][]int, m)
	c.infoVars = make([][]int, m)
	c.varChecks = make([][]int, n)

	// Expand the lifted base graph: each base column gets colWeight distinct
	// base rows, each with its own circulant shift.
	for cb := 0; cb < kb; cb++ {
		rows := rng.Perm(mb)[:colWeight]
		for _, rb := range rows {
			shift := rng.Intn(c.liftSize)
			for z := 0; z < c.liftSize; z++ {
				row := rb*c.liftSize + (z+shift)%c.liftSize
				col := cb*c.liftSize + z
				c.infoVars[row] = append(c.infoVars[row], col)
			}
		}
	}

	// Dual-diagonal accumulator on the parity part.
	for j := 0; j < m; j++ {
		c.checkVars[j] = append(c.checkVars[j], c.infoVars[j]...)
		if j > 0 {
			c.checkVars[j] = append(c.checkVars[j], k+j-1)
		}
		c.checkVars[j] = append(c.checkVars[j], k+j)
		for _, v := range c.checkVars[j] {
			c.varChecks[v] = append(c.varChecks[v], j)
		}
	}
	return c, nil
}

// liftSize picks the largest divisor of gcd(k, m) not exceeding maxLift.
func liftSize(k, m int) int {
	g := gcd(k, m)
	best := 1
	for z := 2; z <= maxLift && z <= g; z++ {
		if g%z == 0 {
			best = z
		}
	}
	return best
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (c *Code) N() int        { return c.n }
func (c *Code) K() int        { return c.k }
func (c *Code) M() int        { return c.m }
func (c *Code) LiftSize() int { return c.liftSize }

// Rate is the design code rate k/n.
func (c *Code) Rate() float64 { return float64(c.k) / float64(c.n) }

// Encode appends m parity bits to the k information bits by accumulating the
// info contributions row by row. Deterministic, no failure modes beyond a
// length mismatch.
func (c *Code) Encode(info []uint8) ([]uint8, error) {
	if len(info) != c.k {
		return nil, fmt.Errorf("fec: expected %d info bits, got %d", c.k, len(info))
	}
	cw := make([]uint8, c.n)
	copy(cw, info)
	var acc uint8
	for j := 0; j < c.m; j++ {
		p := acc
		for _, v := range c.infoVars[j] {
			p ^= cw[v] & 1
		}
		cw[c.k+j] = p
		acc = p
	}
	return cw, nil
}

// CheckParity walks all parity constraints and returns the number violated.
func (c *Code) CheckParity(cw []uint8) int {
	errors := 0
	for j := 0; j < c.m; j++ {
		var x uint8
		for _, v := range c.checkVars[j] {
			x ^= cw[v] & 1
		}
		if x != 0 {
			errors++
		}
	}
	return errors
}
