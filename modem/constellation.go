// Gray-coded square QAM constellations normalized to unit average power.
package modem

import (
	"fmt"
	"math"

	"github.com/wiless/vlib"
)

type Modulation int

const (
	QPSK   Modulation = 2 // 2 bits per symbol
	QAM16  Modulation = 4
	QAM64  Modulation = 6
)

func (m Modulation) BitsPerSymbol() int {
	return int(m)
}

func (m Modulation) String() string {
	switch m {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16-QAM"
	case QAM64:
		return "64-QAM"
	default:
		return "Unknown!!"
	}
}

// Constellation maps bit groups to complex symbols. The point at index i
// carries the bit pattern i (MSB first), Gray-coded per I/Q axis so that
// neighbouring points differ in a single bit.
type Constellation struct {
	mod    Modulation
	points vlib.VectorC
}

func NewConstellation(bitsPerSymbol int) (*Constellation, error) {
	mod := Modulation(bitsPerSymbol)
	switch mod {
	case QPSK, QAM16, QAM64:
	default:
		return nil, fmt.Errorf("modem: unsupported bits per symbol %d", bitsPerSymbol)
	}
	c := &Constellation{mod: mod}
	c.generate()
	c.normalize()
	return c, nil
}

func (c *Constellation) generate() {
	bps := c.mod.BitsPerSymbol()
	half := bps / 2
	order := 1 << half // points per axis
	size := 1 << bps
	c.points = make(vlib.VectorC, size)

	for i := 0; i < size; i++ {
		row := i >> half
		col := i & (order - 1)

		grayRow := row ^ (row >> 1)
		grayCol := col ^ (col >> 1)

		x := float64(2*grayCol - order + 1)
		y := float64(2*grayRow - order + 1)
		c.points[i] = complex(x, -y)
	}
}

func (c *Constellation) normalize() {
	var avgPower float64
	for _, p := range c.points {
		avgPower += real(p)*real(p) + imag(p)*imag(p)
	}
	avgPower /= float64(len(c.points))

	scale := complex(1.0/math.Sqrt(avgPower), 0)
	for i := range c.points {
		c.points[i] *= scale
	}
}

func (c *Constellation) Modulation() Modulation { return c.mod }

func (c *Constellation) BitsPerSymbol() int { return c.mod.BitsPerSymbol() }

// Points returns the constellation. Shared, read-only.
func (c *Constellation) Points() vlib.VectorC { return c.points }

// PointBit reports bit position b (0 = first transmitted) of the pattern
// carried by constellation point idx.
func (c *Constellation) PointBit(idx, b int) uint8 {
	return uint8(idx>>(c.mod.BitsPerSymbol()-1-b)) & 1
}

// ModulateBits maps a bit sequence to constellation symbols. The bit count
// must be a multiple of the bits per symbol.
func (c *Constellation) ModulateBits(bits []uint8) (vlib.VectorC, error) {
	bps := c.mod.BitsPerSymbol()
	if len(bits)%bps != 0 {
		return nil, fmt.Errorf("modem: %d bits not a multiple of %d", len(bits), bps)
	}
	symbols := make(vlib.VectorC, len(bits)/bps)
	for i := range symbols {
		idx := 0
		for _, b := range bits[i*bps : (i+1)*bps] {
			idx = idx<<1 | int(b&1)
		}
		symbols[i] = c.points[idx]
	}
	return symbols, nil
}

// HardDemap slices symbols to bits by minimum distance. The soft path goes
// through Demapper; this is kept for transmitter-side self checks.
func (c *Constellation) HardDemap(symbols vlib.VectorC) []uint8 {
	bps := c.mod.BitsPerSymbol()
	bits := make([]uint8, 0, symbols.Size()*bps)
	for _, s := range symbols {
		minDist := math.MaxFloat64
		minIdx := 0
		for i, p := range c.points {
			d := real(s-p)*real(s-p) + imag(s-p)*imag(s-p)
			if d < minDist {
				minDist = d
				minIdx = i
			}
		}
		for b := 0; b < bps; b++ {
			bits = append(bits, c.PointBit(minIdx, b))
		}
	}
	return bits
}
