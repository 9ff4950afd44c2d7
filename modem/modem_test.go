package modem_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/wiless/linksim/modem"
	"github.com/wiless/vlib"
)

func TestUnitPower(t *testing.T) {
	for _, bps := range []int{2, 4, 6} {
		c, err := modem.NewConstellation(bps)
		if err != nil {
			t.Fatal(err)
		}
		var power float64
		for _, p := range c.Points() {
			power += real(p)*real(p) + imag(p)*imag(p)
		}
		power /= float64(len(c.Points()))
		if math.Abs(power-1.0) > 1e-12 {
			t.Errorf("%v average power %v, expected 1", c.Modulation(), power)
		}
	}
}

func TestUnsupportedModulation(t *testing.T) {
	for _, bps := range []int{0, 1, 3, 8} {
		if _, err := modem.NewConstellation(bps); err == nil {
			t.Errorf("bits per symbol %d should be rejected", bps)
		}
	}
}

func TestModulateHardDemapRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, bps := range []int{2, 4, 6} {
		c, err := modem.NewConstellation(bps)
		if err != nil {
			t.Fatal(err)
		}
		bits := make([]uint8, 30*bps)
		for i := range bits {
			bits[i] = uint8(rng.Intn(2))
		}
		symbols, err := c.ModulateBits(bits)
		if err != nil {
			t.Fatal(err)
		}
		back := c.HardDemap(symbols)
		for i := range bits {
			if back[i] != bits[i] {
				t.Fatalf("%v bit %d flipped on a clean roundtrip", c.Modulation(), i)
			}
		}
	}
}

func TestModulateLengthCheck(t *testing.T) {
	c, _ := modem.NewConstellation(4)
	if _, err := c.ModulateBits(make([]uint8, 7)); err == nil {
		t.Error("odd bit count should be rejected")
	}
}

func TestLLRSigns(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, bps := range []int{2, 4, 6} {
		c, err := modem.NewConstellation(bps)
		if err != nil {
			t.Fatal(err)
		}
		d := modem.NewDemapper(c)

		bits := make([]uint8, 20*bps)
		for i := range bits {
			bits[i] = uint8(rng.Intn(2))
		}
		symbols, _ := c.ModulateBits(bits)
		n0 := make(vlib.VectorF, symbols.Size())
		for i := range n0 {
			n0[i] = 0.05
		}
		llr, err := d.LLR(symbols, n0)
		if err != nil {
			t.Fatal(err)
		}
		// positive LLR is a hard zero
		for i, v := range llr {
			if bits[i] == 0 && v <= 0 {
				t.Fatalf("%v bit %d=0 got llr %v", c.Modulation(), i, v)
			}
			if bits[i] == 1 && v >= 0 {
				t.Fatalf("%v bit %d=1 got llr %v", c.Modulation(), i, v)
			}
		}
	}
}

func TestLLRFiniteAtZeroNoise(t *testing.T) {
	c, _ := modem.NewConstellation(2)
	d := modem.NewDemapper(c)

	bits := []uint8{0, 1, 1, 0}
	symbols, _ := c.ModulateBits(bits)
	n0 := make(vlib.VectorF, symbols.Size()) // all zero
	llr, err := d.LLR(symbols, n0)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range llr {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("llr %d not finite: %v", i, v)
		}
		if math.Abs(v) > 40 {
			t.Fatalf("llr %d exceeds clamp: %v", i, v)
		}
	}
}

func TestLLRLengthCheck(t *testing.T) {
	c, _ := modem.NewConstellation(2)
	d := modem.NewDemapper(c)
	if _, err := d.LLR(make(vlib.VectorC, 4), make(vlib.VectorF, 3)); err == nil {
		t.Error("mismatched noise vector should be rejected")
	}
}
