package channel_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/wiless/linksim/channel"
	"github.com/wiless/linksim/grid"
	"github.com/wiless/vlib"
)

func testGrid(t *testing.T) *grid.ResourceGrid {
	t.Helper()
	rg, err := grid.New(*grid.NewSetting())
	if err != nil {
		t.Fatal(err)
	}
	return rg
}

func onesGrid(rg *grid.ResourceGrid) []vlib.VectorC {
	tx := make(vlib.VectorC, rg.TotalElements())
	for i := range tx {
		tx[i] = 1
	}
	return []vlib.VectorC{tx}
}

func TestTapPowersNormalized(t *testing.T) {
	for _, profile := range []channel.ProfileType{channel.Exponential, channel.Uniform} {
		s := *channel.NewModelSetting()
		s.Type = profile
		powers := s.TapPowers(76)
		if len(powers) != s.NumTaps {
			t.Fatalf("%v: %d taps, expected %d", profile, len(powers), s.NumTaps)
		}
		if total := vlib.Sum(powers); math.Abs(total-1.0) > 1e-12 {
			t.Errorf("%v: tap powers sum to %v", profile, total)
		}
		for l, p := range powers {
			if p < 0 {
				t.Errorf("%v: negative tap power %v at %d", profile, p, l)
			}
		}
	}
}

func TestExponentialProfileDecays(t *testing.T) {
	s := *channel.NewModelSetting()
	powers := s.TapPowers(76)
	for l := 1; l < len(powers); l++ {
		if powers[l] > powers[l-1] {
			t.Fatalf("tap %d power %v exceeds tap %d power %v", l, powers[l], l-1, powers[l-1])
		}
	}
}

func TestDopplerCoeffRange(t *testing.T) {
	s := *channel.NewModelSetting()
	rho := s.DopplerCoeff(76, 6)
	if rho <= 0 || rho > 1 {
		t.Fatalf("doppler coefficient %v outside (0,1] for a slowly moving UE", rho)
	}
	// faster UE decorrelates faster
	s.UESpeedMps = 100
	if fast := s.DopplerCoeff(76, 6); fast >= rho {
		t.Errorf("faster UE should decorrelate more: %v vs %v", fast, rho)
	}
}

func TestZeroNoiseIsMultiplicative(t *testing.T) {
	rg := testGrid(t)
	ch, err := channel.New(rg, *channel.NewModelSetting(), 99)
	if err != nil {
		t.Fatal(err)
	}
	rx, h, err := ch.Apply(onesGrid(rg), 0)
	if err != nil {
		t.Fatal(err)
	}
	for idx := range rx[0] {
		if cmplx.Abs(rx[0][idx]-h[0][idx]) > 1e-12 {
			t.Fatalf("element %d: rx %v but h*tx %v", idx, rx[0][idx], h[0][idx])
		}
	}
}

func TestSameSeedReproduces(t *testing.T) {
	rg := testGrid(t)
	a, _ := channel.New(rg, *channel.NewModelSetting(), 7)
	b, _ := channel.New(rg, *channel.NewModelSetting(), 7)

	rxA, hA, err := a.Apply(onesGrid(rg), 0.1)
	if err != nil {
		t.Fatal(err)
	}
	rxB, hB, err := b.Apply(onesGrid(rg), 0.1)
	if err != nil {
		t.Fatal(err)
	}
	for idx := range rxA[0] {
		if rxA[0][idx] != rxB[0][idx] || hA[0][idx] != hB[0][idx] {
			t.Fatalf("element %d differs between identically seeded channels", idx)
		}
	}
}

func TestChannelVariesAcrossSymbols(t *testing.T) {
	rg := testGrid(t)
	ch, _ := channel.New(rg, *channel.NewModelSetting(), 23)
	_, h, err := ch.Apply(onesGrid(rg), 0)
	if err != nil {
		t.Fatal(err)
	}
	first := h[0][rg.Index(0, 0)]
	last := h[0][rg.Index(rg.NumOFDMSymbols()-1, 0)]
	if first == last {
		t.Error("fading channel should evolve across OFDM symbols")
	}
}

func TestApplyChecks(t *testing.T) {
	rg := testGrid(t)
	ch, _ := channel.New(rg, *channel.NewModelSetting(), 1)
	if _, _, err := ch.Apply([]vlib.VectorC{make(vlib.VectorC, 3)}, 0.1); err == nil {
		t.Error("wrong grid size should be rejected")
	}
	if _, _, err := ch.Apply(onesGrid(rg), -0.1); err == nil {
		t.Error("negative noise variance should be rejected")
	}

	bad := *channel.NewModelSetting()
	bad.NumTaps = 0
	if _, err := channel.New(rg, bad, 1); err == nil {
		t.Error("zero taps should be rejected")
	}
	bad.NumTaps = rg.NumSubcarriers() + 1
	if _, err := channel.New(rg, bad, 1); err == nil {
		t.Error("more taps than subcarriers should be rejected")
	}
}
