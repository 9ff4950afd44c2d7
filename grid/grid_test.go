package grid_test

import (
	"math/cmplx"
	"testing"

	"github.com/wiless/linksim/grid"
	"github.com/wiless/vlib"
)

func TestDefaultGridCounts(t *testing.T) {
	rg, err := grid.New(*grid.NewSetting())
	if err != nil {
		t.Fatal(err)
	}
	if rg.TotalElements() != 14*76 {
		t.Errorf("total elements %d, expected %d", rg.TotalElements(), 14*76)
	}
	if rg.NumPilotSymbols() != 2*76 {
		t.Errorf("pilot elements %d, expected %d", rg.NumPilotSymbols(), 2*76)
	}
	if rg.NumDataSymbols() != 12*76 {
		t.Errorf("data elements %d, expected %d", rg.NumDataSymbols(), 12*76)
	}
	want := float64(14*76) / float64(12*76)
	if got := rg.Overhead(); got != want {
		t.Errorf("overhead %v, expected %v", got, want)
	}
}

func TestRoles(t *testing.T) {
	s := *grid.NewSetting()
	s.NumGuardCarriers = [2]int{2, 1}
	rg, err := grid.New(s)
	if err != nil {
		t.Fatal(err)
	}
	if rg.Role(0, 0) != grid.Guard || rg.Role(0, 75) != grid.Guard {
		t.Error("edge subcarriers should be guards")
	}
	if rg.Role(2, 5) != grid.Pilot || rg.Role(11, 40) != grid.Pilot {
		t.Error("configured pilot symbols should carry pilots")
	}
	if rg.Role(0, 5) != grid.Data {
		t.Error("interior element of a non-pilot symbol should be data")
	}

	guards := 0
	for f := 0; f < 76; f++ {
		for tt := 0; tt < 14; tt++ {
			if rg.Role(tt, f) == grid.Guard {
				guards++
			}
		}
	}
	if guards != 3*14 {
		t.Errorf("guard count %d, expected %d", guards, 3*14)
	}
}

func TestPilotSequence(t *testing.T) {
	rg, err := grid.New(*grid.NewSetting())
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range rg.PilotValues() {
		if mag := cmplx.Abs(p); mag < 0.999 || mag > 1.001 {
			t.Fatalf("pilot %d magnitude %v, expected unit", i, mag)
		}
	}

	again, _ := grid.New(*grid.NewSetting())
	for i, p := range rg.PilotValues() {
		if again.PilotValues()[i] != p {
			t.Fatal("same seed should reproduce the pilot sequence")
		}
	}
}

func TestMapExtractRoundtrip(t *testing.T) {
	rg, err := grid.New(*grid.NewSetting())
	if err != nil {
		t.Fatal(err)
	}
	data := make(vlib.VectorC, rg.NumDataSymbols())
	for i := range data {
		data[i] = complex(float64(i), -float64(i))
	}
	g, err := rg.MapData(data)
	if err != nil {
		t.Fatal(err)
	}
	back, err := rg.ExtractData(g)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if back[i] != data[i] {
			t.Fatalf("data symbol %d changed: %v != %v", i, back[i], data[i])
		}
	}
	for i, idx := range rg.PilotIndices() {
		if g[idx] != rg.PilotValues()[i] {
			t.Fatalf("pilot %d not placed on the grid", i)
		}
	}
}

func TestInvalidSettings(t *testing.T) {
	bad := []grid.Setting{
		{NumOFDMSymbols: 0, NumSubcarriers: 76, PilotSymbolIndices: []int{0}},
		{NumOFDMSymbols: 14, NumSubcarriers: 76, PilotSymbolIndices: nil},
		{NumOFDMSymbols: 14, NumSubcarriers: 76, PilotSymbolIndices: []int{14}},
		{NumOFDMSymbols: 14, NumSubcarriers: 76, PilotSymbolIndices: []int{2, 2}},
		{NumOFDMSymbols: 14, NumSubcarriers: 76, PilotSymbolIndices: []int{2}, NumGuardCarriers: [2]int{40, 40}},
	}
	for i, s := range bad {
		if _, err := grid.New(s); err == nil {
			t.Errorf("setting %d should be rejected", i)
		}
	}
	all := grid.Setting{NumOFDMSymbols: 2, NumSubcarriers: 4, PilotSymbolIndices: []int{0, 1}}
	if _, err := grid.New(all); err == nil {
		t.Error("all-pilot grid should be rejected: no data elements")
	}
}

func TestExtractAt(t *testing.T) {
	rg, err := grid.New(*grid.NewSetting())
	if err != nil {
		t.Fatal(err)
	}
	values := make(vlib.VectorF, rg.TotalElements())
	for i := range values {
		values[i] = float64(i)
	}
	out := rg.ExtractAt(values, rg.DataIndices())
	for i, idx := range rg.DataIndices() {
		if out[i] != float64(idx) {
			t.Fatalf("gather mismatch at %d", i)
		}
	}
}
