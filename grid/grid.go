// Resource grid geometry and pilot placement for a single-stream OFDM link.
// The grid partitions the time x frequency lattice into data, pilot and guard
// elements; the same Setting must be given to both the transmitter and the
// receiver so that the role assignment is identical on both sides.
package grid

import (
	"fmt"
	"math/rand"

	"github.com/wiless/vlib"
)

type Role int

var RoleNames = [...]string{
	"Data",
	"Pilot",
	"Guard",
}

func (r Role) String() string {
	if int(r) >= len(RoleNames) {
		return "Unknown!!"
	}
	return RoleNames[r]
}

const (
	Data Role = iota
	Pilot
	Guard
)

// Setting describes the resource grid geometry. PilotSymbolIndices lists the
// OFDM symbols fully occupied by pilots (kronecker pattern, single stream).
type Setting struct {
	NumOFDMSymbols     int
	NumSubcarriers     int
	CyclicPrefix       int
	PilotSymbolIndices []int
	NumGuardCarriers   [2]int
	PilotSeed          int64
}

func NewSetting() *Setting {
	result := new(Setting)
	result.SetDefault()
	return result
}

func (s *Setting) SetDefault() {
	s.NumOFDMSymbols = 14
	s.NumSubcarriers = 76
	s.CyclicPrefix = 6
	s.PilotSymbolIndices = []int{2, 11}
	s.NumGuardCarriers = [2]int{0, 0}
	s.PilotSeed = 42
}

// ResourceGrid is the immutable role map plus the known pilot sequence.
// Safe for concurrent use once constructed.
type ResourceGrid struct {
	setting     Setting
	roles       []Role
	dataIndex   vlib.VectorI // grid indices of data elements, transmit order
	pilotIndex  vlib.VectorI // grid indices of pilot elements
	pilotValues vlib.VectorC // known unit-magnitude pilot symbols, parallel to pilotIndex
}

func New(s Setting) (*ResourceGrid, error) {
	if s.NumOFDMSymbols <= 0 || s.NumSubcarriers <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", s.NumOFDMSymbols, s.NumSubcarriers)
	}
	if s.CyclicPrefix < 0 {
		return nil, fmt.Errorf("grid: negative cyclic prefix %d", s.CyclicPrefix)
	}
	if s.NumGuardCarriers[0] < 0 || s.NumGuardCarriers[1] < 0 ||
		s.NumGuardCarriers[0]+s.NumGuardCarriers[1] >= s.NumSubcarriers {
		return nil, fmt.Errorf("grid: guard carriers %v exceed %d subcarriers", s.NumGuardCarriers, s.NumSubcarriers)
	}
	if len(s.PilotSymbolIndices) == 0 {
		return nil, fmt.Errorf("grid: no pilot symbols configured")
	}

	rg := new(ResourceGrid)
	rg.setting = s
	rg.setting.PilotSymbolIndices = append([]int(nil), s.PilotSymbolIndices...)

	T, F := s.NumOFDMSymbols, s.NumSubcarriers
	pilotSym := make(map[int]bool)
	for _, t := range s.PilotSymbolIndices {
		if t < 0 || t >= T {
			return nil, fmt.Errorf("grid: pilot symbol index %d outside [0,%d)", t, T)
		}
		if pilotSym[t] {
			return nil, fmt.Errorf("grid: duplicate pilot symbol index %d", t)
		}
		pilotSym[t] = true
	}

	rg.roles = make([]Role, T*F)
	for t := 0; t < T; t++ {
		for f := 0; f < F; f++ {
			idx := t*F + f
			switch {
			case f < s.NumGuardCarriers[0] || f >= F-s.NumGuardCarriers[1]:
				rg.roles[idx] = Guard
			case pilotSym[t]:
				rg.roles[idx] = Pilot
				rg.pilotIndex.AppendAtEnd(idx)
			default:
				rg.roles[idx] = Data
				rg.dataIndex.AppendAtEnd(idx)
			}
		}
	}

	if rg.pilotIndex.Size() == 0 {
		return nil, fmt.Errorf("grid: configuration yields no pilot elements")
	}
	if rg.dataIndex.Size() == 0 {
		return nil, fmt.Errorf("grid: configuration yields no data elements")
	}

	rg.pilotValues = pilotSequence(rg.pilotIndex.Size(), s.PilotSeed)
	return rg, nil
}

// pilotSequence draws a reproducible unit-magnitude QPSK sequence.
func pilotSequence(n int, seed int64) vlib.VectorC {
	rng := rand.New(rand.NewSource(seed))
	result := make(vlib.VectorC, n)
	isqrt2 := complex(0.7071067811865476, 0.7071067811865476)
	rot := [4]complex128{1, complex(0, 1), -1, complex(0, -1)}
	for i := 0; i < n; i++ {
		result[i] = isqrt2 * rot[rng.Intn(4)]
	}
	return result
}

func (rg *ResourceGrid) Setting() Setting { return rg.setting }

func (rg *ResourceGrid) NumOFDMSymbols() int { return rg.setting.NumOFDMSymbols }
func (rg *ResourceGrid) NumSubcarriers() int { return rg.setting.NumSubcarriers }

// Index flattens a (symbol, subcarrier) coordinate, time-major.
func (rg *ResourceGrid) Index(t, f int) int { return t*rg.setting.NumSubcarriers + f }

func (rg *ResourceGrid) Role(t, f int) Role { return rg.roles[rg.Index(t, f)] }

func (rg *ResourceGrid) TotalElements() int { return len(rg.roles) }

// NumDataSymbols is the number of data-carrying resource elements.
func (rg *ResourceGrid) NumDataSymbols() int { return rg.dataIndex.Size() }

func (rg *ResourceGrid) NumPilotSymbols() int { return rg.pilotIndex.Size() }

// Overhead is the ratio of all resource elements to data-carrying ones; the
// noise-variance translation uses it to account for pilot and guard power.
func (rg *ResourceGrid) Overhead() float64 {
	return float64(rg.TotalElements()) / float64(rg.NumDataSymbols())
}

// DataIndices returns the flattened grid indices of data elements in transmit
// order. The returned vector is shared and must not be modified.
func (rg *ResourceGrid) DataIndices() vlib.VectorI { return rg.dataIndex }

// PilotIndices returns the flattened grid indices of pilot elements. Shared,
// read-only.
func (rg *ResourceGrid) PilotIndices() vlib.VectorI { return rg.pilotIndex }

// PilotValues returns the known transmitted pilot symbols, parallel to
// PilotIndices. Shared, read-only.
func (rg *ResourceGrid) PilotValues() vlib.VectorC { return rg.pilotValues }

// MapData places the modulated data symbols onto a fresh grid together with
// the pilot sequence. Guard elements stay zero.
func (rg *ResourceGrid) MapData(data vlib.VectorC) (vlib.VectorC, error) {
	if data.Size() != rg.dataIndex.Size() {
		return nil, fmt.Errorf("grid: expected %d data symbols, got %d", rg.dataIndex.Size(), data.Size())
	}
	g := make(vlib.VectorC, rg.TotalElements())
	for i, idx := range rg.dataIndex {
		g[idx] = data[i]
	}
	for i, idx := range rg.pilotIndex {
		g[idx] = rg.pilotValues[i]
	}
	return g, nil
}

// ExtractData pulls the data elements out of a full grid in transmit order.
func (rg *ResourceGrid) ExtractData(g vlib.VectorC) (vlib.VectorC, error) {
	if g.Size() != rg.TotalElements() {
		return nil, fmt.Errorf("grid: expected %d grid elements, got %d", rg.TotalElements(), g.Size())
	}
	data := make(vlib.VectorC, rg.dataIndex.Size())
	for i, idx := range rg.dataIndex {
		data[i] = g[idx]
	}
	return data, nil
}

// ExtractAt gathers arbitrary grid indices; used by the receiver to pull the
// per-element effective noise at data positions.
func (rg *ResourceGrid) ExtractAt(values vlib.VectorF, indices vlib.VectorI) vlib.VectorF {
	out := make(vlib.VectorF, indices.Size())
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}
