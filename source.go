package linksim

import "math/rand"

// BinarySource produces the pseudo-random information bits fed to the
// encoder. Seeded explicitly so a simulation run is reproducible end to end.
type BinarySource struct {
	rng *rand.Rand
}

func NewBinarySource(seed int64) *BinarySource {
	return &BinarySource{rng: rand.New(rand.NewSource(seed))}
}

func (s *BinarySource) Generate(n int) []uint8 {
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = uint8(s.rng.Intn(2))
	}
	return bits
}
