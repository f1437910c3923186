package dedup

import (
	"math/rand"
	"strings"
)

// Basis is a fixed set of random projection hyperplanes. It is generated
// once per run and must not be regenerated mid-run: two signatures are only
// comparable when they came from the same basis.
type Basis struct {
	planes [][]float64
}

// NewBasis draws numHashes hyperplanes of the given dimension from a seeded
// source, so a fixed seed reproduces bucket assignments across runs.
func NewBasis(numHashes, dims int, seed int64) *Basis {
	rng := rand.New(rand.NewSource(seed))
	planes := make([][]float64, numHashes)
	for i := range planes {
		plane := make([]float64, dims)
		for j := range plane {
			plane[j] = rng.Float64()
		}
		planes[i] = plane
	}
	return &Basis{planes: planes}
}

// NumHashes returns the signature length in bits.
func (b *Basis) NumHashes() int {
	return len(b.planes)
}

// Signature maps a vector to its bucket key: one sign bit per hyperplane.
// Equal signatures mark duplicate candidates; unequal signatures carry no
// guarantee either way.
func (b *Basis) Signature(vec []float64) string {
	var sb strings.Builder
	sb.Grow(len(b.planes))
	for _, plane := range b.planes {
		projection := 0.0
		n := min(len(plane), len(vec))
		for i := 0; i < n; i++ {
			projection += plane[i] * vec[i]
		}
		if projection >= 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
