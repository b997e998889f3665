package testutil

import (
	"math/rand"

	"github.com/banshee-data/georaster/internal/udtf"
)

// Points is an (x, y, z) sample fixture.
type Points struct {
	X, Y, Z []float64
}

// Len returns the number of samples.
func (p Points) Len() int { return len(p.Z) }

// Add appends one sample.
func (p *Points) Add(x, y, z float64) {
	p.X = append(p.X, x)
	p.Y = append(p.Y, y)
	p.Z = append(p.Z, z)
}

// Columns returns the samples as non-null input columns.
func (p Points) Columns() (x, y, z *udtf.Column[float64]) {
	return udtf.NewColumn(p.X), udtf.NewColumn(p.Y), udtf.NewColumn(p.Z)
}

// Shuffled returns a copy of p with its rows permuted by seed.
func (p Points) Shuffled(seed int64) Points {
	rng := rand.New(rand.NewSource(seed))
	out := Points{
		X: append([]float64(nil), p.X...),
		Y: append([]float64(nil), p.Y...),
		Z: append([]float64(nil), p.Z...),
	}
	rng.Shuffle(out.Len(), func(i, j int) {
		out.X[i], out.X[j] = out.X[j], out.X[i]
		out.Y[i], out.Y[j] = out.Y[j], out.Y[i]
		out.Z[i], out.Z[j] = out.Z[j], out.Z[i]
	})
	return out
}

// RandomPoints returns n samples uniform over [xMin, xMax) x [yMin, yMax)
// with z uniform over [0, zMax). The same seed yields the same points.
func RandomPoints(seed int64, n int, xMin, xMax, yMin, yMax, zMax float64) Points {
	rng := rand.New(rand.NewSource(seed))
	p := Points{
		X: make([]float64, n),
		Y: make([]float64, n),
		Z: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p.X[i] = xMin + rng.Float64()*(xMax-xMin)
		p.Y[i] = yMin + rng.Float64()*(yMax-yMin)
		p.Z[i] = rng.Float64() * zMax
	}
	return p
}
