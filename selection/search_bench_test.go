package selection

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/term"
)

// benchDesign builds a 3-factor quadratic design (9 terms, 511 subsets) over
// a deterministic point cloud.
func benchDesign(b *testing.B) (*design.Matrix, []float64) {
	b.Helper()

	factors := []string{"A", "B", "C"}
	var rows [][]float64
	var y []float64

	for i := 0; i < 24; i++ {
		a := math.Mod(float64(i)*1.3, 5)
		bb := math.Mod(float64(i)*2.7, 4)
		c := math.Mod(float64(i)*0.9, 3)
		rows = append(rows, []float64{a, bb, c})
		y = append(y, 2+3*a-bb*bb+0.5*a*c+math.Sin(float64(i)))
	}

	fm, err := design.NewFactorMatrix(factors, rows)
	if err != nil {
		b.Fatal(err)
	}
	dm, err := design.Build(fm, term.FullQuadratic(factors))
	if err != nil {
		b.Fatal(err)
	}
	return dm, y
}

func BenchmarkSearchAdjustedR2(b *testing.B) {
	dm, y := benchDesign(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(ctx, dm, y, NewAdjustedR2()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchMallowsCp(b *testing.B) {
	dm, y := benchDesign(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(ctx, dm, y, NewMallowsCp()); err != nil {
			b.Fatal(err)
		}
	}
}
