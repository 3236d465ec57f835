package strain

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// hexagonalPatch returns a small honeycomb-like reference patch
func hexagonalPatch() *mat.Dense {
	return mat.NewDense(7, 2, []float64{
		0, 0,
		1.42, 0,
		2.13, 1.23,
		1.42, 2.46,
		0, 2.46,
		-0.71, 1.23,
		0.71, 1.23,
	})
}

// applyTransform maps each row of ref through tgt = R*E*ref + t
func applyTransform(ref *mat.Dense, r, e *mat.Dense, t []float64) *mat.Dense {
	n, _ := ref.Dims()
	var f mat.Dense
	f.Mul(r, e)

	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x, y := ref.At(i, 0), ref.At(i, 1)
		out.Set(i, 0, f.At(0, 0)*x+f.At(0, 1)*y+t[0])
		out.Set(i, 1, f.At(1, 0)*x+f.At(1, 1)*y+t[1])
	}
	return out
}

func rotation(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(2, 2, []float64{c, -s, s, c})
}

// TestEstimateTransformRoundTrip applies a known transform to a point set
// and verifies that its components are recovered
func TestEstimateTransformRoundTrip(t *testing.T) {
	const tol = 1e-9

	cases := []struct {
		name  string
		theta float64
		e     *mat.Dense
		trans []float64
	}{
		{"identity", 0, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []float64{0, 0}},
		{"translation only", 0, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []float64{3.5, -1.2}},
		{"rotation", 0.3, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []float64{0.5, 0.5}},
		{"uniform strain", 0.1, mat.NewDense(2, 2, []float64{1.05, 0, 0, 1.05}), []float64{-2, 4}},
		{"shear strain", -0.2, mat.NewDense(2, 2, []float64{1.04, 0.02, 0.02, 0.97}), []float64{1, 1}},
	}

	ref := hexagonalPatch()
	for _, tc := range cases {
		r0 := rotation(tc.theta)
		tgt := applyTransform(ref, r0, tc.e, tc.trans)

		tr, err := EstimateTransform(ref, tgt)
		if err != nil {
			t.Errorf("%s: EstimateTransform failed: %v", tc.name, err)
			continue
		}

		for i := 0; i < 2; i++ {
			if math.Abs(tr.Translation.AtVec(i)-tc.trans[i]) > tol {
				t.Errorf("%s: translation[%d] = %v, expected %v",
					tc.name, i, tr.Translation.AtVec(i), tc.trans[i])
			}
			for j := 0; j < 2; j++ {
				if math.Abs(tr.Strain.At(i, j)-tc.e.At(i, j)) > tol {
					t.Errorf("%s: strain[%d,%d] = %v, expected %v",
						tc.name, i, j, tr.Strain.At(i, j), tc.e.At(i, j))
				}
				if math.Abs(tr.Rotation.At(i, j)-r0.At(i, j)) > tol {
					t.Errorf("%s: rotation[%d,%d] = %v, expected %v",
						tc.name, i, j, tr.Rotation.At(i, j), r0.At(i, j))
				}
			}
		}
	}
}

// TestEstimateTransformProperties verifies the structural guarantees of the
// decomposition: symmetric positive-definite strain, orthogonal rotation
func TestEstimateTransformProperties(t *testing.T) {
	const tol = 1e-9

	ref := hexagonalPatch()
	r0 := rotation(0.7)
	e0 := mat.NewDense(2, 2, []float64{1.1, 0.05, 0.05, 0.9})
	tgt := applyTransform(ref, r0, e0, []float64{0.3, -0.6})

	tr, err := EstimateTransform(ref, tgt)
	if err != nil {
		t.Fatalf("EstimateTransform failed: %v", err)
	}

	if math.Abs(tr.Strain.At(0, 1)-tr.Strain.At(1, 0)) > tol {
		t.Error("Strain tensor is not symmetric")
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(tr.Strain, false); !ok {
		t.Fatal("Eigendecomposition of the strain tensor failed")
	}
	for _, w := range eig.Values(nil) {
		if w <= 0 {
			t.Errorf("Strain tensor has non-positive eigenvalue %v", w)
		}
	}

	// R^T R must be the identity.
	var rtr mat.Dense
	rtr.Mul(tr.Rotation.T(), tr.Rotation)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rtr.At(i, j)-want) > tol {
				t.Errorf("Rotation is not orthogonal: (RᵀR)[%d,%d] = %v", i, j, rtr.At(i, j))
			}
		}
	}
}

// TestEstimateTransformMismatch verifies that unequal point sets are
// rejected with a diagnostic instead of a crash
func TestEstimateTransformMismatch(t *testing.T) {
	ref := hexagonalPatch()
	tgt := mat.NewDense(4, 2, nil)

	tr, err := EstimateTransform(ref, tgt)
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("Expected ErrMismatch, got %v", err)
	}
	if tr != nil {
		t.Error("Expected no result on mismatched inputs")
	}
}

// TestEstimateTransformDegenerate verifies explicit failure for collinear
// reference points and for a collapsed target
func TestEstimateTransformDegenerate(t *testing.T) {
	// Collinear reference: the affine parameters are not identifiable.
	ref := mat.NewDense(5, 2, []float64{0, 0, 1, 0, 2, 0, 3, 0, 4, 0})
	tgt := mat.NewDense(5, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4})
	if _, err := EstimateTransform(ref, tgt); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Expected ErrDegenerate for collinear reference, got %v", err)
	}

	// All target points coincide, so F is the zero map and E is singular.
	ref = hexagonalPatch()
	n, _ := ref.Dims()
	tgt = mat.NewDense(n, 2, nil)
	if _, err := EstimateTransform(ref, tgt); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Expected ErrDegenerate for collapsed target, got %v", err)
	}
}

// TestEstimateTransformTooFewPoints verifies the minimum pair count
func TestEstimateTransformTooFewPoints(t *testing.T) {
	ref := mat.NewDense(2, 2, []float64{0, 0, 1, 0})
	tgt := mat.NewDense(2, 2, []float64{0, 0, 1, 0})
	if _, err := EstimateTransform(ref, tgt); err == nil {
		t.Error("Expected an error for fewer than 3 point pairs")
	}
}
