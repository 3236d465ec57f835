// Package strain estimates the local deformation between two corresponding
// sets of atomic coordinates. An affine map is fit by least squares and
// split by polar decomposition into translation, strain, and rotation.
package strain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eigenvalues of the fitted stretch below this threshold are treated as a
// degenerate deformation.
const singularTol = 1e-12

var (
	// ErrMismatch reports reference and target sets of unequal length.
	ErrMismatch = errors.New("strain: coordinate sets have unequal length")

	// ErrDegenerate reports a numerically singular deformation.
	ErrDegenerate = errors.New("strain: degenerate deformation")
)

// Transform is the polar decomposition of an estimated affine map between
// two point sets: target ≈ Rotation * Strain * reference + Translation.
type Transform struct {
	// Translation is the 2-vector offset between the point sets.
	Translation *mat.VecDense

	// Strain is the symmetric positive-definite stretch component.
	Strain *mat.SymDense

	// Rotation is the residual orthogonal component.
	Rotation *mat.Dense
}

// EstimateTransform fits the affine map taking ref onto tgt and decomposes
// its linear part. Both inputs are n x 2 matrices of planar coordinates in
// one-to-one correspondence by row index.
//
// Unequal row counts usually mean the defect structure is broken by large
// strain, or that the neighbor search radius needs adjustment; this is
// reported as ErrMismatch so the caller can skip the site. A singular
// stretch factor is reported as ErrDegenerate rather than propagating NaNs.
func EstimateTransform(ref, tgt *mat.Dense) (*Transform, error) {
	nRef, cRef := ref.Dims()
	nTgt, cTgt := tgt.Dims()
	if cRef != 2 || cTgt != 2 {
		return nil, fmt.Errorf("strain: expected n x 2 coordinates, got %d and %d columns", cRef, cTgt)
	}
	if nRef != nTgt {
		return nil, fmt.Errorf("%w (%d vs %d): the defect structure is likely broken due to large strain, or the search radius needs checking",
			ErrMismatch, nRef, nTgt)
	}
	if nRef < 3 {
		return nil, fmt.Errorf("strain: need at least 3 point pairs to fit an affine map, got %d", nRef)
	}

	// Each point pair contributes two rows to the design matrix, one per
	// coordinate of the affine map (tx, ty, f11, f12, f21, f22).
	design := mat.NewDense(2*nRef, 6, nil)
	rhs := mat.NewVecDense(2*nRef, nil)
	for i := 0; i < nRef; i++ {
		x, y := ref.At(i, 0), ref.At(i, 1)
		design.SetRow(2*i, []float64{1, 0, x, y, 0, 0})
		design.SetRow(2*i+1, []float64{0, 1, 0, 0, x, y})
		rhs.SetVec(2*i, tgt.At(i, 0))
		rhs.SetVec(2*i+1, tgt.At(i, 1))
	}

	params, err := solveLeastSquares(design, rhs)
	if err != nil {
		return nil, err
	}

	t := mat.NewVecDense(2, []float64{params.AtVec(0), params.AtVec(1)})
	f := mat.NewDense(2, 2, []float64{
		params.AtVec(2), params.AtVec(3),
		params.AtVec(4), params.AtVec(5),
	})

	e, r, err := polarDecompose(f)
	if err != nil {
		return nil, err
	}
	return &Transform{Translation: t, Strain: e, Rotation: r}, nil
}

// solveLeastSquares solves the overdetermined system a*x = b through the
// Moore-Penrose pseudo-inverse, x = V * inv(S) * Uᵀ * b.
func solveLeastSquares(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("strain: SVD of the design matrix failed")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	// A rank-deficient design means the reference points are collinear or
	// coincident and the affine parameters are not identifiable.
	tol := float64(len(s)) * s[0] * 1e-15
	for _, sv := range s {
		if sv <= tol {
			return nil, fmt.Errorf("%w: rank-deficient design matrix (reference points collinear?)", ErrDegenerate)
		}
	}

	_, cols := a.Dims()
	proj := mat.NewVecDense(cols, nil)
	proj.MulVec(u.T(), b)
	for i := 0; i < cols; i++ {
		proj.SetVec(i, proj.AtVec(i)/s[i])
	}

	x := mat.NewVecDense(cols, nil)
	x.MulVec(&v, proj)
	return x, nil
}

// polarDecompose factors the linear map f into f = r * e with e symmetric
// positive-definite and r orthogonal. e is the matrix square root of fᵀf,
// built from its eigendecomposition.
func polarDecompose(f *mat.Dense) (*mat.SymDense, *mat.Dense, error) {
	var ftf mat.Dense
	ftf.Mul(f.T(), f)
	sym := mat.NewSymDense(2, []float64{
		ftf.At(0, 0), ftf.At(0, 1),
		ftf.At(1, 0), ftf.At(1, 1),
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, nil, fmt.Errorf("%w: eigendecomposition failed", ErrDegenerate)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	for _, w := range vals {
		if w <= singularTol {
			return nil, nil, fmt.Errorf("%w: singular strain tensor (eigenvalue %v)", ErrDegenerate, w)
		}
	}

	// e = V * diag(sqrt(w)) * Vᵀ
	sqrtW := mat.NewDiagDense(2, []float64{math.Sqrt(vals[0]), math.Sqrt(vals[1])})
	var tmp, eDense mat.Dense
	tmp.Mul(&vecs, sqrtW)
	eDense.Mul(&tmp, vecs.T())
	e := mat.NewSymDense(2, []float64{
		eDense.At(0, 0), 0.5 * (eDense.At(0, 1) + eDense.At(1, 0)),
		0.5 * (eDense.At(0, 1) + eDense.At(1, 0)), eDense.At(1, 1),
	})

	eInv, err := invert2x2(e)
	if err != nil {
		return nil, nil, err
	}
	r := mat.NewDense(2, 2, nil)
	r.Mul(f, eInv)
	return e, r, nil
}

// invert2x2 inverts a 2x2 symmetric matrix directly.
func invert2x2(m *mat.SymDense) (*mat.Dense, error) {
	a, b := m.At(0, 0), m.At(0, 1)
	c, d := m.At(1, 0), m.At(1, 1)
	det := a*d - b*c
	if math.Abs(det) <= singularTol {
		return nil, fmt.Errorf("%w: strain tensor is not invertible", ErrDegenerate)
	}
	return mat.NewDense(2, 2, []float64{d / det, -b / det, -c / det, a / det}), nil
}
