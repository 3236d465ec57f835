// Package imaging prepares STEM images for neural-network decoding:
// intensity normalization, bicubic resizing, and selection of an image
// size that matches both the physical pixel density the network was
// trained at and its downsampling depth.
package imaging

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"stemtools/internal/models"
)

const (
	// DefaultPx2Ang is the pixel-to-angstrom ratio the decoding networks
	// are trained at
	DefaultPx2Ang = 0.128

	// DefaultDivisibleBy is 2^n for a network with n max-pooling layers
	DefaultDivisibleBy = 8

	// densityStep is the decrement applied to the effective pixel density
	// while searching for a divisible target size
	densityStep = 0.001

	// maxSearchIterations bounds the density search; the search is not
	// guaranteed to converge for arbitrary inputs
	maxSearchIterations = 100000
)

// ErrNoConvergence reports that no divisible image size was found within
// the bounded density search.
var ErrNoConvergence = errors.New("imaging: no divisible image size found within iteration bound")

// Normalize scales pixel intensities into [0, 1] when the maximum exceeds
// 255, i.e. when the image still carries raw detector counts. Images
// already in a display range are returned unchanged.
func Normalize(img models.Image) models.Image {
	if len(img.Pix) == 0 {
		return img
	}
	max := floats.Max(img.Pix)
	if max <= 255 {
		return img
	}
	out := models.NewImage(img.Width, img.Height)
	copy(out.Pix, img.Pix)
	floats.Scale(1/max, out.Pix)
	return out
}

// OptimizeSize normalizes an image and resizes it to the square dimension
// best suited for network decoding. scanSize is the physical size of the
// scan in picometers, px2ang the pixel density the network expects, and
// divisibleBy the downsampling factor the output dimension must divide by.
//
// The target dimension is the current size scaled by the ratio of desired
// to actual pixel density. When the rounded target is not divisible, the
// effective density is perturbed downward in small fixed steps until it
// is. The search is bounded: inputs for which no divisible size is found
// within the bound fail with ErrNoConvergence instead of looping forever.
func OptimizeSize(img models.Image, scanSize, px2ang float64, divisibleBy int) (models.Image, error) {
	if scanSize <= 0 {
		return models.Image{}, fmt.Errorf("scan size must be positive, got %v", scanSize)
	}
	if divisibleBy <= 0 {
		return models.Image{}, fmt.Errorf("divisor must be positive, got %d", divisibleBy)
	}

	img = Normalize(img)

	size := img.Width
	density := float64(size) / scanSize
	target := math.Round(float64(size) * px2ang / density)
	for iter := 0; int(target)%divisibleBy != 0; iter++ {
		if iter >= maxSearchIterations {
			return models.Image{}, fmt.Errorf("%w after %d steps (size %d, scan size %v)",
				ErrNoConvergence, maxSearchIterations, size, scanSize)
		}
		density -= densityStep
		if density <= 0 {
			return models.Image{}, fmt.Errorf("%w: density search exhausted (size %d, scan size %v)",
				ErrNoConvergence, size, scanSize)
		}
		target = math.Round(float64(size) * px2ang / density)
	}

	n := int(target)
	if n <= 0 {
		return models.Image{}, fmt.Errorf("degenerate target size %d for image of size %d", n, size)
	}

	if n != img.Width || n != img.Height {
		img = Resize(img, n, n)
	}
	fmt.Printf("Image resized to %d by %d\n", n, n)
	return img, nil
}
