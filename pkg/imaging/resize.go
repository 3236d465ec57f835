package imaging

import (
	"math"

	"stemtools/internal/models"
)

// Resize scales an image to width x height using bicubic (Catmull-Rom)
// interpolation. Border samples are clamped to the image edge.
func Resize(img models.Image, width, height int) models.Image {
	out := models.NewImage(width, height)
	xScale := float64(img.Width) / float64(width)
	yScale := float64(img.Height) / float64(height)

	for y := 0; y < height; y++ {
		// Map the destination pixel center back into the source grid.
		srcY := (float64(y)+0.5)*yScale - 0.5
		y0 := int(math.Floor(srcY))
		fy := srcY - float64(y0)

		for x := 0; x < width; x++ {
			srcX := (float64(x)+0.5)*xScale - 0.5
			x0 := int(math.Floor(srcX))
			fx := srcX - float64(x0)

			var sum float64
			for j := -1; j <= 2; j++ {
				wy := cubicWeight(float64(j) - fy)
				if wy == 0 {
					continue
				}
				sy := clamp(y0+j, 0, img.Height-1)
				for i := -1; i <= 2; i++ {
					wx := cubicWeight(float64(i) - fx)
					if wx == 0 {
						continue
					}
					sx := clamp(x0+i, 0, img.Width-1)
					sum += wx * wy * img.At(sx, sy)
				}
			}
			out.Set(x, y, sum)
		}
	}
	return out
}

// cubicWeight is the Catmull-Rom convolution kernel (a = -0.5).
func cubicWeight(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
