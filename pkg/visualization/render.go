// Package visualization renders analysis results to disk: grayscale views
// of STEM images, decoded site overlays, and distance histograms.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"stemtools/internal/models"
)

// RenderImage converts pixel intensities to a 16-bit grayscale image,
// auto-scaled so the full intensity range maps onto [0, 65535].
func RenderImage(src models.Image) (image.Image, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return nil, fmt.Errorf("empty image (%dx%d)", src.Width, src.Height)
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range src.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewGray16(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			value := uint16(math.Max(0, math.Min(65535, (src.At(x, y)-min)/span*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// SaveImage renders an image and writes it as a PNG file.
func SaveImage(src models.Image, filename string) error {
	img, err := RenderImage(src)
	if err != nil {
		return err
	}
	return writePNG(img, filename)
}

// SaveSites renders an image with decoded atomic sites marked on top,
// lattice atoms in green and dopants in red.
func SaveSites(src models.Image, sites []models.Site, filename string) error {
	base, err := RenderImage(src)
	if err != nil {
		return err
	}

	img := image.NewRGBA(base.Bounds())
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			img.Set(x, y, base.At(x, y))
		}
	}

	for _, s := range sites {
		c := color.RGBA{0, 255, 0, 255}
		if s.Class != 0 {
			c = color.RGBA{255, 0, 0, 255}
		}
		markSite(img, int(math.Round(s.X)), int(math.Round(s.Y)), c)
	}
	return writePNG(img, filename)
}

// SaveStack writes each frame of an image stack as a numbered PNG in
// outputDir.
func SaveStack(stack models.ImageStack, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for i := 0; i < stack.Count; i++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.png", i))
		if err := SaveImage(stack.Frame(i), filename); err != nil {
			return err
		}
	}
	return nil
}

// markSite draws a small cross centered on (cx, cy), clipped to the image.
func markSite(img *image.RGBA, cx, cy int, c color.RGBA) {
	const arm = 2
	b := img.Bounds()
	for d := -arm; d <= arm; d++ {
		if x := cx + d; x >= b.Min.X && x < b.Max.X && cy >= b.Min.Y && cy < b.Max.Y {
			img.Set(x, cy, c)
		}
		if y := cy + d; y >= b.Min.Y && y < b.Max.Y && cx >= b.Min.X && cx < b.Max.X {
			img.Set(cx, y, c)
		}
	}
}

func writePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}
