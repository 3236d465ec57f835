package visualization

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"stemtools/internal/models"
)

func gradient(w, h int) models.Image {
	img := models.NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = float64(i)
	}
	return img
}

// TestRenderImageScaling verifies the auto-scaled grayscale mapping
func TestRenderImageScaling(t *testing.T) {
	src := gradient(4, 4)
	img, err := RenderImage(src)
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected *image.Gray16, got %T", img)
	}
	if gray.Gray16At(0, 0).Y != 0 {
		t.Errorf("Expected minimum intensity to map to 0, got %d", gray.Gray16At(0, 0).Y)
	}
	if gray.Gray16At(3, 3).Y != 65535 {
		t.Errorf("Expected maximum intensity to map to 65535, got %d", gray.Gray16At(3, 3).Y)
	}
}

// TestRenderImageFlat verifies that a constant image does not divide by zero
func TestRenderImageFlat(t *testing.T) {
	src := models.NewImage(3, 3)
	for i := range src.Pix {
		src.Pix[i] = 7
	}
	if _, err := RenderImage(src); err != nil {
		t.Fatalf("RenderImage failed on a flat image: %v", err)
	}
}

// TestRenderImageEmpty verifies rejection of zero-sized images
func TestRenderImageEmpty(t *testing.T) {
	if _, err := RenderImage(models.Image{}); err == nil {
		t.Error("Expected an error for an empty image")
	}
}

// TestSaveSites verifies that the overlay file is written and decodable
func TestSaveSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.png")
	src := gradient(16, 16)
	sites := []models.Site{
		{X: 4, Y: 4, Class: 0},
		{X: 12, Y: 12, Class: 1},
	}

	if err := SaveSites(src, sites, path); err != nil {
		t.Fatalf("SaveSites failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16 output, got %v", img.Bounds())
	}
}

// TestSaveStack verifies per-frame output files
func TestSaveStack(t *testing.T) {
	dir := t.TempDir()
	stack := models.ImageStack{
		Data:   make([]float64, 2*4*4),
		Count:  2,
		Width:  4,
		Height: 4,
	}
	for i := range stack.Data {
		stack.Data[i] = float64(i)
	}

	if err := SaveStack(stack, dir); err != nil {
		t.Fatalf("SaveStack failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		name := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("Expected frame file %s: %v", name, err)
		}
	}
}

// TestSaveHistogram verifies histogram output for a plausible distance set
func TestSaveHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.png")
	values := []float64{1.4, 1.42, 1.43, 1.41, 1.45, 1.38, 1.44, 1.42}

	if err := SaveHistogram(values, 5, "Nearest-neighbor distances", "Distance (A)", path); err != nil {
		t.Fatalf("SaveHistogram failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected histogram file: %v", err)
	}

	if err := SaveHistogram(nil, 5, "", "", path); err == nil {
		t.Error("Expected an error for an empty value set")
	}
}
