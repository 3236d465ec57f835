// Package analysis ties the loaders, image preparation, and statistics
// together into a single-shot analysis of one defect library file.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"stemtools/internal/models"
	"stemtools/pkg/config"
	"stemtools/pkg/container"
	"stemtools/pkg/imaging"
	"stemtools/pkg/lattice"
	"stemtools/pkg/neighbors"
	"stemtools/pkg/strain"
	"stemtools/pkg/visualization"
)

// Result holds the outputs of a library analysis run.
type Result struct {
	// Image is the normalized, network-ready image
	Image models.Image

	// Sites are the decoded atomic sites, lattice atoms first
	Sites []models.Site

	// MeanDistance and StdevDistance summarize the nearest-neighbor
	// distances over all sites
	MeanDistance  float64
	StdevDistance float64

	// Distances are the deduplicated nearest-neighbor pair distances
	Distances []float64
}

// Analyzer runs the defect library analysis pipeline.
type Analyzer struct {
	cfg     *config.Config
	species lattice.SpeciesMap
}

// NewAnalyzer creates an analyzer from a configuration.
func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		species: cfg.SpeciesMap(),
	}
}

// Run analyzes a single defect library file: it loads the image and the
// decoded coordinates, resizes the image for network decoding, and computes
// nearest-neighbor distance statistics over the sites. When the output
// directory is configured, the site overlay and the distance histogram are
// written there.
func (a *Analyzer) Run(libraryPath string) (*Result, error) {
	fmt.Println("Step 1: Loading defect library...")
	lib, err := container.LoadLibrary(libraryPath, &a.species)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	fmt.Println("Step 2: Preparing image...")
	img, err := imaging.OptimizeSize(lib.Image, lib.ScanSize, a.cfg.Imaging.Px2Ang, a.cfg.Imaging.DivisibleBy)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	fmt.Println("Step 3: Computing nearest-neighbor statistics...")
	distances, err := neighbors.Distances(lib.Sites)
	if err != nil {
		return nil, fmt.Errorf("failed to compute distances: %w", err)
	}
	mean := stat.Mean(distances, nil)
	stdev := stat.PopStdDev(distances, nil)
	fmt.Printf("Nearest-neighbor distance: %.3f +/- %.3f\n", mean, stdev)

	result := &Result{
		Image:         img,
		Sites:         lib.Sites,
		MeanDistance:  mean,
		StdevDistance: stdev,
		Distances:     distances,
	}

	if a.cfg.Output.Dir != "" {
		if err := a.writeArtifacts(lib, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CompareStructures estimates the deformation between a reference structure
// and an observed one, both n x 2 coordinate matrices in row correspondence.
func (a *Analyzer) CompareStructures(ref, observed *mat.Dense) (*strain.Transform, error) {
	return strain.EstimateTransform(ref, observed)
}

// writeArtifacts saves the overlay and histogram into the output directory.
func (a *Analyzer) writeArtifacts(lib *container.Library, result *Result) error {
	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if a.cfg.Output.SaveOverlays {
		path := filepath.Join(a.cfg.Output.Dir, "sites.png")
		if err := visualization.SaveSites(lib.Image, result.Sites, path); err != nil {
			return fmt.Errorf("failed to save site overlay: %w", err)
		}
	}

	path := filepath.Join(a.cfg.Output.Dir, "nn_distances.png")
	if err := visualization.SaveHistogram(result.Distances, a.cfg.Output.HistogramBins,
		"Nearest-neighbor distances", "Distance", path); err != nil {
		return fmt.Errorf("failed to save histogram: %w", err)
	}
	return nil
}
