package container

import (
	"encoding/json"
	"fmt"
	"strconv"

	"stemtools/internal/models"
	"stemtools/pkg/lattice"
)

// Names of the well-known datasets and attributes in experiment files.
const (
	// ImageDataset holds the experimental image or image stack
	ImageDataset = "image_data"

	// LibraryDataset holds the network-input image of a defect library file
	LibraryDataset = "nn_input"

	// MetadataAttr is the JSON metadata blob attached to an image dataset
	MetadataAttr = "metadata"

	// ScanSizeAttr is the physical scan size attached to the library image,
	// in picometers
	ScanSizeAttr = "scan size"
)

// LoadImage reads an experiment container with a STEM image or image stack
// and its metadata. Both the image dataset and its metadata attribute are
// required. A short description of the loaded data is printed.
func LoadImage(path string) (models.ImageStack, models.Metadata, error) {
	var stack models.ImageStack
	var meta models.Metadata

	f, err := ReadFile(path)
	if err != nil {
		return stack, meta, err
	}

	d, err := f.Dataset(ImageDataset)
	if err != nil {
		return stack, meta, err
	}
	stack, err = gridToStack(d)
	if err != nil {
		return stack, meta, err
	}

	blob, err := d.Attr(MetadataAttr)
	if err != nil {
		return stack, meta, err
	}
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return stack, meta, fmt.Errorf("failed to decode metadata: %w", err)
	}

	noun := "image"
	if stack.Count != 1 {
		noun = "images"
	}
	fmt.Printf("Loaded %d %s of the size %d by %d\n", stack.Count, noun, stack.Height, stack.Width)
	fmt.Println("Sample name:", meta.SampleName)
	fmt.Println("Type of experiment:", meta.DataType)

	return stack, meta, nil
}

// Library is the content of a defect library container: the network-input
// image, its physical scan size, the experiment metadata when present, and
// the atomic coordinates concatenated over all coordinate groups. Sites is
// filled only when a species map was supplied to LoadLibrary.
type Library struct {
	Image    models.Image
	ScanSize float64
	Metadata *models.Metadata
	Records  []models.CoordRecord
	Sites    []models.Site
}

// LoadLibrary reads a defect library container. The nn_input dataset and
// its scan-size attribute are required; a missing or unreadable metadata
// attribute is logged and tolerated. Coordinate groups are concatenated in
// file order. When species is non-nil the records are additionally mapped
// onto classed sites, sorted lattice atoms first.
func LoadLibrary(path string, species *lattice.SpeciesMap) (*Library, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	d, err := f.Dataset(LibraryDataset)
	if err != nil {
		return nil, err
	}
	if len(d.Dims) != 2 {
		return nil, fmt.Errorf("dataset %q must be a single 2D image, got rank %d", LibraryDataset, len(d.Dims))
	}
	lib := &Library{
		Image: models.Image{Pix: d.Floats, Width: d.Dims[1], Height: d.Dims[0]},
	}

	scan, err := d.Attr(ScanSizeAttr)
	if err != nil {
		return nil, err
	}
	lib.ScanSize, err = strconv.ParseFloat(scan, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scan size %q: %w", scan, err)
	}

	lib.Metadata = readLibraryMetadata(d)

	for _, ds := range f.Datasets() {
		if ds.Name == LibraryDataset || ds.Kind != KindRecords {
			continue
		}
		lib.Records = append(lib.Records, ds.Records...)
	}

	if species != nil {
		lib.Sites, err = lattice.MapClasses(lib.Records, *species)
		if err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// readLibraryMetadata decodes the optional metadata attribute. Absence and
// decode failures are both non-fatal for library files: the condition is
// logged and the metadata treated as absent.
func readLibraryMetadata(d *Dataset) *models.Metadata {
	blob, err := d.Attr(MetadataAttr)
	if err != nil {
		fmt.Println("No metadata found")
		return nil
	}
	var meta models.Metadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		fmt.Println("Unreadable metadata, ignoring:", err)
		return nil
	}
	fmt.Println("Sample name:", meta.SampleName)
	fmt.Println("Type of experiment:", meta.DataType)
	if len(meta.SampleGrowth) > 0 {
		fmt.Println("Sample growth -->")
		for k, v := range meta.SampleGrowth {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	return &meta
}

func gridToStack(d *Dataset) (models.ImageStack, error) {
	var stack models.ImageStack
	switch len(d.Dims) {
	case 2:
		stack = models.ImageStack{Data: d.Floats, Count: 1, Height: d.Dims[0], Width: d.Dims[1]}
	case 3:
		stack = models.ImageStack{Data: d.Floats, Count: d.Dims[0], Height: d.Dims[1], Width: d.Dims[2]}
	default:
		return stack, fmt.Errorf("dataset %q has unsupported rank %d", d.Name, len(d.Dims))
	}
	return stack, nil
}
