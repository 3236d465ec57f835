// Package models holds the shared data model for STEM image analysis:
// image grids, experiment metadata and atomic coordinate records.
package models

// Image is a single 2D image of pixel intensities stored as a 1D array
// in row-major order.
type Image struct {
	// Pix is the pixel intensity data, Width*Height values
	Pix []float64

	// Width and Height are the image dimensions in pixels
	Width  int
	Height int
}

// NewImage allocates a zeroed Width x Height image.
func NewImage(width, height int) Image {
	return Image{
		Pix:    make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the intensity at pixel (x, y).
func (im Image) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// Set stores the intensity at pixel (x, y).
func (im Image) Set(x, y int, v float64) {
	im.Pix[y*im.Width+x] = v
}

// ImageStack is a sequence of equally sized images. Experimental files may
// carry either a single image or a stack of frames; a single 2D image is a
// stack with Count == 1.
type ImageStack struct {
	// Data holds the frames back to back, each Width*Height values
	// in row-major order
	Data []float64

	// Count is the number of frames in the stack
	Count int

	// Width and Height are the per-frame dimensions in pixels
	Width  int
	Height int
}

// Frame returns frame i of the stack as an Image sharing the underlying data.
func (s ImageStack) Frame(i int) Image {
	size := s.Width * s.Height
	return Image{
		Pix:    s.Data[i*size : (i+1)*size],
		Width:  s.Width,
		Height: s.Height,
	}
}

// Metadata describes the experiment an image was recorded in. It is decoded
// from the UTF-8 JSON blob attached to the image dataset; fields absent from
// the blob are left at their zero values.
type Metadata struct {
	// SampleName is the name of the imaged sample
	SampleName string `json:"sample name"`

	// DataType is the type of experiment the data comes from
	DataType string `json:"type of data"`

	// SampleGrowth holds growth parameters as free-form key/value pairs.
	// Only present in library files.
	SampleGrowth map[string]string `json:"sample growth"`
}

// CoordRecord is a raw atomic coordinate as stored in a container
// coordinate group: a planar position plus the species label.
type CoordRecord struct {
	X, Y    float64
	Species string
}

// Site is an atomic coordinate after species-to-class mapping.
type Site struct {
	X, Y float64

	// Class is 0 for the host lattice atom and 1 for the dopant
	Class int
}
