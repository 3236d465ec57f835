// Package container reads and writes the EMDC container format used to
// exchange STEM experiment files: named datasets (image grids or atomic
// coordinate records) with string attributes attached, in a single binary
// file that may optionally be gzip-compressed as a whole.
//
// The format is little-endian throughout:
//
//	magic "EMDC", version uint16
//	dataset count uint16, then per dataset:
//	  name        uint16 length + UTF-8 bytes
//	  kind        uint8 (1 = float grid, 2 = coordinate records)
//	  grid:       ndim uint8, dims []uint32, float64 payload
//	  records:    count uint32, rows of (x, y float64, species string)
//	  attributes  uint16 count of (name, value) string pairs
package container

import (
	"errors"
	"fmt"

	"stemtools/internal/models"
)

const (
	magic   = "EMDC"
	version = 1
)

// DatasetKind discriminates the payload a dataset carries.
type DatasetKind uint8

const (
	// KindGrid is a 2D or 3D grid of float64 values
	KindGrid DatasetKind = 1

	// KindRecords is a list of (x, y, species) coordinate rows
	KindRecords DatasetKind = 2
)

// ErrNotFound reports a dataset or attribute missing from a container.
var ErrNotFound = errors.New("container: not found")

// Dataset is one named block of a container file.
type Dataset struct {
	Name string
	Kind DatasetKind

	// Dims and Floats hold a grid payload; Dims is (height, width) for
	// 2D grids and (count, height, width) for stacks
	Dims   []int
	Floats []float64

	// Records holds a coordinate payload
	Records []models.CoordRecord

	// Attrs are the string attributes attached to the dataset
	Attrs map[string]string
}

// Attr returns the named attribute of the dataset.
func (d *Dataset) Attr(name string) (string, error) {
	v, ok := d.Attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %q of dataset %q: %w", name, d.Name, ErrNotFound)
	}
	return v, nil
}

// SetAttr attaches a string attribute to the dataset.
func (d *Dataset) SetAttr(name, value string) {
	if d.Attrs == nil {
		d.Attrs = make(map[string]string)
	}
	d.Attrs[name] = value
}

// File is a parsed container: an ordered list of datasets with name lookup.
type File struct {
	datasets []*Dataset
	index    map[string]*Dataset
}

// Dataset returns the dataset with the given name.
func (f *File) Dataset(name string) (*Dataset, error) {
	d, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	return d, nil
}

// Datasets returns all datasets in file order.
func (f *File) Datasets() []*Dataset {
	return f.datasets
}

func (f *File) add(d *Dataset) error {
	if f.index == nil {
		f.index = make(map[string]*Dataset)
	}
	if _, dup := f.index[d.Name]; dup {
		return fmt.Errorf("duplicate dataset %q", d.Name)
	}
	f.datasets = append(f.datasets, d)
	f.index[d.Name] = d
	return nil
}
