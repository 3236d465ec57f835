package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/gzip"

	"stemtools/internal/models"
)

// Writer assembles datasets and serializes them as a container file.
type Writer struct {
	file File
}

// NewWriter returns an empty container writer.
func NewWriter() *Writer {
	return &Writer{}
}

// AddGrid adds a float grid dataset. Dims must be (height, width) or
// (count, height, width) and match the data length. The returned dataset
// can be given attributes before writing.
func (w *Writer) AddGrid(name string, dims []int, data []float64) (*Dataset, error) {
	if len(dims) != 2 && len(dims) != 3 {
		return nil, fmt.Errorf("grid %q: rank must be 2 or 3, got %d", name, len(dims))
	}
	total := 1
	for _, d := range dims {
		if d <= 0 || d > math.MaxUint32 {
			return nil, fmt.Errorf("grid %q: invalid dimension %d", name, d)
		}
		total *= d
	}
	if total != len(data) {
		return nil, fmt.Errorf("grid %q: dims %v need %d values, got %d", name, dims, total, len(data))
	}
	d := &Dataset{Name: name, Kind: KindGrid, Dims: dims, Floats: data}
	if err := w.file.add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddRecords adds a coordinate record dataset.
func (w *Writer) AddRecords(name string, records []models.CoordRecord) (*Dataset, error) {
	d := &Dataset{Name: name, Kind: KindRecords, Records: records}
	if err := w.file.add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// WriteFile serializes the container to path, gzip-compressing the whole
// file when compress is set.
func (w *Writer) WriteFile(path string, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var out io.Writer = bw
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(bw)
		out = zw
	}

	if err := w.encode(out); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush container: %w", err)
	}
	return nil
}

func (w *Writer) encode(out io.Writer) error {
	if _, err := out.Write([]byte(magic)); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint16(version)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint16(len(w.file.datasets))); err != nil {
		return fmt.Errorf("failed to write dataset count: %w", err)
	}
	for _, d := range w.file.datasets {
		if err := writeDataset(out, d); err != nil {
			return fmt.Errorf("dataset %q: %w", d.Name, err)
		}
	}
	return nil
}

func writeDataset(out io.Writer, d *Dataset) error {
	if err := writeString16(out, d.Name); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, uint8(d.Kind)); err != nil {
		return err
	}

	switch d.Kind {
	case KindGrid:
		if err := binary.Write(out, binary.LittleEndian, uint8(len(d.Dims))); err != nil {
			return err
		}
		for _, dim := range d.Dims {
			if err := binary.Write(out, binary.LittleEndian, uint32(dim)); err != nil {
				return err
			}
		}
		if err := binary.Write(out, binary.LittleEndian, d.Floats); err != nil {
			return err
		}
	case KindRecords:
		if err := binary.Write(out, binary.LittleEndian, uint32(len(d.Records))); err != nil {
			return err
		}
		for _, rec := range d.Records {
			if err := binary.Write(out, binary.LittleEndian, [2]float64{rec.X, rec.Y}); err != nil {
				return err
			}
			if err := writeString16(out, rec.Species); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown dataset kind %d", d.Kind)
	}

	if err := binary.Write(out, binary.LittleEndian, uint16(len(d.Attrs))); err != nil {
		return err
	}
	// Attributes are written in sorted order so output is reproducible.
	for _, name := range attrNames(d.Attrs) {
		if err := writeString16(out, name); err != nil {
			return err
		}
		if err := writeString32(out, d.Attrs[name]); err != nil {
			return err
		}
	}
	return nil
}

func attrNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeString16(out io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes exceeds 16-bit length", len(s))
	}
	if err := binary.Write(out, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := out.Write([]byte(s))
	return err
}

func writeString32(out io.Writer, s string) error {
	if err := binary.Write(out, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := out.Write([]byte(s))
	return err
}
