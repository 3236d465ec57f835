package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"stemtools/internal/models"
)

// ReadFile opens and parses a container file. Gzip-compressed containers
// are detected by their magic bytes and decompressed transparently. The
// file handle is released before returning on every path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("failed to read container header: %w", err)
	}

	var r io.Reader = br
	if head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return parse(r)
}

func parse(r io.Reader) (*File, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(head) != magic {
		return nil, fmt.Errorf("not a container file: bad magic %q", head)
	}

	var ver uint16
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("unsupported container version %d", ver)
	}

	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read dataset count: %w", err)
	}

	file := &File{}
	for i := 0; i < int(count); i++ {
		d, err := readDataset(r)
		if err != nil {
			return nil, fmt.Errorf("dataset %d: %w", i, err)
		}
		if err := file.add(d); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func readDataset(r io.Reader) (*Dataset, error) {
	name, err := readString16(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, fmt.Errorf("failed to read kind: %w", err)
	}

	d := &Dataset{Name: name, Kind: DatasetKind(kind)}

	switch d.Kind {
	case KindGrid:
		if err := readGrid(r, d); err != nil {
			return nil, err
		}
	case KindRecords:
		if err := readRecords(r, d); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown dataset kind %d", kind)
	}

	var nattrs uint16
	if err := binary.Read(r, binary.LittleEndian, &nattrs); err != nil {
		return nil, fmt.Errorf("failed to read attribute count: %w", err)
	}
	for i := 0; i < int(nattrs); i++ {
		aname, err := readString16(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute name: %w", err)
		}
		aval, err := readString32(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute %q: %w", aname, err)
		}
		d.SetAttr(aname, aval)
	}
	return d, nil
}

func readGrid(r io.Reader, d *Dataset) error {
	var ndim uint8
	if err := binary.Read(r, binary.LittleEndian, &ndim); err != nil {
		return fmt.Errorf("failed to read rank: %w", err)
	}
	if ndim != 2 && ndim != 3 {
		return fmt.Errorf("grid dataset %q has unsupported rank %d", d.Name, ndim)
	}

	total := 1
	d.Dims = make([]int, ndim)
	for i := range d.Dims {
		var dim uint32
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			return fmt.Errorf("failed to read dimension %d: %w", i, err)
		}
		if dim == 0 {
			return fmt.Errorf("grid dataset %q has zero dimension %d", d.Name, i)
		}
		d.Dims[i] = int(dim)
		total *= int(dim)
	}

	d.Floats = make([]float64, total)
	if err := binary.Read(r, binary.LittleEndian, d.Floats); err != nil {
		return fmt.Errorf("failed to read %d grid values: %w", total, err)
	}
	return nil
}

func readRecords(r io.Reader, d *Dataset) error {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read record count: %w", err)
	}

	d.Records = make([]models.CoordRecord, count)
	for i := range d.Records {
		var xy [2]float64
		if err := binary.Read(r, binary.LittleEndian, &xy); err != nil {
			return fmt.Errorf("failed to read record %d: %w", i, err)
		}
		species, err := readString16(r)
		if err != nil {
			return fmt.Errorf("failed to read record %d species: %w", i, err)
		}
		d.Records[i] = models.CoordRecord{X: xy[0], Y: xy[1], Species: species}
	}
	return nil
}

func readString16(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	return readBytes(r, int(n))
}

func readString32(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	return readBytes(r, int(n))
}

func readBytes(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
