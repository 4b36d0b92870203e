// Package lut converts the text lookup tables exported by the colour
// pipeline into flat binary tables of half floats.
package lut

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-openexr/half"
)

// Layout of the exported text files.
const (
	Header1D = 5    // lines before the first 1D value
	Size1D   = 4096 // values in a 1D table
	Header3D = 3    // lines before the first 3D entry
	Size3D   = 65   // default cube edge
)

// Read1D parses a 1D table: Header1D header lines, then one value per line.
// Spaces inside a value are ignored. Lines after the first Size1D values
// are not read.
func Read1D(r io.Reader) ([]half.Half, error) {
	sc := bufio.NewScanner(r)
	out := make([]half.Half, 0, Size1D)
	for line := 0; len(out) < Size1D && sc.Scan(); line++ {
		if line < Header1D {
			continue
		}
		v, err := parseHalf(strings.ReplaceAll(sc.Text(), " ", ""))
		if err != nil {
			return nil, fmt.Errorf("lut: line %d: %w", line+1, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lut: %w", err)
	}
	if len(out) != Size1D {
		return nil, fmt.Errorf("lut: %d values, want %d", len(out), Size1D)
	}
	return out, nil
}

// Read3D parses a 3D table of edge size: Header3D header lines, then
// "r g b R G B" lines mapping integer input coordinates to an output
// colour. The result is RGB triples with r varying fastest. Entries
// missing from the file stay zero.
func Read3D(r io.Reader, size int) ([]half.Half, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lut: cube size %d", size)
	}
	out := make([]half.Half, size*size*size*3)

	sc := bufio.NewScanner(r)
	for line := 0; sc.Scan(); line++ {
		if line < Header3D {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 6 {
			return nil, fmt.Errorf("lut: line %d: %d fields, want 6", line+1, len(fields))
		}

		var idx [3]int
		for k := range idx {
			v, err := strconv.Atoi(fields[k])
			if err != nil {
				return nil, fmt.Errorf("lut: line %d: %w", line+1, err)
			}
			if v < 0 || v >= size {
				return nil, fmt.Errorf("lut: line %d: coordinate %d outside [0, %d)", line+1, v, size)
			}
			idx[k] = v
		}
		base := (idx[0] + idx[1]*size + idx[2]*size*size) * 3
		for k := 0; k < 3; k++ {
			v, err := parseHalf(fields[3+k])
			if err != nil {
				return nil, fmt.Errorf("lut: line %d: %w", line+1, err)
			}
			out[base+k] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lut: %w", err)
	}
	return out, nil
}

// Write stores values as little-endian 16-bit half floats.
func Write(w io.Writer, values []half.Half) error {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v.Bits())
	}
	_, err := w.Write(buf)
	return err
}

func parseHalf(s string) (half.Half, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return half.FromFloat32(float32(f)), nil
}
