package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-openexr/half"

	"variant-compositor/internal/lut"
)

func main() {
	in1D := flag.String("1d", "", "1D LUT text file to convert")
	in3D := flag.String("3d", "", "3D LUT text file to convert")
	size := flag.Int("size", lut.Size3D, "3D LUT cube edge")
	output := flag.String("o", "", "Output .bin file (default: input name with .bin)")
	flag.Parse()

	if (*in1D == "") == (*in3D == "") {
		fmt.Fprintln(os.Stderr, "usage: lut (-1d file | -3d file [-size n]) [-o out.bin]")
		os.Exit(2)
	}

	var (
		input  string
		values []half.Half
		err    error
	)
	if *in1D != "" {
		input = *in1D
		values, err = read(input, func(f *os.File) ([]half.Half, error) { return lut.Read1D(f) })
	} else {
		input = *in3D
		values, err = read(input, func(f *os.File) ([]half.Half, error) { return lut.Read3D(f, *size) })
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".bin"
	}
	if err := write(out, values); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d half values -> %s\n", input, len(values), out)
}

func read(path string, parse func(*os.File) ([]half.Half, error)) ([]half.Half, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	values, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

func write(path string, values []half.Half) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := lut.Write(f, values); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
