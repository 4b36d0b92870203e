package raster

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Format selects the output encoder.
type Format string

const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
	FormatTGA  Format = "tga"
)

// ParseFormat accepts "webp", "png" or "tga". The empty string is WebP.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatWebP, nil
	case FormatWebP, FormatPNG, FormatTGA:
		return f, nil
	}
	return "", fmt.Errorf("raster: unknown format %q", s)
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string { return "." + string(f) }

// Encode writes img in format f. Every format is lossless so identity
// and matte bytes survive exactly.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("raster: WebP encode: %w", err)
		}
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("raster: PNG encode: %w", err)
		}
	case FormatTGA:
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("raster: TGA encode: %w", err)
		}
	default:
		return fmt.Errorf("raster: unknown format %q", f)
	}
	return nil
}

// WriteFile encodes img to path, creating parent directories.
func WriteFile(path string, img image.Image, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("raster: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("raster: %w", err)
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
