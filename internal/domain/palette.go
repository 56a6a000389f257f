package domain

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// NearNormal is the palette midpoint, drawn for SPEI values around zero.
const NearNormal = "#f7f7f7"

// Palette is an ordered list of "#rrggbb" colors spread linearly across a value range.
type Palette []string

// SPEIPalette runs from extremely dry (orange-brown) through near normal to extremely wet (blue).
var SPEIPalette = Palette{
	"#8c2d04", "#d94801", "#f16913", "#fdae6b", "#fdd0a2", // dry
	NearNormal,
	"#d4e6f5", "#92c5de", "#4393c3", "#2166ac", "#053061", // wet
}

// Hex returns the colors without the leading '#', as imaging APIs expect.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = strings.TrimPrefix(c, "#")
	}
	return out
}

// ColorAt maps v linearly onto the palette over [lo, hi], clamping out-of-range
// values to the end colors. NaN is no-data and maps to fully transparent.
func (p Palette) ColorAt(v, lo, hi float64) (color.RGBA, error) {
	if len(p) == 0 {
		return color.RGBA{}, errors.New("empty palette")
	}
	if !(hi > lo) {
		return color.RGBA{}, fmt.Errorf("invalid range [%g, %g]", lo, hi)
	}
	if math.IsNaN(v) {
		return color.RGBA{}, nil
	}

	t := (v - lo) / (hi - lo)
	t = math.Max(0, math.Min(1, t))
	if len(p) == 1 {
		return ParseHexColor(p[0])
	}

	pos := t * float64(len(p)-1)
	i := int(math.Floor(pos))
	if i >= len(p)-1 {
		return ParseHexColor(p[len(p)-1])
	}
	frac := pos - float64(i)

	a, err := ParseHexColor(p[i])
	if err != nil {
		return color.RGBA{}, err
	}
	b, err := ParseHexColor(p[i+1])
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: lerp(a.A, b.A, frac),
	}, nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// ParseHexColor parses "rrggbb" or "rrggbbaa", with or without a leading '#'.
// Six-digit colors are opaque.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("parse color %q: want 6 or 8 hex digits", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if len(h) == 6 {
		return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
	}
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}
