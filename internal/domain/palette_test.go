package domain

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPEIPalette_Shape(t *testing.T) {
	require.Len(t, SPEIPalette, 11)
	assert.Equal(t, "#f7f7f7", SPEIPalette[5])
	assert.Equal(t, "#8c2d04", SPEIPalette[0])
	assert.Equal(t, "#053061", SPEIPalette[10])
}

func TestPalette_Hex(t *testing.T) {
	hex := SPEIPalette.Hex()
	require.Len(t, hex, 11)
	assert.Equal(t, "f7f7f7", hex[5])
	assert.Equal(t, "#f7f7f7", SPEIPalette[5], "Hex must not mutate the palette")
}

func TestPalette_ColorAt_Anchors(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{-2, "#8c2d04"},
		{0, "#f7f7f7"},
		{2, "#053061"},
		{-7.5, "#8c2d04"},
		{3.1, "#053061"},
	}
	for _, tt := range tests {
		got, err := SPEIPalette.ColorAt(tt.value, -2, 2)
		require.NoError(t, err)
		want, err := ParseHexColor(tt.want)
		require.NoError(t, err)
		assert.Equal(t, want, got, "value %g", tt.value)
	}
}

func TestPalette_ColorAt_Interpolates(t *testing.T) {
	p := Palette{"#000000", "#ffffff"}

	mid, err := p.ColorAt(0.5, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, mid)

	quarter, err := p.ColorAt(0.25, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 64, G: 64, B: 64, A: 255}, quarter)
}

func TestPalette_ColorAt_NoData(t *testing.T) {
	got, err := SPEIPalette.ColorAt(math.NaN(), -2, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{}, got)
}

func TestPalette_ColorAt_Errors(t *testing.T) {
	_, err := Palette{}.ColorAt(0, -2, 2)
	require.Error(t, err)

	_, err = SPEIPalette.ColorAt(0, 2, 2)
	require.Error(t, err)

	_, err = Palette{"#zzzzzz", "#ffffff"}.ColorAt(0, 0, 1)
	require.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#d94801")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xd9, G: 0x48, B: 0x01, A: 0xff}, c)

	c, err = ParseHexColor("00000000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{}, c)

	_, err = ParseHexColor("black")
	require.Error(t, err)
}
