package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// ParseHexColor parses RRGGBB with or without a leading '#'.
func ParseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

// DriverColor falls back to white when the backend sent no usable color.
func DriverColor(hex string) color.RGBA {
	if c, ok := ParseHexColor(hex); ok {
		return c
	}
	return white
}

func HexString(c color.Color) string {
	if c == nil {
		return ""
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02X%02X%02X", rgba.R, rgba.G, rgba.B)
}
