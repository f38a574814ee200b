package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Color holds fractional RGBA channels in the 0..1 range.
//
// Colors persist as "#RRGGBB". Alpha is not written back, so an 8-digit ARGB input
// loses its alpha channel after an encode/decode cycle.
type Color struct {
	R, G, B, A float64
}

// White is returned for any hex string that cannot be parsed.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// ParseHex decodes a 3, 6 or 8 digit hex color. Non-alphanumeric characters such as a
// leading '#' are stripped first. 3 digits expand each nibble (F -> FF), 6 digits are
// opaque RGB and 8 digits are ARGB with alpha first. Anything else yields White.
func ParseHex(s string) Color {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)

	var a, r, g, b uint64
	switch len(clean) {
	case 3:
		v, ok := parseHexDigits(clean)
		if !ok {
			return White
		}
		a, r, g, b = 255, (v>>8)*17, (v>>4&0xF)*17, (v&0xF)*17
	case 6:
		v, ok := parseHexDigits(clean)
		if !ok {
			return White
		}
		a, r, g, b = 255, v>>16, v>>8&0xFF, v&0xFF
	case 8:
		v, ok := parseHexDigits(clean)
		if !ok {
			return White
		}
		a, r, g, b = v>>24, v>>16&0xFF, v>>8&0xFF, v&0xFF
	default:
		return White
	}

	return Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}
}

func parseHexDigits(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Hex encodes the color as "#RRGGBB". Alpha is dropped.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

// RGBA8 returns the channels as 0..255 integers.
func (c Color) RGBA8() (r, g, b, a uint8) {
	return channel(c.R), channel(c.G), channel(c.B), channel(c.A)
}

func channel(f float64) uint8 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	*c = ParseHex(string(b))
	return nil
}
