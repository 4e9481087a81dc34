// Package colors maps free-text color names onto renderable swatch values.
package colors

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minChannel keeps derived swatches away from near-black.
const minChannel = 100

// Color is an sRGB swatch value.
type Color struct {
	R, G, B uint8
	// Named reports whether the value came from the canonical table.
	Named bool
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS renders table colors as hex and derived colors as rgb().
func (c Color) CSS() string {
	if c.Named {
		return c.Hex()
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string { return c.CSS() }

// Swatch pairs a display name with its resolved value.
type Swatch struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var canonical = map[string]Color{
	"white":       rgb(0xff, 0xff, 0xff),
	"black":       rgb(0x00, 0x00, 0x00),
	"red":         rgb(0xef, 0x44, 0x44),
	"blue":        rgb(0x3b, 0x82, 0xf6),
	"green":       rgb(0x10, 0xb9, 0x81),
	"yellow":      rgb(0xf5, 0x9e, 0x0b),
	"orange":      rgb(0xf9, 0x73, 0x16),
	"purple":      rgb(0x8b, 0x5c, 0xf6),
	"pink":        rgb(0xec, 0x48, 0x99),
	"brown":       rgb(0x92, 0x40, 0x0e),
	"gray":        rgb(0x6b, 0x72, 0x80),
	"grey":        rgb(0x6b, 0x72, 0x80),
	"navy":        rgb(0x1e, 0x3a, 0x8a),
	"cream":       rgb(0xfe, 0xf3, 0xc7),
	"beige":       rgb(0xf5, 0xf5, 0xdc),
	"olive":       rgb(0x84, 0xcc, 0x16),
	"khaki":       rgb(0xd4, 0xaf, 0x37),
	"light blue":  rgb(0x93, 0xc5, 0xfd),
	"dark blue":   rgb(0x1e, 0x40, 0xaf),
	"light green": rgb(0x86, 0xef, 0xac),
	"dark green":  rgb(0x16, 0x65, 0x34),
	"light red":   rgb(0xfc, 0xa5, 0xa5),
	"dark red":    rgb(0x99, 0x1b, 0x1b),
	"maroon":      rgb(0x7f, 0x1d, 0x1d),
	"burgundy":    rgb(0x7c, 0x2d, 0x12),
	"coral":       rgb(0xff, 0x7f, 0x7f),
	"turquoise":   rgb(0x06, 0xb6, 0xd4),
	"teal":        rgb(0x14, 0xb8, 0xa6),
	"indigo":      rgb(0x63, 0x66, 0xf1),
	"violet":      rgb(0x8b, 0x5c, 0xf6),
	"magenta":     rgb(0xd9, 0x46, 0xef),
	"cyan":        rgb(0x06, 0xb6, 0xd4),
	"lime":        rgb(0x84, 0xcc, 0x16),
	"gold":        rgb(0xfb, 0xbf, 0x24),
	"silver":      rgb(0x9c, 0xa3, 0xaf),
	"bronze":      rgb(0xcd, 0x7f, 0x32),
	"copper":      rgb(0xb8, 0x73, 0x33),
}

// substringOrder fixes the scan order for partial matches: longer keys first so that
// "light blue" wins over "blue", ties broken alphabetically.
var substringOrder = func() []string {
	keys := make([]string, 0, len(canonical))
	for key := range canonical {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var lower = cases.Lower(language.Und)

// Resolve returns a swatch color for any color name. It is deterministic and never fails.
func Resolve(name string) Color {
	normalized := Normalize(name)
	if c, ok := canonical[normalized]; ok {
		return c
	}
	if normalized != "" {
		for _, key := range substringOrder {
			if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
				return canonical[key]
			}
		}
	}
	return derive(name)
}

// Normalize lower-cases and trims a color name.
func Normalize(name string) string {
	return strings.TrimSpace(lower.String(name))
}

// Known reports whether name matches a canonical key exactly after normalisation.
func Known(name string) bool {
	_, ok := canonical[Normalize(name)]
	return ok
}

// Swatches resolves each name, preserving order.
func Swatches(names []string) []Swatch {
	if len(names) == 0 {
		return nil
	}
	out := make([]Swatch, 0, len(names))
	for _, name := range names {
		out = append(out, Swatch{Name: name, Value: Resolve(name).CSS()})
	}
	return out
}

// derive hashes the raw name over UTF-16 code units with 32-bit wraparound.
func derive(name string) Color {
	var hash int32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash = int32(unit) + ((hash << 5) - hash)
	}
	h := uint32(hash)
	return Color{
		R: floor((h & 0xff0000) >> 16),
		G: floor((h & 0x00ff00) >> 8),
		B: floor(h & 0x0000ff),
	}
}

func floor(v uint32) uint8 {
	if v < minChannel {
		return minChannel
	}
	return uint8(v)
}

func rgb(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Named: true}
}
