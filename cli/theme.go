package main

import (
	"fmt"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Color mapping for terminal colors
var colorMappings = map[string]color.Color{
	"black":          color.RGBA{0x1c, 0x1c, 0x1c, 0xff},
	"red":            color.RGBA{0xcc, 0x44, 0x44, 0xff},
	"green":          color.RGBA{0x44, 0xbb, 0x44, 0xff},
	"yellow":         color.RGBA{0xcc, 0xaa, 0x33, 0xff},
	"blue":           color.RGBA{0x44, 0x77, 0xcc, 0xff},
	"magenta":        color.RGBA{0xbb, 0x55, 0xbb, 0xff},
	"cyan":           color.RGBA{0x33, 0xaa, 0xaa, 0xff},
	"white":          color.RGBA{0xd8, 0xd8, 0xd8, 0xff},
	"bright_black":   color.RGBA{0x70, 0x70, 0x70, 0xff},
	"bright_red":     color.RGBA{0xff, 0x66, 0x66, 0xff},
	"bright_green":   color.RGBA{0x66, 0xee, 0x66, 0xff},
	"bright_yellow":  color.RGBA{0xff, 0xee, 0x66, 0xff},
	"bright_blue":    color.RGBA{0x66, 0x99, 0xff, 0xff},
	"bright_magenta": color.RGBA{0xee, 0x77, 0xee, 0xff},
	"bright_cyan":    color.RGBA{0x66, 0xdd, 0xdd, 0xff},
	"bright_white":   color.RGBA{0xff, 0xff, 0xff, 0xff},
}

// NativeTheme provides a more native terminal appearance
type NativeTheme struct {
	fyne.Theme
	isDark bool
}

func NewNativeTheme(dark bool) *NativeTheme {
	return &NativeTheme{
		Theme:  theme.DefaultTheme(),
		isDark: dark,
	}
}

func (t *NativeTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameForeground:
		if t.isDark {
			return color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
		}
		return color.RGBA{0x2b, 0x30, 0x3b, 0xff}
	case theme.ColorNameBackground:
		if t.isDark {
			return color.RGBA{0x17, 0x19, 0x1c, 0xff}
		}
		return color.RGBA{0xf7, 0xf7, 0xf7, 0xff}
	case theme.ColorNameSelection:
		if t.isDark {
			return color.RGBA{0x3c, 0x46, 0x5a, 0x80}
		}
		return color.RGBA{0x00, 0x6e, 0xbd, 0x40}
	case theme.ColorNamePrimary:
		if t.isDark {
			return color.RGBA{0x2f, 0xbf, 0x8f, 0xff}
		}
		return color.RGBA{0x00, 0x6e, 0xbd, 0xff}
	}
	return t.Theme.Color(name, variant)
}

func (t *NativeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// terminalColors returns the default foreground/background pair for
// the terminal surface in the given mode.
func terminalColors(dark bool) (fg, bg color.Color) {
	if dark {
		return color.RGBA{0xdd, 0xdd, 0xdd, 0xff}, color.RGBA{0x10, 0x12, 0x14, 0xff}
	}
	return color.RGBA{0x2b, 0x30, 0x3b, 0xff}, color.RGBA{0xff, 0xff, 0xff, 0xff}
}

// ParseHexColor converts "#rrggbb" to a color, falling back to gray on
// malformed input.
func ParseHexColor(s string) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{0x80, 0x80, 0x80, 0xff}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{0x80, 0x80, 0x80, 0xff}
	}
	return color.RGBA{r, g, b, 0xff}
}
