package tui

import "github.com/charmbracelet/lipgloss"

// ColorPalette defines the color scheme for a theme.
type ColorPalette struct {
	// Primary accent color (used for the selected row and title)
	Primary lipgloss.Color
	// Secondary accent color (used for the default-profile marker)
	Secondary lipgloss.Color
	// Muted color (used for descriptions and help text)
	Muted lipgloss.Color
}

// palettes maps theme names to their color schemes.
var palettes = map[string]ColorPalette{
	"default": {
		Primary:   lipgloss.Color("135"), // purple
		Secondary: lipgloss.Color("42"),  // green
		Muted:     lipgloss.Color("241"),
	},
	"monokai": {
		Primary:   lipgloss.Color("#F92672"),
		Secondary: lipgloss.Color("#A6E22E"),
		Muted:     lipgloss.Color("#75715E"),
	},
	"dracula": {
		Primary:   lipgloss.Color("#BD93F9"),
		Secondary: lipgloss.Color("#50FA7B"),
		Muted:     lipgloss.Color("#6272A4"),
	},
	"nord": {
		Primary:   lipgloss.Color("#88C0D0"),
		Secondary: lipgloss.Color("#A3BE8C"),
		Muted:     lipgloss.Color("#4C566A"),
	},
}

// Palette returns the palette for a theme name, falling back to "default"
// for unknown names.
func Palette(theme string) ColorPalette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes["default"]
}

// Styles holds the rendered lipgloss styles for the picker.
type Styles struct {
	Title       lipgloss.Style
	Selected    lipgloss.Style
	Normal      lipgloss.Style
	Description lipgloss.Style
	Marker      lipgloss.Style
	Help        lipgloss.Style
}

// NewStyles builds picker styles from a theme name.
func NewStyles(theme string) Styles {
	p := Palette(theme)
	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(p.Primary).MarginBottom(1),
		Selected:    lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Normal:      lipgloss.NewStyle(),
		Description: lipgloss.NewStyle().Foreground(p.Muted),
		Marker:      lipgloss.NewStyle().Foreground(p.Secondary),
		Help:        lipgloss.NewStyle().Foreground(p.Muted).MarginTop(1),
	}
}
