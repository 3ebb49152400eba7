// Package themes holds the color schemes of the chat TUI.
package themes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Buyer         lipgloss.Style
	Seller        lipgloss.Style
	Selected      lipgloss.Style
	Price         lipgloss.Style
	StatusPending lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Panel         lipgloss.Style
	Input         lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
}

type palette struct {
	primary, secondary, success, warning, errc, info, fg, subtle, border, muted lipgloss.Color
}

func build(p palette) Theme {
	return Theme{
		Primary: p.primary,
		Muted:   p.muted,
		Border:  p.border,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.fg),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.subtle),
		Normal: lipgloss.NewStyle().
			Foreground(p.fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.fg),
		Buyer: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.info),
		Seller: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.secondary),
		Selected: lipgloss.NewStyle().
			Background(p.primary).
			Foreground(p.fg).
			Bold(true),
		Price: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.success),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(p.success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(p.warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(p.errc).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(p.info).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.primary),
	}
}

// Default is the default theme.
var Default = build(palette{
	primary:   lipgloss.Color("#7c3aed"),
	secondary: lipgloss.Color("#a78bfa"),
	success:   lipgloss.Color("#10b981"),
	warning:   lipgloss.Color("#f59e0b"),
	errc:      lipgloss.Color("#ef4444"),
	info:      lipgloss.Color("#3b82f6"),
	fg:        lipgloss.Color("#fafafa"),
	subtle:    lipgloss.Color("#a3a3a3"),
	border:    lipgloss.Color("#404040"),
	muted:     lipgloss.Color("#737373"),
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(palette{
	primary:   lipgloss.Color("#cba6f7"),
	secondary: lipgloss.Color("#f5c2e7"),
	success:   lipgloss.Color("#a6e3a1"),
	warning:   lipgloss.Color("#f9e2af"),
	errc:      lipgloss.Color("#f38ba8"),
	info:      lipgloss.Color("#89dceb"),
	fg:        lipgloss.Color("#cdd6f4"),
	subtle:    lipgloss.Color("#a6adc8"),
	border:    lipgloss.Color("#45475a"),
	muted:     lipgloss.Color("#6c7086"),
})

// ByName returns the theme called name. An empty name selects Default.
func ByName(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return Default, nil
	case "catppuccin", "catppuccin-mocha", "mocha":
		return CatppuccinMocha, nil
	default:
		return Theme{}, fmt.Errorf("unknown theme: %s", name)
	}
}
