// Package theme holds the palette, styles and icons of the batch progress
// view.
package theme

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors the progress view draws with.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
}

// Theme pairs a palette with the icons for one terminal.
type Theme struct {
	palette Palette
	icons   map[string]string
}

var stockPalette = Palette{
	Primary:    lipgloss.Color("#2f4f7a"),
	Secondary:  lipgloss.Color("#4f6f9a"),
	Accent:     lipgloss.Color("#7fb2e5"),
	Background: lipgloss.Color("#f8f8f8"),
	Muted:      lipgloss.Color("#9ba8c0"),
	Error:      lipgloss.Color("#f04c56"),
}

var emojiIcons = map[string]string{
	"search":   "🔎",
	"resolved": "✅",
	"failed":   "❌",
	"stats":    "📊",
	"workers":  "🧠",
	"arrow":    "➜",
	"bullet":   "•",
}

var asciiIcons = map[string]string{
	"search":   "[?]",
	"resolved": "[v]",
	"failed":   "[!]",
	"stats":    "[*]",
	"workers":  "[W]",
	"arrow":    ">",
	"bullet":   "-",
}

// New returns the stock theme. ascii selects plain-text icons.
func New(ascii bool) Theme {
	if ascii {
		return Theme{palette: stockPalette, icons: asciiIcons}
	}
	return Theme{palette: stockPalette, icons: emojiIcons}
}

// Default returns the stock theme for the current terminal.
func Default() Theme {
	return New(plainTerminal())
}

// plainTerminal reports sessions that tend to render emoji badly.
func plainTerminal() bool {
	for _, v := range []string{"SSH_CLIENT", "SSH_TTY", "SSH_CONNECTION"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return runtime.GOOS == "windows"
}

func (t Theme) Colors() Palette { return t.palette }

// Icon returns the named icon, or "" for an unknown name.
func (t Theme) Icon(name string) string { return t.icons[name] }

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.palette.Primary).
		Foreground(t.palette.Background).
		Align(lipgloss.Center)
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.palette.Secondary).
		Foreground(t.palette.Background).
		Padding(0, 1)
}

func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.palette.Accent).
		Padding(1)
}

// ProgressGradient is the start and end color of the progress bar.
func (t Theme) ProgressGradient() []string {
	return []string{string(t.palette.Primary), string(t.palette.Accent)}
}
