package theme

import (
	"os"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// IconSet maps icon names to the glyph shown for them.
type IconSet map[string]string

func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	clone := make(IconSet, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Colors is the palette shared by every screen.
type Colors struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// Outcome is the result class of one metadata lookup.
type Outcome int

const (
	OutcomeFresh Outcome = iota
	OutcomeStale
	OutcomeMissing
	OutcomeFailed
)

// String returns the label shown next to an outcome count.
func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "Fresh"
	case OutcomeStale:
		return "Stale"
	case OutcomeMissing:
		return "Missing"
	case OutcomeFailed:
		return "Errors"
	}
	return "Unknown"
}

func (o Outcome) icon() string {
	switch o {
	case OutcomeFresh:
		return "success"
	case OutcomeStale:
		return "stale"
	case OutcomeMissing:
		return "missing"
	}
	return "error"
}

// Theme holds the palette, panel border and icons used by the progress
// screens.
type Theme struct {
	colors   Colors
	border   lipgloss.Border
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme during construction.
type Option func(*Theme)

// WithIconSet replaces the icon set. Names missing from it fall back to the
// ASCII icons.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) {
		t.icons = set.clone()
	}
}

// WithColors replaces the palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) {
		t.colors = colors
	}
}

// New builds a Theme from the YouTube red palette with opts applied.
func New(opts ...Option) Theme {
	t := Theme{
		colors: Colors{
			Primary:    lipgloss.Color("#b3262b"),
			Secondary:  lipgloss.Color("#cc4a4f"),
			Accent:     lipgloss.Color("#f2777a"),
			Background: lipgloss.Color("#f8f8f8"),
			Muted:      lipgloss.Color("#9ba8c0"),
			Success:    lipgloss.Color("#5dc796"),
			Warning:    lipgloss.Color("#e5a83b"),
			Error:      lipgloss.Color("#f04c56"),
		},
		border:   lipgloss.RoundedBorder(),
		icons:    defaultIconSet(),
		fallback: asciiIcons.clone(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns the default Theme.
func Default() Theme {
	return New()
}

// Colors returns the palette.
func (t Theme) Colors() Colors {
	return t.colors
}

// Icon returns the named icon, the ASCII fallback, or "".
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	if icon, ok := t.fallback[name]; ok {
		return icon
	}
	return ""
}

// IconSet returns a copy of the icons in use.
func (t Theme) IconSet() IconSet {
	return t.icons.clone()
}

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Align(lipgloss.Center)
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.colors.Secondary).
		Foreground(t.colors.Background).
		Padding(0, 1)
}

func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.colors.Accent).
		Padding(1)
}

// OutcomeStyle colours the count line of an outcome.
func (t Theme) OutcomeStyle(o Outcome) lipgloss.Style {
	base := lipgloss.NewStyle()
	switch o {
	case OutcomeFresh:
		return base.Foreground(t.colors.Success)
	case OutcomeStale:
		return base.Foreground(t.colors.Warning)
	case OutcomeMissing:
		return base.Foreground(t.colors.Muted)
	}
	return base.Foreground(t.colors.Error).Bold(true)
}

// OutcomeLine renders "<icon> <label>: <n>" in the outcome's style.
func (t Theme) OutcomeLine(o Outcome, n int) string {
	return t.OutcomeStyle(o).Render(t.Icon(o.icon()) + " " + o.String() + ": " + strconv.Itoa(n))
}

// ProgressGradient returns the two colours of the progress bar gradient.
func (t Theme) ProgressGradient() []string {
	return []string{string(t.colors.Primary), string(t.colors.Accent)}
}

func defaultIconSet() IconSet {
	if isLimitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// isLimitedTerminal reports sessions where emoji rarely render: SSH and
// Windows consoles.
func isLimitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	return runtime.GOOS == "windows"
}

var emojiIcons = IconSet{
	"series":  "📺",
	"video":   "🎥",
	"success": "✅",
	"stale":   "⏳",
	"missing": "❓",
	"error":   "❌",
	"chip":    "🧠",
}

var asciiIcons = IconSet{
	"series":  "[TV]",
	"video":   "[V]",
	"success": "[v]",
	"stale":   "[~]",
	"missing": "[?]",
	"error":   "[!]",
	"chip":    "[T]",
}
