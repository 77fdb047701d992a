package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/protocol"
)

var (
	// Colors meet WCAG AA contrast on dark terminals
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)

// printBanner writes the startup box naming the role and the mailbox settings.
func printBanner(w io.Writer, role protocol.Role, cfg *config.Config) {
	framing := codec.FramingFor(cfg.Protocol.StrictFraming)
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("filepong "+role.String()),
		mutedStyle.Render("mailbox  "+cfg.Mailbox.Path),
		mutedStyle.Render("framing  "+framing.String()),
		mutedStyle.Render("poll     "+cfg.Protocol.PollInterval().String()),
	)
	_, _ = fmt.Fprintln(w, bannerStyle.Render(body))
}

func printLine(w io.Writer, style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintln(w, style.Render(fmt.Sprintf(format, args...)))
}

// fitWidth truncates s to width visual columns, ending it with "..." when cut.
// A width of zero or less means unlimited.
func fitWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

// terminalWidth returns the column count of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
