package tui

import (
	"github.com/charmbracelet/lipgloss"

	"tfvm/internal/install"
)

// Job statuses besides the installer stages.
const (
	StatusPending   = "pending"
	StatusResolving = "resolving"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// SelectedStyle marks the version in use in listings.
	SelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	// InstalledStyle marks installed versions in remote listings.
	InstalledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	// WarningStyle renders configuration findings.
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	done    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	active  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	skipped = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	statusStyles = map[string]lipgloss.Style{
		string(install.StageInstalled): done,
		string(install.StageRemoved):   done,

		StatusResolving:                  active,
		string(install.StageWaiting):     active,
		string(install.StageDownloading): active,
		string(install.StageVerifying):   active,
		string(install.StageExtracting):  active,

		StatusUnchanged: skipped,

		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		StatusPending: lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// IsFinal reports whether a job in status will not change again.
func IsFinal(status string) bool {
	switch status {
	case string(install.StageInstalled), string(install.StageRemoved), StatusUnchanged, StatusError:
		return true
	}
	return false
}
