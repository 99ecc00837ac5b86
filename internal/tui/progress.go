package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "
	columnGap    = "  "
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner and the marquee.
type tickMsg time.Time

// column is one column of the batch table.
type column struct {
	Header string
	Width  int
}

var batchColumns = []column{
	{Header: "EXPRESSION", Width: 16},
	{Header: "VERSION", Width: 14},
	{Header: "STATUS", Width: 16},
	{Header: "PATH", Width: 48},
}

// Job is one version expression in a batch install or removal.
type Job struct {
	Expression string `json:"expression"`
	Version    string `json:"version,omitempty"`
	Status     string `json:"status"`
	Path       string `json:"path,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (j Job) fields() []string {
	return []string{j.Expression, NonEmptyOrDash(j.Version), j.Status, NonEmptyOrDash(j.Path)}
}

// BatchModel renders a table with one row per expression while the versions
// are resolved and installed or removed.
type BatchModel struct {
	verb        string
	jobs        []Job
	fit         bool // widen columns to their content instead of truncating
	done        bool
	interrupted bool
	err         error
	tick        int
}

// NewBatchModel creates a model with one pending job per expression. verb
// names the action in the footer ("Installing", "Removing").
func NewBatchModel(verb string, expressions []string) BatchModel {
	jobs := make([]Job, len(expressions))
	for i, expr := range expressions {
		jobs[i] = Job{Expression: expr, Status: StatusPending}
	}
	return BatchModel{verb: verb, jobs: jobs}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m BatchModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case JobUpdateMsg:
		m.apply(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// apply copies the non-empty fields of msg onto its job.
func (m *BatchModel) apply(msg JobUpdateMsg) {
	if msg.Index < 0 || msg.Index >= len(m.jobs) {
		return
	}
	job := &m.jobs[msg.Index]
	if msg.Version != "" {
		job.Version = msg.Version
	}
	if msg.Status != "" {
		job.Status = msg.Status
	}
	if msg.Path != "" {
		job.Path = msg.Path
	}
	if msg.Err != nil {
		job.Error = msg.Err.Error()
	}
}

// View satisfies the tea.Model interface.
func (m BatchModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	m.renderTable(&b)

	if !m.done {
		finished, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s %s %d/%d...\n", spinner, m.verb, finished, total)
	}
	return b.String()
}

func (m BatchModel) renderTable(b *strings.Builder) {
	widths := make([]int, len(batchColumns))
	for i, col := range batchColumns {
		widths[i] = max(col.Width, len(col.Header))
		if !m.fit {
			continue
		}
		for _, job := range m.jobs {
			widths[i] = max(widths[i], len(job.fields()[i]))
		}
	}

	headers := make([]string, len(batchColumns))
	for i, col := range batchColumns {
		headers[i] = HeaderStyle.Render(pad(col.Header, widths[i]))
	}
	b.WriteString(strings.Join(headers, columnGap))
	b.WriteByte('\n')

	for _, job := range m.jobs {
		fields := job.fields()
		parts := make([]string, len(batchColumns))
		for i, col := range batchColumns {
			val := fields[i]
			if !m.done && len(strings.TrimSpace(val)) > widths[i] {
				val = marqueeText(val, widths[i], m.tick)
			} else {
				val = TruncateWithEllipsis(val, widths[i])
			}
			if col.Header == "STATUS" {
				parts[i] = StatusStyle(job.Status).Render(pad(val, widths[i]))
			} else {
				parts[i] = pad(val, widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, columnGap), " "))
		b.WriteByte('\n')
	}

	for _, job := range m.jobs {
		if job.Error != "" {
			fmt.Fprintf(b, "%s: %s\n", job.Expression, job.Error)
		}
	}
}

// progressCounts returns (finished, total), counting jobs in a final status.
func (m BatchModel) progressCounts() (int, int) {
	finished := 0
	for _, job := range m.jobs {
		if IsFinal(job.Status) {
			finished++
		}
	}
	return finished, len(m.jobs)
}

// Jobs returns a copy of the current job rows.
func (m BatchModel) Jobs() []Job {
	out := make([]Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

// Failed counts jobs that ended in error.
func (m BatchModel) Failed() int {
	n := 0
	for _, job := range m.jobs {
		if job.Status == StatusError {
			n++
		}
	}
	return n
}

// Done reports whether the model has finished.
func (m BatchModel) Done() bool {
	return m.done
}

// Interrupted reports whether the user quit before the work finished.
func (m BatchModel) Interrupted() bool {
	return m.interrupted
}

// Err returns any fatal error that occurred.
func (m BatchModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText renders a sliding window over text wider than width, with a
// gap between cycles.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	offset := tick % len(cycle)
	var out strings.Builder
	out.Grow(width)
	for i := 0; i < width; i++ {
		out.WriteByte(cycle[(offset+i)%len(cycle)])
	}
	return out.String()
}

// NonEmptyOrDash returns "-" for empty or blank strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis cuts value to max bytes, ending in "..." when there
// is room for it.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
