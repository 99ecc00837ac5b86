package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"tfvm/internal/install"
	"tfvm/internal/manager"
)

// Reporter turns manager results and installer stage callbacks into
// JobUpdateMsg values for the job currently running. Jobs run one at a
// time, so stage callbacks are attributed to the most recent Begin.
type Reporter struct {
	action manager.Action
	send   func(tea.Msg)

	mu      sync.Mutex
	current int
}

// NewReporter creates a reporter for action. A nil send discards updates.
func NewReporter(action manager.Action, send func(tea.Msg)) *Reporter {
	if send == nil {
		send = func(tea.Msg) {}
	}
	return &Reporter{action: action, send: send, current: -1}
}

// Begin marks job index as running.
func (r *Reporter) Begin(index int) {
	r.mu.Lock()
	r.current = index
	r.mu.Unlock()
	r.send(JobUpdateMsg{Index: index, Status: StatusResolving})
}

// Stage is an install.WithReporter callback.
func (r *Reporter) Stage(v string, stage install.Stage) {
	r.mu.Lock()
	index := r.current
	r.mu.Unlock()
	if index < 0 {
		return
	}
	r.send(JobUpdateMsg{Index: index, Version: v, Status: string(stage)})
}

// Finish records the outcome of job index.
func (r *Reporter) Finish(index int, res manager.Result, err error) {
	msg := JobUpdateMsg{Index: index, Version: res.Version, Path: res.Path}
	switch {
	case err != nil:
		msg.Status = StatusError
		msg.Err = err
	case !res.Changed:
		msg.Status = StatusUnchanged
	case r.action == manager.ActionRemove:
		msg.Status = string(install.StageRemoved)
	default:
		msg.Status = string(install.StageInstalled)
	}
	r.send(msg)
}
