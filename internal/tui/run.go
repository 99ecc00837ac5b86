package tui

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// programOptions are appended to every program RunWithWork starts.
var programOptions []tea.ProgramOption

// RunWithWork starts a bubbletea program for model, runs workFn in a
// goroutine and blocks until both the program and workFn have returned.
// workFn receives a send callback that forwards messages to the program with
// a small yield so the renderer can draw between updates. When the program
// quits first, for example on ctrl+c, stop is called so workFn can unwind.
func RunWithWork(out io.Writer, model BatchModel, workFn func(send func(tea.Msg)), stop func()) (BatchModel, error) {
	opts := append([]tea.ProgramOption{tea.WithOutput(out)}, programOptions...)
	p := tea.NewProgram(model, opts...)
	workDone := make(chan struct{})

	go func() {
		defer close(workDone)
		// Let bubbletea start its event loop and render the first frame.
		time.Sleep(50 * time.Millisecond)

		workFn(func(msg tea.Msg) {
			p.Send(msg)
			time.Sleep(5 * time.Millisecond)
		})

		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	select {
	case <-workDone:
	default:
		if stop != nil {
			stop()
		}
		// Send is a no-op once the program has exited, so workFn cannot block.
		<-workDone
	}
	if err != nil {
		return model, err
	}
	m, ok := finalModel.(BatchModel)
	if !ok {
		return model, fmt.Errorf("unexpected model %T", finalModel)
	}
	return m, m.Err()
}

// RunPlain runs workFn on the calling goroutine, applies every message to
// model and writes the finished table to out. Columns are sized to their
// content so nothing is cut off.
func RunPlain(out io.Writer, model BatchModel, workFn func(send func(tea.Msg))) (BatchModel, error) {
	model.fit = true
	workFn(func(msg tea.Msg) {
		updated, _ := model.Update(msg)
		model = updated.(BatchModel)
	})
	updated, _ := model.Update(WorkDoneMsg{})
	model = updated.(BatchModel)

	if _, err := io.WriteString(out, model.View()); err != nil {
		return model, err
	}
	return model, model.Err()
}
