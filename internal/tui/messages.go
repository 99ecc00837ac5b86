package tui

// JobUpdateMsg updates one job of a batch. Empty fields leave the job's
// current value in place.
type JobUpdateMsg struct {
	Index   int
	Version string
	Status  string
	Path    string
	Err     error
}

// WorkDoneMsg signals that every job has been attempted.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the program quits.
type ErrorMsg struct {
	Err error
}
