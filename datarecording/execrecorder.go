package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTableName = "exec_info"

// execInfo is a property of the program execution.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

func newExecRecorder(recorder DataRecorder) (*execRecorder, error) {
	if err := recorder.CreateTable(execTableName, execInfo{}); err != nil {
		return nil, err
	}

	return &execRecorder{recorder: recorder}, nil
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", formatTime(time.Now())},
		execInfo{"Command", strings.Join(os.Args, " ")},
	)

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, execInfo{"Working Directory", cwd})
	}
}

// End writes the execution properties along with the end time.
func (e *execRecorder) End(props ...execInfo) error {
	e.entries = append(e.entries, props...)
	e.entries = append(e.entries, execInfo{"End Time", formatTime(time.Now())})

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(execTableName, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return nil
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}
