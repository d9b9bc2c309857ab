package datarecording

import (
	"strconv"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// StepTableName is the table that holds the steps of a simulation.
const StepTableName = "steps"

// GlobalNode is the node recorded for global reactions.
const GlobalNode = -1

// StepEntry is a row of the step table.
type StepEntry struct {
	Step     uint64
	Time     float64
	Node     int
	Reaction string
}

// StepRecorder is an engine monitor that records every step it is told
// about. Rows are buffered and written in batches.
type StepRecorder struct {
	recorder DataRecorder
	exec     *execRecorder
}

// NewStepRecorder creates the tables of a StepRecorder.
func NewStepRecorder(recorder DataRecorder) (*StepRecorder, error) {
	if err := recorder.CreateTable(StepTableName, StepEntry{}); err != nil {
		return nil, err
	}

	exec, err := newExecRecorder(recorder)
	if err != nil {
		return nil, err
	}

	return &StepRecorder{
		recorder: recorder,
		exec:     exec,
	}, nil
}

// Initialized starts recording the execution.
func (r *StepRecorder) Initialized(_ model.Environment) error {
	r.exec.Start()
	return nil
}

// StepDone buffers a row for the step.
func (r *StepRecorder) StepDone(
	_ model.Environment,
	reaction model.Reaction,
	now timing.VTimeInSec,
	step uint64,
) error {
	node := GlobalNode
	if n := reaction.Node(); n != nil {
		node = n.ID()
	}

	return r.recorder.InsertData(StepTableName, StepEntry{
		Step:     step,
		Time:     float64(now),
		Node:     node,
		Reaction: model.NameOf(reaction),
	})
}

// Finished records the end of the execution and flushes every buffered row.
func (r *StepRecorder) Finished(
	_ model.Environment,
	now timing.VTimeInSec,
	step uint64,
) error {
	err := r.exec.End(
		execInfo{"Final Time", now.String()},
		execInfo{"Steps", strconv.FormatUint(step, 10)},
	)
	if err != nil {
		return err
	}

	return r.recorder.Flush()
}
