package pipeline

import "fmt"

type Stage int

const (
	StageLoad Stage = iota + 1
	StageSeparate
	StageOnsets
	StageClassify
	StageTempo
	StageSequence
	StageWrite
)

const stageCount = int(StageWrite)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageSeparate:
		return "separate"
	case StageOnsets:
		return "onsets"
	case StageClassify:
		return "classify"
	case StageTempo:
		return "tempo"
	case StageSequence:
		return "sequence"
	case StageWrite:
		return "write"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError names the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
