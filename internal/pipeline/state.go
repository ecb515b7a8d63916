package pipeline

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is the position of a job in the conversion state machine.
type State string

const (
	StateIdle         State = "idle"
	StateRemuxing     State = "remuxing"
	StateTranscoding  State = "transcoding"
	StateOptimizing   State = "optimizing"
	StateSnapshotting State = "snapshotting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage names one external step.
type Stage string

const (
	StageRemux     Stage = "remux"
	StageTranscode Stage = "transcode"
	StageOptimize  Stage = "optimize"
	StageSnapshot  Stage = "snapshot"
	StageCopy      Stage = "copy"
)

var titleCaser = cases.Title(language.Und)

// Label returns the display form of a stage name, e.g. "Transcode".
func (s Stage) Label() string {
	return titleCaser.String(string(s))
}

// Label returns the display form of a state, e.g. "Snapshotting".
func (s State) Label() string {
	return titleCaser.String(string(s))
}

// Fatal reports whether a failure in s aborts the run. Remux, snapshot and
// copy failures are recorded as partial and the run continues.
func (s Stage) Fatal() bool {
	return s == StageTranscode || s == StageOptimize
}
