package publish

import (
	"errors"
	"fmt"
)

// Stage is a step of the publish state machine.
type Stage int

const (
	// StageIdle is the state before Run.
	StageIdle Stage = iota
	// StageValidating checks local inputs and connects the transport.
	StageValidating
	// StageCleaning purges the target location.
	StageCleaning
	// StageUploading copies the public key, the manifest and the extension tree.
	StageUploading
	// StageComplete is the terminal success state.
	StageComplete
	// StageFailed is the terminal failure state.
	StageFailed
)

var (
	// ErrPreflightFailed is returned when a required local input is missing.
	ErrPreflightFailed = errors.New("publish preflight failed")
	// ErrPublishInProgress is returned when another publish of the same project is running.
	ErrPublishInProgress = errors.New("a publish is already in progress")
)

// String returns the lower-case stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageValidating:
		return "validating"
	case StageCleaning:
		return "cleaning"
	case StageUploading:
		return "uploading"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State is a snapshot of a publish operation.
type State struct {
	Stage Stage
	// Step and Total describe upload progress in coarse units.
	Step  int
	Total int
	// Failure is set in StageFailed.
	Failure *Failure
}

// Failure describes why a publish stopped.
type Failure struct {
	// Stage is the stage that failed.
	Stage Stage
	// Path is the offending local or remote path, when known.
	Path string
	Err  error
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("publish failed while %s: %v", f.Stage, f.Err)
	}

	return fmt.Sprintf("publish failed while %s %s: %v", f.Stage, f.Path, f.Err)
}

// Unwrap exposes the cause.
func (f *Failure) Unwrap() error {
	return f.Err
}
