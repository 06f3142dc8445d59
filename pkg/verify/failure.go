package verify

import (
	"fmt"
	"time"

	"SiteProbe/pkg/expectation"
)

// Stage names the check a failure happened in.
type Stage string

const (
	StageLocate   Stage = "locate"
	StageText     Stage = "text"
	StageHref     Stage = "href"
	StageLiveness Stage = "liveness"
	StageInternal Stage = "internal"
)

// Failure is a fatal verification failure of one expectation.
type Failure struct {
	Selector string
	Stage    Stage
	Reason   string
	Cause    error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Cause)
	}
	return f.Reason
}

func (f *Failure) Unwrap() error { return f.Cause }

func fatal(selector string, stage Stage, cause error, format string, args ...any) *Failure {
	return &Failure{
		Selector: selector,
		Stage:    stage,
		Reason:   fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}

// Outcome is the result of verifying one expectation. Reason is set only on
// failure; Warnings carry soft findings and never fail the outcome.
type Outcome struct {
	Success  bool
	Reason   string
	Warnings []string
	Selector string
	Kind     expectation.Kind
	Duration time.Duration
	// Failure is the fatal failure behind Reason, nil on success.
	Failure *Failure
}

// Err returns the fatal failure as an error, or nil.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

func (o *Outcome) fail(f *Failure) {
	o.Success = false
	o.Failure = f
	o.Reason = f.Error()
}
