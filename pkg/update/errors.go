package update

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckFailed means the release provider could not be queried.
	ErrCheckFailed = errors.New("update check failed")
	// ErrNoUpdate means updates are not configured, no release asset
	// matched, or the latest release is not newer.
	ErrNoUpdate         = errors.New("no update available")
	ErrDownloadFailed   = errors.New("download failed")
	ErrChecksumMismatch = errors.New("sha256 checksum mismatch")
	ErrChecksumMissing  = errors.New("release has no sha256 checksum")
	ErrApplyFailed      = errors.New("could not apply update")
	// ErrBusy is returned when another pipeline run is in flight.
	ErrBusy = errors.New("an update is already in progress")
)

// Stage names a pipeline step.
type Stage string

const (
	StageCheck    Stage = "check"
	StageDownload Stage = "download"
	StageVerify   Stage = "verify"
	StageApply    Stage = "apply"
)

// StageError reports which stage aborted a pipeline run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("update %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
