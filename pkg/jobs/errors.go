package jobs

import (
	"errors"
	"strings"
)

var (
	ErrInvalidJob = errors.New("invalid job")
	ErrNotFound   = errors.New("job not found")
	// ErrCorrupt is wrapped by persisters whose backing data cannot be parsed.
	ErrCorrupt = errors.New("schedule data is corrupt")
	// ErrPersist means the in-memory change took effect but was not saved.
	ErrPersist = errors.New("failed to save schedule")
)

// InvalidJobError lists the fields that failed validation.
type InvalidJobError struct {
	Fields  []string
	Reasons []string
}

func (e *InvalidJobError) Error() string {
	return "invalid job: " + strings.Join(e.Reasons, "; ")
}

func (e *InvalidJobError) Unwrap() error {
	return ErrInvalidJob
}

func (e *InvalidJobError) add(field, reason string) {
	e.Fields = append(e.Fields, field)
	e.Reasons = append(e.Reasons, field+": "+reason)
}

// Has reports whether field failed validation.
func (e *InvalidJobError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
