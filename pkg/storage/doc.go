// Package storage persists the job set as a single JSON document.
//
// The document is an object keyed by job id. Writes go to a temporary file in
// the same directory which is then renamed over the target, so a crash never
// leaves a half-written schedule behind. A document that cannot be parsed is
// reported as jobs.ErrCorrupt and can be moved aside with Quarantine.
package storage
