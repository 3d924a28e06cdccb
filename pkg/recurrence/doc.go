// Package recurrence turns a user-facing recurrence description into concrete
// firing instants. Everything here is pure: no clocks, no timers, no I/O.
//
// A Rule is a closed set of variants (Once, Daily, Weekly, Weekdays, Custom).
// Next computes the first occurrence strictly after a reference instant, or
// reports that the rule is exhausted.
package recurrence
