// Package scheduler fires jobs at their next occurrence.
//
// The Engine is a single goroutine owning a min-heap of pending events sorted
// by trigger time. Arm and Disarm are requests served by that goroutine, so
// they never interleave with a firing. The loop sleeps at most 60 seconds at a
// time to cope with NTP steps, DST transitions and system sleep.
//
// When an event is due the job moves to Firing and its actuator runs on a
// separate goroutine. Once the actuation returns, the loop computes the next
// occurrence after the fired instant and either re-arms the job or leaves it
// inert. The engine persists nothing; the job store re-arms every job on
// startup.
package scheduler
