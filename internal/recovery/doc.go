// Package recovery re-enters a ringing session after a process restart,
// from the persisted snapshot when one applies, otherwise by scanning the
// enabled alarms for a window that is open right now.
package recovery
