// Package alarmstore implements persistence for alarm definitions.
//
// The SQLiteStore keeps alarms in a single-table SQLite database and exposes
// a Store interface the scheduling core depends on; the core only ever
// mutates the enabled bit (one-shot completion), everything else belongs to
// the editing surface.
package alarmstore
