// Package alarmd wires the alarm engine together: configuration, the SQLite
// alarm store, the in-process timer service, playback, the schedule
// reconciler, the trigger-session manager, startup recovery and the HTTP
// control API.
package alarmd
