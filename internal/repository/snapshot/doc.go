// Package snapshot implements persistence for the active-session record.
//
// The FileRepository stores the currently ringing alarm as versioned JSON on
// disk so startup recovery can re-enter the ringing state after a crash, and
// safely ignore records written by an incompatible schema.
package snapshot
