// Package http exposes the control API of the alarm engine: alarm CRUD,
// schedule introspection and trigger-session actions, as JSON over a plain
// net/http mux.
package http
