// Package platform abstracts the host timer/notification substrate.
//
// Timer delivers payloads asynchronously at requested instants with no
// exactly-once guarantee; Alerter is the best-effort fallback alert channel.
// LocalTimer is the in-process implementation the daemon runs with.
package platform
