// Package testfixtures holds shared helpers for deterministic tests,
// most importantly a controllable Clock injected wherever production code
// takes a now function.
package testfixtures
