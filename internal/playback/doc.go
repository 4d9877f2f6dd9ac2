// Package playback manages the audio and vibration output of an active
// alarm session with guaranteed stop-on-exit semantics.
//
// Controller enforces at most one live stream and one vibration ticker;
// ToneOutput is the oto-backed production audio backend, SilentOutput the
// disabled-audio stand-in.
package playback
