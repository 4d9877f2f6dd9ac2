package playback

import "context"

// SilentOutput is an Output that produces no sound. It is used when audio is
// disabled in configuration, keeping the full playback lifecycle exercised.
type SilentOutput struct{}

// Play does nothing and succeeds.
func (SilentOutput) Play(context.Context, string, float64, bool) error {
	return nil
}

// Halt does nothing and succeeds.
func (SilentOutput) Halt() error {
	return nil
}
