package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errHaltBoom = errors.New("stream already finished")

// fakeOutput records Play/Halt calls and can fail on demand.
type fakeOutput struct {
	mu      sync.Mutex
	plays   int
	halts   int
	playErr error
	haltErr error
	// onHalt, when set, is invoked during Halt to simulate a backend that
	// calls back into the controller mid-teardown.
	onHalt func()
}

func (f *fakeOutput) Play(_ context.Context, _ string, _ float64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.plays++

	return f.playErr
}

func (f *fakeOutput) Halt() error {
	f.mu.Lock()
	f.halts++
	cb := f.onHalt
	err := f.haltErr
	f.mu.Unlock()

	if cb != nil {
		cb()
	}

	return err
}

func (f *fakeOutput) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.plays, f.halts
}

// TestStartStopLifecycle covers the single-stream invariant and implicit
// stop-before-start.
func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	out := new(fakeOutput)
	c := NewController(out, LogVibrator{})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, Config{SoundID: "classic", Volume: 1, Loop: true}))
	require.True(t, c.IsPlaying())

	// Starting again stops the first stream first.
	require.NoError(t, c.Start(ctx, Config{SoundID: "gentle", Volume: 1, Loop: true}))

	plays, halts := out.counts()
	require.Equal(t, 2, plays)
	require.Equal(t, 1, halts)

	c.Stop(ctx)
	require.False(t, c.IsPlaying())

	// Stopping twice is a no-op.
	c.Stop(ctx)

	_, halts = out.counts()
	require.Equal(t, 2, halts)
}

// TestStopSwallowsOutputErrors ensures teardown failures never escalate.
func TestStopSwallowsOutputErrors(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{haltErr: errHaltBoom}
	c := NewController(out, LogVibrator{})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, Config{SoundID: "classic"}))

	// Must not panic or return anything.
	c.Stop(ctx)
	require.False(t, c.IsPlaying())
}

// TestReentrantStopDoesNotRecurse simulates the audio-error-callback loop:
// the backend calls Stop from inside Halt.
func TestReentrantStopDoesNotRecurse(t *testing.T) {
	t.Parallel()

	out := new(fakeOutput)
	c := NewController(out, LogVibrator{})
	ctx := context.Background()

	out.onHalt = func() {
		c.Stop(ctx) // must return immediately, not deadlock
	}

	require.NoError(t, c.Start(ctx, Config{SoundID: "classic"}))
	c.Stop(ctx)

	_, halts := out.counts()
	require.Equal(t, 1, halts)
}

// TestStartFailureLeavesControllerConsistent verifies a failed Play is
// reported but a later Stop stays safe.
func TestStartFailureLeavesControllerConsistent(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{playErr: errors.New("device busy")}
	c := NewController(out, LogVibrator{})
	ctx := context.Background()

	require.Error(t, c.Start(ctx, Config{SoundID: "classic"}))
	require.False(t, c.IsPlaying())

	c.Stop(ctx)

	_, halts := out.counts()
	require.Zero(t, halts, "no stream to halt")
}

// TestToneReader checks PCM generation bounds and burst termination.
func TestToneReader(t *testing.T) {
	t.Parallel()

	// Looping reader never ends.
	r := newToneReader(880, true)
	buf := make([]byte, 1024)

	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	// Non-looping reader ends after the burst.
	r = newToneReader(880, false)
	total := 0

	for {
		n, err = r.Read(buf)
		total += n

		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)
	}

	require.Equal(t, toneBurstSeconds*toneSampleRate*toneChannelCount*toneBytesPerSamp, total)
}
