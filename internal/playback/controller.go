package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// defaultPulseInterval is the period of the repeating vibration pulse.
const defaultPulseInterval = time.Second

// Config selects what an active session should sound like.
type Config struct {
	// SoundID selects the alarm tone.
	SoundID string
	// Volume is in [0, 1].
	Volume float64
	// Loop repeats the tone until stopped.
	Loop bool
	// Vibrate runs the repeating vibration pulse alongside audio.
	Vibrate bool
}

// Output is the platform audio primitive: one stream at a time.
type Output interface {
	// Play starts the stream. Implementations stop any previous stream first.
	Play(ctx context.Context, soundID string, volume float64, loop bool) error
	// Halt stops the stream. Halting an idle output must be a no-op.
	Halt() error
}

// Vibrator is the platform vibration primitive, pulsed repeatedly while a
// session rings.
type Vibrator interface {
	Pulse(ctx context.Context) error
}

// Controller manages the audio/vibration output of the active session.
// Invariants: at most one live audio stream and one vibration ticker; Start
// implicitly stops first; Stop is idempotent and swallows output errors,
// since teardown runs on emergency paths where a user is trying to silence
// an alarm.
type Controller struct {
	// output is the audio backend.
	output Output
	// vibrator is the vibration backend.
	vibrator Vibrator

	// stopping guards against re-entrant Stop: an output error callback may
	// call back into Stop from inside a halt already in progress.
	stopping atomic.Bool

	// mu protects the fields below.
	mu sync.Mutex
	// playing reports whether a stream is live.
	playing bool
	// pulseStop terminates the vibration goroutine; nil when not vibrating.
	pulseStop chan struct{}
}

// NewController wires the controller to its output backends.
func NewController(output Output, vibrator Vibrator) *Controller {
	return &Controller{
		output:   output,
		vibrator: vibrator,
	}
}

// Start begins playback with the given configuration, stopping any previous
// stream first. Audio failure is returned for logging but leaves the
// controller consistent; vibration always starts when requested.
func (c *Controller) Start(ctx context.Context, cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltLocked(ctx)

	err := c.output.Play(ctx, cfg.SoundID, cfg.Volume, cfg.Loop)
	if err != nil {
		logger.ErrorKV(ctx, "Audio start failed", "sound_id", cfg.SoundID, "error", err)
	} else {
		c.playing = true
	}

	if cfg.Vibrate {
		c.pulseStop = make(chan struct{})
		go c.runPulse(ctx, c.pulseStop)
	}

	return err
}

// Stop tears down audio and vibration. Safe to call at any time, from any
// state, any number of times.
func (c *Controller) Stop(ctx context.Context) {
	// Re-entrant stop (output error callback -> Stop) must not recurse.
	if !c.stopping.CompareAndSwap(false, true) {
		return
	}
	defer c.stopping.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltLocked(ctx)
}

// IsPlaying reports whether an audio stream is currently live.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playing
}

// haltLocked stops audio and vibration; the caller holds c.mu.
func (c *Controller) haltLocked(ctx context.Context) {
	if c.playing {
		// Teardown failures are logged and swallowed: the stream may have
		// finished on its own and that must never escalate.
		if err := c.output.Halt(); err != nil {
			logger.WarnKV(ctx, "Audio stop failed", "error", err)
		}

		c.playing = false
	}

	if c.pulseStop != nil {
		close(c.pulseStop)
		c.pulseStop = nil
	}
}

// runPulse drives the repeating vibration pattern until stopped.
func (c *Controller) runPulse(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(defaultPulseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.vibrator.Pulse(ctx); err != nil {
				logger.WarnKV(ctx, "Vibration pulse failed", "error", err)
			}
		}
	}
}

// LogVibrator is the default Vibrator on hosts without a vibration motor.
type LogVibrator struct{}

// Pulse records the pulse at debug level.
func (LogVibrator) Pulse(ctx context.Context) error {
	logger.Debug(ctx, "Vibration pulse")

	return nil
}
