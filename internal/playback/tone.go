package playback

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const (
	toneSampleRate   = 44100
	toneChannelCount = 2
	toneBytesPerSamp = 2
	// toneBurstSeconds is the length of one non-looped tone burst.
	toneBurstSeconds = 2
)

// toneFrequencies maps sound ids to tone pitches. Unknown ids use the default.
var toneFrequencies = map[string]float64{
	"classic": 880,
	"gentle":  440,
	"urgent":  1320,
}

const defaultToneFrequency = 660

// Shared audio context: oto allows only one per process.
var (
	otoCtx     *oto.Context
	otoCtxErr  error
	otoCtxOnce sync.Once
)

// audioContext initializes the process-wide oto context on first use and
// waits for the hardware device to become ready.
func audioContext() (*oto.Context, error) {
	otoCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   toneSampleRate,
			ChannelCount: toneChannelCount,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoCtxErr = fmt.Errorf("init audio context: %w", err)

			return
		}

		<-ready
		otoCtx = ctx
	})

	return otoCtx, otoCtxErr
}

// ToneOutput is the production Output: it synthesizes a sine tone for the
// requested sound id and streams it through oto.
type ToneOutput struct {
	mu     sync.Mutex
	player *oto.Player
}

// NewToneOutput returns an Output backed by the system audio device.
func NewToneOutput() *ToneOutput {
	return &ToneOutput{}
}

// Play starts streaming the tone, replacing any previous stream.
func (o *ToneOutput) Play(_ context.Context, soundID string, volume float64, loop bool) error {
	ctx, err := audioContext()
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		_ = o.player.Close()
		o.player = nil
	}

	freq, ok := toneFrequencies[soundID]
	if !ok {
		freq = defaultToneFrequency
	}

	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	o.player = ctx.NewPlayer(newToneReader(freq, loop))
	o.player.SetVolume(volume)
	o.player.Play()

	return nil
}

// Halt stops and releases the current stream. Halting twice is a no-op.
func (o *ToneOutput) Halt() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}

	err := o.player.Close()
	o.player = nil

	return err
}

// toneReader produces 16-bit little-endian stereo PCM of a sine wave.
// When loop is false it ends after toneBurstSeconds.
type toneReader struct {
	freq float64
	loop bool
	// pos counts emitted frames.
	pos int64
}

func newToneReader(freq float64, loop bool) *toneReader {
	return &toneReader{
		freq: freq,
		loop: loop,
	}
}

// Read fills p with PCM frames.
func (r *toneReader) Read(p []byte) (int, error) {
	const frameBytes = toneChannelCount * toneBytesPerSamp

	limit := int64(math.MaxInt64)
	if !r.loop {
		limit = toneBurstSeconds * toneSampleRate
	}

	if r.pos >= limit {
		return 0, io.EOF
	}

	frames := len(p) / frameBytes
	if remaining := limit - r.pos; int64(frames) > remaining {
		frames = int(remaining)
	}

	for i := 0; i < frames; i++ {
		sample := math.Sin(2 * math.Pi * r.freq * float64(r.pos) / toneSampleRate)
		v := int16(sample * math.MaxInt16 * 0.8)

		for ch := 0; ch < toneChannelCount; ch++ {
			offset := (i*toneChannelCount + ch) * toneBytesPerSamp
			p[offset] = byte(v)
			p[offset+1] = byte(v >> 8)
		}

		r.pos++
	}

	return frames * frameBytes, nil
}
