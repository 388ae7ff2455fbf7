package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Player plays WAV files on the default output device. Play blocks until the
// file has been written to the device.
type Player struct {
	logger *slog.Logger
	mu     sync.Mutex
}

// NewPlayer initializes PortAudio. Close must be called to release it.
func NewPlayer(logger *slog.Logger) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	return &Player{logger: logger}, nil
}

// Close terminates PortAudio.
func (p *Player) Close() error {
	return portaudio.Terminate()
}

// Play decodes path and plays it to completion. Cancelling ctx stops
// playback between buffers.
func (p *Player) Play(ctx context.Context, path string) error {
	pcm, err := DecodeWAV(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]float32, framesPerBuffer*pcm.Channels)
	stream, err := portaudio.OpenDefaultStream(0, pcm.Channels, float64(pcm.SampleRate), framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("open stream failed: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream failed: %w", err)
	}
	defer stream.Stop()

	p.logger.Debug("playing sample", "sample", path, "duration_sec", pcm.DurationSec())

	for off := 0; off < len(pcm.Samples); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm.Samples[off:])
		clear(out[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("stream write failed: %w", err)
		}
	}
	return nil
}
