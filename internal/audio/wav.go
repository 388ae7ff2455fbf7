package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// PCM is decoded audio as interleaved float32 samples in [-1, 1].
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (p *PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// DurationSec returns the playback length in seconds.
func (p *PCM) DurationSec() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// DecodeWAV reads a whole PCM WAV file.
func DecodeWAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, errors.New("audio: wav without format")
	}

	depth := int(d.BitDepth)
	if depth <= 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			// 8-bit wav is unsigned
			out[i] = float32(v-128) / 128
			continue
		}
		out[i] = float32(v) / scale
	}

	return &PCM{
		Samples:    out,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// Mono averages all channels into one.
func (p *PCM) Mono() *PCM {
	if p.Channels <= 1 {
		return p
	}
	frames := p.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < p.Channels; c++ {
			sum += p.Samples[i*p.Channels+c]
		}
		out[i] = sum / float32(p.Channels)
	}
	return &PCM{Samples: out, SampleRate: p.SampleRate, Channels: 1}
}

// Resample converts mono audio to rate with linear interpolation.
func (p *PCM) Resample(rate int) *PCM {
	if p.SampleRate == rate || rate <= 0 || p.SampleRate <= 0 || len(p.Samples) == 0 {
		return p
	}
	src := p.Mono().Samples
	n := int(int64(len(src)) * int64(rate) / int64(p.SampleRate))
	out := make([]float32, n)
	step := float64(p.SampleRate) / float64(rate)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j+1 >= len(src) {
			out[i] = src[len(src)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = src[j]*(1-frac) + src[j+1]*frac
	}
	return &PCM{Samples: out, SampleRate: rate, Channels: 1}
}
