package audio

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
)

// Metadata is what the journal records about a sample besides its hash.
type Metadata struct {
	DurationSec float64 `json:"duration_sec"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
	Codec       string  `json:"codec,omitempty"`
	Format      string  `json:"format,omitempty"`
}

// Probe reads stream metadata with ffprobe. Without ffprobe on PATH it falls
// back to decoding the file as WAV.
func Probe(ctx context.Context, path string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	out, err := cmd.Output()
	if errors.Is(err, exec.ErrNotFound) {
		return probeWAV(path)
	}
	if err != nil {
		return nil, err
	}

	var probe struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			CodecName  string `json:"codec_name"`
		} `json:"streams"`
		Format struct {
			Duration   string `json:"duration"`
			FormatName string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	m := &Metadata{Format: probe.Format.FormatName}
	if probe.Format.Duration != "" {
		m.DurationSec, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}
	if len(probe.Streams) > 0 {
		s := probe.Streams[0]
		m.SampleRate, _ = strconv.Atoi(s.SampleRate)
		m.Channels = s.Channels
		m.Codec = s.CodecName
	}
	return m, nil
}

func probeWAV(path string) (*Metadata, error) {
	pcm, err := DecodeWAV(path)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		DurationSec: pcm.DurationSec(),
		SampleRate:  pcm.SampleRate,
		Channels:    pcm.Channels,
		Codec:       "pcm",
		Format:      "wav",
	}, nil
}
