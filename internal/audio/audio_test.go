package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes 16-bit samples into a wav file under t.TempDir().
func writeWAV(t *testing.T, rate, channels int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestDecodeWAV(t *testing.T) {
	path := writeWAV(t, 8000, 1, []int{0, 16384, -16384, 32767})

	pcm, err := DecodeWAV(path)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if pcm.SampleRate != 8000 || pcm.Channels != 1 {
		t.Fatalf("format = %d Hz x %d, want 8000 x 1", pcm.SampleRate, pcm.Channels)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0}
	if len(pcm.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(pcm.Samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(pcm.Samples[i]-want[i])) > 1e-4 {
			t.Errorf("sample[%d] = %f, want %f", i, pcm.Samples[i], want[i])
		}
	}
}

func TestDecodeWAV_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeWAV(path); err == nil {
		t.Fatal("expected error for invalid wav")
	}
}

func TestPCM_MonoAndResample(t *testing.T) {
	stereo := &PCM{Samples: []float32{0.2, 0.4, -0.2, -0.4}, SampleRate: 32000, Channels: 2}
	mono := stereo.Mono()
	if mono.Channels != 1 || len(mono.Samples) != 2 {
		t.Fatalf("mono = %+v", mono)
	}
	if math.Abs(float64(mono.Samples[0]-0.3)) > 1e-6 {
		t.Errorf("mono[0] = %f, want 0.3", mono.Samples[0])
	}

	src := &PCM{Samples: make([]float32, 32000), SampleRate: 32000, Channels: 1}
	dst := src.Resample(16000)
	if dst.SampleRate != 16000 || len(dst.Samples) != 16000 {
		t.Errorf("resampled to %d Hz with %d samples, want 16000/16000", dst.SampleRate, len(dst.Samples))
	}
	if dst.DurationSec() != 1 {
		t.Errorf("DurationSec = %f, want 1", dst.DurationSec())
	}
}

func TestTrimSilence(t *testing.T) {
	const rate = 1000 // 30 samples per frame
	samples := make([]float32, 90)
	for i := 30; i < 60; i++ {
		samples[i] = 0.5
	}

	got := TrimSilence(samples, rate, 0.1)
	if len(got) != 30 {
		t.Fatalf("kept %d samples, want 30", len(got))
	}
	if len(TrimSilence(make([]float32, 90), rate, 0.1)) != 0 {
		t.Error("silent input not fully trimmed")
	}
	if len(TrimSilence(samples, rate, 0)) != 90 {
		t.Error("threshold 0 should disable trimming")
	}
}

func TestFingerprintFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	fp, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	if fp.MD5 != "900150983cd24fb0d6963f7d28e17f72" || fp.Size != 3 {
		t.Errorf("fingerprint = %+v", fp)
	}
}

func TestProbe_WAV(t *testing.T) {
	path := writeWAV(t, 8000, 1, make([]int, 8000))
	m, err := Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if math.Abs(m.DurationSec-1) > 0.01 {
		t.Errorf("DurationSec = %f, want 1", m.DurationSec)
	}
}
