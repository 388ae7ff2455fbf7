package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"audio-curator/internal/audio"
)

const defaultVADThreshold = 0.01

// Compile-time assertion that Native satisfies Transcriber.
var _ Transcriber = (*Native)(nil)

// NativeOption configures a Native transcriber.
type NativeOption func(*Native)

// WithNativeLanguage sets the recognition language. Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) {
		if lang != "" {
			n.language = lang
		}
	}
}

// WithVADThreshold sets the RMS level under which 30 ms frames are treated as
// non-speech and dropped before inference. Defaults to 0.01.
func WithVADThreshold(threshold float64) NativeOption {
	return func(n *Native) {
		if threshold > 0 {
			n.vadThreshold = threshold
		}
	}
}

// Native runs whisper.cpp in-process through its CGO bindings. The model is
// loaded once; each call gets its own context.
type Native struct {
	model        whisperlib.Model
	language     string
	vadThreshold float64
	logger       *slog.Logger
	closeOnce    sync.Once
}

// NewNative loads the model at modelPath.
func NewNative(modelPath string, logger *slog.Logger, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("asr: whisper model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("asr: load model %q: %w", modelPath, err)
	}

	n := &Native{
		model:        model,
		language:     defaultLanguage,
		vadThreshold: defaultVADThreshold,
		logger:       logger,
	}
	for _, o := range opts {
		o(n)
	}
	logger.Info("whisper model loaded", "path", modelPath, "language", n.language)
	return n, nil
}

// Transcribe decodes path, drops silent frames and runs inference. A sample
// with no voiced frames yields no segments.
func (n *Native) Transcribe(ctx context.Context, path string) ([]Segment, error) {
	pcm, err := audio.DecodeWAV(path)
	if err != nil {
		return nil, err
	}
	samples := pcm.Resample(whisperlib.SampleRate).Mono().Samples
	samples = audio.TrimSilence(samples, whisperlib.SampleRate, n.vadThreshold)
	if len(samples) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("asr: create context: %w", err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		n.logger.Warn("whisper: failed to set language, using default", "language", n.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("asr: process %s: %w", path, err)
	}

	var segs []Segment
	for {
		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("asr: read segment: %w", err)
		}
		if isAnnotation(s.Text) {
			continue
		}
		segs = append(segs, NewSegment(s.Text, int(s.Start.Milliseconds()), int(s.End.Milliseconds())))
	}
	return segs, nil
}

// Close releases the model.
func (n *Native) Close() error {
	var err error
	n.closeOnce.Do(func() { err = n.model.Close() })
	return err
}
