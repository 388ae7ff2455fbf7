// Package asr wraps the speech-recognition engines used to check samples.
// Every backend returns the same shape: segments of normalized words.
package asr

import (
	"context"
	"strings"

	"audio-curator/internal/label"
)

// Segment is one recognized span of speech.
type Segment struct {
	Text    string
	Words   []string
	StartMs int
	EndMs   int
}

// Transcriber turns an audio file into segments. Implementations filter out
// non-speech before recognition and use a fixed language.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) ([]Segment, error)
	Close() error
}

// Backend names accepted by the configuration.
const (
	BackendNative = "native"
	BackendLocal  = "local"
	BackendOpenAI = "openai"
)

const defaultLanguage = "en"

// NewSegment builds a segment from raw recognizer text.
func NewSegment(text string, startMs, endMs int) Segment {
	text = strings.TrimSpace(text)
	return Segment{
		Text:    text,
		Words:   label.Words(text),
		StartMs: startMs,
		EndMs:   endMs,
	}
}

// isAnnotation reports whether text is a non-speech marker such as
// "[BLANK_AUDIO]" or "(music)" that whisper emits in place of words.
func isAnnotation(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return false
	}
	first, last := text[0], text[len(text)-1]
	return (first == '[' && last == ']') || (first == '(' && last == ')')
}
