package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "whisper-1"

// Compile-time assertion that OpenAIClient satisfies Transcriber.
var _ Transcriber = (*OpenAIClient)(nil)

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	timeout time.Duration
}

// WithOpenAIBaseURL points the client at a compatible server.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithOpenAITimeout bounds each request.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// OpenAIClient uses the OpenAI transcription API with verbose JSON output so
// that segments are available. The API has no voice-activity switch; its own
// segmentation skips silence.
type OpenAIClient struct {
	client   openai.Client
	model    string
	language string
}

// NewOpenAIClient returns a client authenticated with apiKey.
func NewOpenAIClient(apiKey, model, language string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("asr: openai api key must not be empty")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if language == "" {
		language = defaultLanguage
	}

	cfg := &openAIConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &OpenAIClient{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		language: language,
	}, nil
}

type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe uploads path and returns the recognized segments.
func (c *OpenAIClient) Transcribe(ctx context.Context, path string) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(c.model),
		Language:       openai.String(c.language),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("asr: openai transcription: %w", err)
	}

	var verbose verboseTranscription
	if raw := resp.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &verbose); err != nil {
			return nil, fmt.Errorf("asr: decode openai response: %w", err)
		}
	} else {
		verbose.Text = resp.Text
	}

	if len(verbose.Segments) == 0 {
		seg := NewSegment(verbose.Text, 0, 0)
		if seg.Text == "" || isAnnotation(seg.Text) {
			return nil, nil
		}
		return []Segment{seg}, nil
	}
	segs := make([]Segment, 0, len(verbose.Segments))
	for _, s := range verbose.Segments {
		if isAnnotation(s.Text) {
			continue
		}
		segs = append(segs, NewSegment(s.Text, int(s.Start*1000), int(s.End*1000)))
	}
	return segs, nil
}

// Close is a no-op.
func (c *OpenAIClient) Close() error { return nil }
