package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Compile-time assertion that LocalClient satisfies Transcriber.
var _ Transcriber = (*LocalClient)(nil)

// LocalClient talks to a faster-whisper HTTP server: POST /transcribe with a
// multipart "audio" file, GET /health.
type LocalClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewLocalClient returns a client for the server at baseURL.
func NewLocalClient(baseURL, language string, timeout time.Duration) (*LocalClient, error) {
	if baseURL == "" {
		return nil, errors.New("asr: whisper local URL must not be empty")
	}
	if language == "" {
		language = defaultLanguage
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &LocalClient{
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type localResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe uploads path with voice-activity filtering enabled. When the
// server answers with plain text only, non-empty text counts as one segment.
func (c *LocalClient) Transcribe(ctx context.Context, path string) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	writer.WriteField("language", c.language)
	writer.WriteField("vad_filter", "true")
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asr: whisper local status %d: %s", resp.StatusCode, string(body))
	}

	var result localResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("asr: decode whisper local response: %w", err)
	}

	if len(result.Segments) == 0 {
		seg := NewSegment(result.Text, 0, int(result.Duration*1000))
		if seg.Text == "" || isAnnotation(seg.Text) {
			return nil, nil
		}
		return []Segment{seg}, nil
	}
	segs := make([]Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		if isAnnotation(s.Text) {
			continue
		}
		segs = append(segs, NewSegment(s.Text, int(s.Start*1000), int(s.End*1000)))
	}
	return segs, nil
}

// Health checks that the server is up.
func (c *LocalClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asr: whisper local health status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (c *LocalClient) Close() error { return nil }
