// Package service runs the curation passes over datasets: the automatic
// speech-recognition filter, the manual listening review and the session
// that sequences them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"audio-curator/internal/asr"
	"audio-curator/internal/audio"
	"audio-curator/internal/dataset"
	"audio-curator/internal/label"
	"audio-curator/internal/observe"
)

// PassSummary counts the outcome of one pass over one dataset.
type PassSummary struct {
	Dataset   string `json:"dataset"`
	Pass      string `json:"pass"`
	Kept      int    `json:"kept"`
	Discarded int    `json:"discarded"`
	Skipped   int    `json:"skipped"`
	Remaining int    `json:"remaining"`
}

type FilterStatus struct {
	Running   bool   `json:"running"`
	Dataset   string `json:"dataset,omitempty"`
	Processed int64  `json:"processed"`
	Kept      int64  `json:"kept"`
	Discarded int64  `json:"discarded"`
	Skipped   int64  `json:"skipped"`
	Elapsed   string `json:"elapsed"`
}

// FilterOption configures an AutomaticFilter.
type FilterOption func(*AutomaticFilter)

// WithUnknownMarker sets the path substring that exempts a sample from
// recognition. An empty marker exempts nothing.
func WithUnknownMarker(marker string) FilterOption {
	return func(f *AutomaticFilter) { f.unknownMarker = marker }
}

// WithMatcherOptions widens the keep rule with aliases or phonetic matching.
func WithMatcherOptions(opts ...label.Option) FilterOption {
	return func(f *AutomaticFilter) { f.matcherOpts = append(f.matcherOpts, opts...) }
}

func WithFilterReporter(r Reporter) FilterOption {
	return func(f *AutomaticFilter) { f.reporter = r }
}

func WithFilterMetrics(m *observe.Metrics) FilterOption {
	return func(f *AutomaticFilter) { f.metrics = m }
}

func WithFilterRunID(id string) FilterOption {
	return func(f *AutomaticFilter) { f.runID = id }
}

// RejectionHistory answers whether a file with the same content was
// discarded by an earlier run. *db.DB implements it.
type RejectionHistory interface {
	SeenRejected(ctx context.Context, hash, runID string) (bool, error)
}

// WithRejectionHistory notes earlier rejections of the same file content in
// the decision reason. It does not change the keep rule.
func WithRejectionHistory(h RejectionHistory) FilterOption {
	return func(f *AutomaticFilter) { f.history = h }
}

// AutomaticFilter keeps a sample only when the recognizer hears exactly one
// word in exactly one segment and that word names the sample's label.
// Everything else is relocated into the "automatic" rejection category.
type AutomaticFilter struct {
	transcriber   asr.Transcriber
	relocator     *dataset.Relocator
	reporter      Reporter
	metrics       *observe.Metrics
	logger        *slog.Logger
	unknownMarker string
	matcherOpts   []label.Option
	runID         string
	history       RejectionHistory

	running   int32
	processed int64
	kept      int64
	discarded int64
	skipped   int64
	startTime time.Time
	dataset   string
	mu        sync.Mutex
}

func NewAutomaticFilter(t asr.Transcriber, r *dataset.Relocator, logger *slog.Logger, opts ...FilterOption) *AutomaticFilter {
	f := &AutomaticFilter{
		transcriber:   t,
		relocator:     r,
		logger:        logger,
		unknownMarker: "unknown",
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.reporter == nil {
		f.reporter = NewLogReporter(logger)
	}
	return f
}

func (f *AutomaticFilter) Status() FilterStatus {
	f.mu.Lock()
	ds := f.dataset
	start := f.startTime
	f.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}
	return FilterStatus{
		Running:   atomic.LoadInt32(&f.running) == 1,
		Dataset:   ds,
		Processed: atomic.LoadInt64(&f.processed),
		Kept:      atomic.LoadInt64(&f.kept),
		Discarded: atomic.LoadInt64(&f.discarded),
		Skipped:   atomic.LoadInt64(&f.skipped),
		Elapsed:   elapsed.Round(time.Second).String(),
	}
}

// Run filters one dataset with a fresh cursor. A failed relocation or
// transcription aborts the pass and is returned.
func (f *AutomaticFilter) Run(ctx context.Context, store *dataset.Store) (PassSummary, error) {
	atomic.StoreInt32(&f.running, 1)
	defer atomic.StoreInt32(&f.running, 0)

	f.mu.Lock()
	f.dataset = store.Name()
	if f.startTime.IsZero() {
		f.startTime = time.Now()
	}
	f.mu.Unlock()

	sum := PassSummary{Dataset: store.Name(), Pass: PassAutomatic}
	matcher := label.NewMatcher(store.Labels(), f.matcherOpts...)
	cursor := dataset.NewCursor(store)

	f.logger.Info("automatic pass started", "dataset", store.Name(), "samples", store.Len())

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sample, ok := cursor.Next()
		if !ok {
			break
		}
		atomic.AddInt64(&f.processed, 1)

		d := Decision{RunID: f.runID, Dataset: store.Name(), Pass: PassAutomatic, Sample: sample}

		if f.unknownMarker != "" && strings.Contains(sample, f.unknownMarker) {
			d.Action = ActionSkip
			d.Reason = "unknown marker"
			f.reporter.Report(ctx, d)
			atomic.AddInt64(&f.skipped, 1)
			sum.Skipped++
			continue
		}

		seenBefore := f.seenRejected(ctx, sample)

		start := time.Now()
		segments, err := f.transcriber.Transcribe(ctx, sample)
		if f.metrics != nil {
			f.metrics.RecordASR(ctx, time.Since(start))
		}
		if err != nil {
			return sum, fmt.Errorf("transcribe %s: %w", sample, err)
		}

		token, reason, keep := judge(segments, sample, matcher)
		d.Token = token
		d.Reason = reason
		if seenBefore {
			d.Reason += "; " + reasonRejectedBefore
		}

		if keep {
			d.Action = ActionKeep
			f.reporter.Report(ctx, d)
			atomic.AddInt64(&f.kept, 1)
			sum.Kept++
			if f.metrics != nil {
				f.metrics.RecordKept(ctx, PassAutomatic)
			}
			continue
		}

		rel, err := f.relocator.Discard(cursor, dataset.CategoryAutomatic)
		if err != nil {
			return sum, err
		}
		d.Action = ActionDiscard
		d.Category = dataset.CategoryAutomatic
		d.Dest = rel.Dest
		f.reporter.Report(ctx, d)
		atomic.AddInt64(&f.discarded, 1)
		sum.Discarded++
		if f.metrics != nil {
			f.metrics.RecordDiscarded(ctx, dataset.CategoryAutomatic)
		}
		if !rel.More {
			break
		}
	}

	sum.Remaining = store.Len()
	f.logger.Info("automatic pass finished",
		"dataset", sum.Dataset,
		"kept", sum.Kept,
		"discarded", sum.Discarded,
		"skipped", sum.Skipped,
		"remaining", sum.Remaining,
	)
	return sum, nil
}

const reasonRejectedBefore = "rejected in an earlier run"

// seenRejected looks the sample's content up in the rejection history. Lookup
// failures are logged and treated as unseen.
func (f *AutomaticFilter) seenRejected(ctx context.Context, sample string) bool {
	if f.history == nil {
		return false
	}
	fp, err := audio.FingerprintFile(sample)
	if err != nil {
		f.logger.Warn("history: hash failed", "sample", sample, "error", err)
		return false
	}
	seen, err := f.history.SeenRejected(ctx, fp.MD5, f.runID)
	if err != nil {
		f.logger.Warn("history: lookup failed", "sample", sample, "error", err)
		return false
	}
	return seen
}

// judge applies the keep rule. It returns the recognized token (if there was
// exactly one), the reason for the decision and whether to keep the sample.
func judge(segments []asr.Segment, sample string, matcher *label.Matcher) (token, reason string, keep bool) {
	if len(segments) != 1 {
		return "", fmt.Sprintf("%d segments", len(segments)), false
	}
	words := segments[0].Words
	if len(words) != 1 {
		return "", fmt.Sprintf("%d words", len(words)), false
	}
	token = label.Normalize(words[0])
	how, ok := matcher.Match(token, sample)
	if !ok {
		return token, "no label match", false
	}
	return token, "matched " + how, true
}
