package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"audio-curator/internal/dataset"
	"audio-curator/internal/keys"
	"audio-curator/internal/observe"

	"golang.org/x/sync/errgroup"
)

const defaultReviewPause = 500 * time.Millisecond

// Player plays a sample to completion. *audio.Player implements it.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandSource delivers review commands until the reviewer quits.
// *keys.Source implements it.
type CommandSource interface {
	Listen(ctx context.Context, out chan<- keys.Command) error
	Show(lines ...string)
}

type ReviewStatus struct {
	Running   bool   `json:"running"`
	Dataset   string `json:"dataset,omitempty"`
	Sample    string `json:"sample,omitempty"`
	Played    int64  `json:"played"`
	Discarded int64  `json:"discarded"`
	Commands  int64  `json:"commands"`
}

type ReviewOption func(*ManualReviewer)

// WithReviewPause sets the delay between two samples.
func WithReviewPause(d time.Duration) ReviewOption {
	return func(r *ManualReviewer) { r.pause = d }
}

func WithReviewReporter(rep Reporter) ReviewOption {
	return func(r *ManualReviewer) { r.reporter = rep }
}

func WithReviewMetrics(m *observe.Metrics) ReviewOption {
	return func(r *ManualReviewer) { r.metrics = m }
}

func WithReviewRunID(id string) ReviewOption {
	return func(r *ManualReviewer) { r.runID = id }
}

// ManualReviewer plays every remaining sample and applies the reviewer's
// commands while playback runs: back and forward move the cursor, discard
// relocates the current sample into the "manual" category, quit ends the
// dataset.
type ManualReviewer struct {
	player    Player
	source    CommandSource
	relocator *dataset.Relocator
	reporter  Reporter
	metrics   *observe.Metrics
	logger    *slog.Logger
	pause     time.Duration
	runID     string

	running   int32
	played    int64
	discarded int64
	commands  int64
	mu        sync.Mutex
	dataset   string
	sample    string
}

func NewManualReviewer(p Player, src CommandSource, r *dataset.Relocator, logger *slog.Logger, opts ...ReviewOption) *ManualReviewer {
	m := &ManualReviewer{
		player:    p,
		source:    src,
		relocator: r,
		logger:    logger,
		pause:     defaultReviewPause,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.reporter == nil {
		m.reporter = NewLogReporter(logger)
	}
	return m
}

func (m *ManualReviewer) Status() ReviewStatus {
	m.mu.Lock()
	ds, sample := m.dataset, m.sample
	m.mu.Unlock()
	return ReviewStatus{
		Running:   atomic.LoadInt32(&m.running) == 1,
		Dataset:   ds,
		Sample:    sample,
		Played:    atomic.LoadInt64(&m.played),
		Discarded: atomic.LoadInt64(&m.discarded),
		Commands:  atomic.LoadInt64(&m.commands),
	}
}

func (m *ManualReviewer) setCurrent(ds, sample string) {
	m.mu.Lock()
	m.dataset, m.sample = ds, sample
	m.mu.Unlock()
}

// Run reviews one dataset with a fresh cursor. Three goroutines share it:
// the command listener, the command handler and the playback loop. The
// handler is the only one that navigates or discards; playback only reads
// the cursor through Next.
func (m *ManualReviewer) Run(ctx context.Context, store *dataset.Store) (PassSummary, error) {
	atomic.StoreInt32(&m.running, 1)
	defer atomic.StoreInt32(&m.running, 0)
	defer m.setCurrent("", "")

	sum := PassSummary{Dataset: store.Name(), Pass: PassManual}
	cursor := dataset.NewCursor(store)
	var discarded int64

	m.logger.Info("manual pass started", "dataset", store.Name(), "samples", store.Len())

	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(passCtx)
	cmds := make(chan keys.Command)

	g.Go(func() error {
		err := m.source.Listen(gctx, cmds)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case cmd := <-cmds:
				ok, err := m.apply(gctx, store, cursor, cmd)
				if err != nil {
					return err
				}
				if ok && cmd == keys.CommandDiscard {
					discarded++
				}
			}
		}
	})

	g.Go(func() error {
		// the pass ends with playback; stop the listener and handler too
		defer cancel()
		return m.playLoop(gctx, store, cursor)
	})

	if err := g.Wait(); err != nil {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	sum.Discarded = int(discarded)
	sum.Remaining = store.Len()
	sum.Kept = sum.Remaining
	m.logger.Info("manual pass finished",
		"dataset", sum.Dataset,
		"discarded", sum.Discarded,
		"remaining", sum.Remaining,
	)
	return sum, nil
}

func (m *ManualReviewer) playLoop(ctx context.Context, store *dataset.Store, cursor *dataset.Cursor) error {
	for ctx.Err() == nil {
		step, ok := cursor.NextStep()
		if !ok {
			return nil
		}
		sample := step.Sample
		m.setCurrent(store.Name(), sample)

		m.logger.Info("playing sample", "dataset", store.Name(), "sample", sample, "position", step.Position)
		m.source.Show(
			fmt.Sprintf("%s  [%d/%d]", store.Name(), step.Position+1, step.Total),
			sample,
			"",
			"Left: back  Right: forward  Delete: discard  Esc: stop",
		)

		if err := m.player.Play(ctx, sample); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// an unplayable sample is left for the reviewer to discard
			m.logger.Warn("playback failed", "sample", sample, "error", err)
		} else {
			atomic.AddInt64(&m.played, 1)
		}

		select {
		case <-time.After(m.pause):
		case <-ctx.Done():
		}
	}
	return nil
}

// apply executes one command against the cursor. It reports whether the
// command changed anything. Only a failed relocation is an error.
func (m *ManualReviewer) apply(ctx context.Context, store *dataset.Store, cursor *dataset.Cursor, cmd keys.Command) (bool, error) {
	if !cmd.Valid() {
		return false, nil
	}
	atomic.AddInt64(&m.commands, 1)
	if m.metrics != nil {
		m.metrics.RecordCommand(ctx, cmd.String())
	}

	switch cmd {
	case keys.CommandBack:
		ok := cursor.StepBack()
		m.logger.Debug("step back", "moved", ok, "position", cursor.Position())
		return ok, nil

	case keys.CommandForward:
		ok := cursor.StepForward()
		m.logger.Debug("step forward", "moved", ok, "position", cursor.Position())
		return ok, nil

	case keys.CommandDiscard:
		rel, err := m.relocator.Discard(cursor, dataset.CategoryManual)
		if errors.Is(err, dataset.ErrNoSample) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		atomic.AddInt64(&m.discarded, 1)
		if m.metrics != nil {
			m.metrics.RecordDiscarded(ctx, dataset.CategoryManual)
		}
		m.reporter.Report(ctx, Decision{
			RunID:    m.runID,
			Dataset:  store.Name(),
			Pass:     PassManual,
			Sample:   rel.Sample,
			Action:   ActionDiscard,
			Category: dataset.CategoryManual,
			Reason:   "reviewer",
			Dest:     rel.Dest,
		})
		if !rel.More {
			cursor.MarkExhausted()
		}
		return true, nil

	case keys.CommandQuit:
		cursor.MarkExhausted()
		m.logger.Info("review stopped", "dataset", store.Name())
		return true, nil
	}
	return false, nil
}
