package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"audio-curator/internal/config"
	"audio-curator/internal/dataset"
)

// ReviewerOpener prepares the manual pass on demand, so the terminal and the
// audio device are only touched when a human actually reviews. The returned
// close func releases them.
type ReviewerOpener func(ctx context.Context) (*ManualReviewer, func() error, error)

// Confirmer asks whether the manual pass should run.
type Confirmer func() (bool, error)

type SessionStatus struct {
	RunID  string        `json:"run_id"`
	Phase  string        `json:"phase"`
	Filter FilterStatus  `json:"filter"`
	Review *ReviewStatus `json:"review,omitempty"`
}

// Summary is the outcome of a whole session.
type Summary struct {
	RunID  string        `json:"run_id"`
	Passes []PassSummary `json:"passes"`
}

// Session phases.
const (
	PhaseIdle      = "idle"
	PhaseAutomatic = "automatic"
	PhaseManual    = "manual"
	PhaseDone      = "done"
)

type SessionOption func(*Orchestrator)

// WithManualReview enables the manual pass. mode is one of config.ReviewAsk,
// config.ReviewYes or config.ReviewNo; with ReviewAsk, confirm decides.
func WithManualReview(mode string, confirm Confirmer, open ReviewerOpener) SessionOption {
	return func(o *Orchestrator) {
		o.reviewMode = mode
		o.confirm = confirm
		o.openReviewer = open
	}
}

func WithDatasetOptions(opts ...dataset.Option) SessionOption {
	return func(o *Orchestrator) { o.datasetOpts = append(o.datasetOpts, opts...) }
}

func WithRunID(id string) SessionOption {
	return func(o *Orchestrator) { o.runID = id }
}

// Orchestrator discovers the datasets under the input root, runs the
// automatic pass over all of them and then, if confirmed, the manual pass.
type Orchestrator struct {
	inputRoot    string
	filter       *AutomaticFilter
	logger       *slog.Logger
	datasetOpts  []dataset.Option
	reviewMode   string
	confirm      Confirmer
	openReviewer ReviewerOpener
	runID        string

	mu       sync.Mutex
	phase    string
	reviewer *ManualReviewer
}

func NewOrchestrator(inputRoot string, filter *AutomaticFilter, logger *slog.Logger, opts ...SessionOption) *Orchestrator {
	o := &Orchestrator{
		inputRoot:  inputRoot,
		filter:     filter,
		logger:     logger,
		reviewMode: config.ReviewNo,
		phase:      PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = NewRunID()
	}
	return o
}

func (o *Orchestrator) RunID() string { return o.runID }

func (o *Orchestrator) setPhase(p string) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) Status() SessionStatus {
	o.mu.Lock()
	phase, reviewer := o.phase, o.reviewer
	o.mu.Unlock()

	st := SessionStatus{RunID: o.runID, Phase: phase, Filter: o.filter.Status()}
	if reviewer != nil {
		rs := reviewer.Status()
		st.Review = &rs
	}
	return st
}

// Discover builds one store per sub-directory of the input root. Plain files
// under the root are reported and skipped.
func (o *Orchestrator) Discover() ([]*dataset.Store, error) {
	entries, err := os.ReadDir(o.inputRoot)
	if err != nil {
		return nil, fmt.Errorf("read input root: %w", err)
	}

	var stores []*dataset.Store
	for _, e := range entries {
		path := filepath.Join(o.inputRoot, e.Name())
		if !e.IsDir() {
			o.logger.Warn("not a dataset directory, skipped", "path", path)
			continue
		}
		store, err := dataset.Build(path, o.logger, o.datasetOpts...)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	o.logger.Info("datasets discovered", "root", o.inputRoot, "count", len(stores))
	return stores, nil
}

// Run executes the session. The stores built at discovery are reused by the
// manual pass, each with a fresh cursor.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: o.runID}
	defer o.setPhase(PhaseDone)

	stores, err := o.Discover()
	if err != nil {
		return sum, err
	}

	o.setPhase(PhaseAutomatic)
	for _, store := range stores {
		ps, err := o.filter.Run(ctx, store)
		sum.Passes = append(sum.Passes, ps)
		if err != nil {
			return sum, fmt.Errorf("automatic pass %s: %w", store.Name(), err)
		}
	}

	review, err := o.wantReview()
	if err != nil {
		return sum, err
	}
	if !review {
		o.logger.Info("manual pass skipped")
		return sum, nil
	}

	reviewer, closeFn, err := o.openReviewer(ctx)
	if err != nil {
		return sum, fmt.Errorf("open manual review: %w", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			o.logger.Warn("closing manual review failed", "error", err)
		}
	}()

	o.mu.Lock()
	o.reviewer = reviewer
	o.phase = PhaseManual
	o.mu.Unlock()

	for _, store := range stores {
		if store.Len() == 0 {
			continue
		}
		ps, err := reviewer.Run(ctx, store)
		sum.Passes = append(sum.Passes, ps)
		if err != nil {
			return sum, fmt.Errorf("manual pass %s: %w", store.Name(), err)
		}
	}
	return sum, nil
}

func (o *Orchestrator) wantReview() (bool, error) {
	if o.openReviewer == nil {
		return false, nil
	}
	switch o.reviewMode {
	case config.ReviewYes:
		return true, nil
	case config.ReviewAsk:
		if o.confirm == nil {
			return false, nil
		}
		return o.confirm()
	default:
		return false, nil
	}
}

// PromptConfirmer asks question on out and reads a yes/no answer from in.
// Anything but "y" or "yes" is a no; so is end of input.
func PromptConfirmer(in io.Reader, out io.Writer, question string) Confirmer {
	reader := bufio.NewReader(in)
	return func() (bool, error) {
		fmt.Fprintf(out, "%s [y/N]: ", question)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// Totals adds up the passes of a summary per pass name.
func (s Summary) Totals() map[string]PassSummary {
	totals := make(map[string]PassSummary)
	for _, p := range s.Passes {
		t := totals[p.Pass]
		t.Pass = p.Pass
		t.Kept += p.Kept
		t.Discarded += p.Discarded
		t.Skipped += p.Skipped
		t.Remaining += p.Remaining
		totals[p.Pass] = t
	}
	return totals
}

// PassNames returns the pass names of Totals in a stable order.
func PassNames(totals map[string]PassSummary) []string {
	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
