package service

import (
	"context"
	"log/slog"

	"audio-curator/internal/audio"
	"audio-curator/internal/db"

	"github.com/google/uuid"
)

// Decision actions.
const (
	ActionKeep    = "keep"
	ActionDiscard = "discard"
	ActionSkip    = "skip"
)

// Pass names.
const (
	PassAutomatic = "automatic"
	PassManual    = "manual"
)

// Decision is the outcome for one sample in one pass.
type Decision struct {
	RunID    string `json:"run_id"`
	Dataset  string `json:"dataset"`
	Pass     string `json:"pass"`
	Sample   string `json:"sample"`
	Action   string `json:"action"`
	Category string `json:"category,omitempty"`
	Token    string `json:"token,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Dest     string `json:"dest,omitempty"`
}

// Reporter receives every decision. Report must not block for long; the
// automatic pass calls it inline.
type Reporter interface {
	Report(ctx context.Context, d Decision)
}

// NewRunID returns a fresh identifier for one curation session.
func NewRunID() string {
	return uuid.NewString()
}

// LogReporter writes decisions to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, d Decision) {
	attrs := []any{
		"run_id", d.RunID,
		"dataset", d.Dataset,
		"pass", d.Pass,
		"sample", d.Sample,
	}
	if d.Token != "" {
		attrs = append(attrs, "token", d.Token)
	}
	if d.Reason != "" {
		attrs = append(attrs, "reason", d.Reason)
	}
	if d.Dest != "" {
		attrs = append(attrs, "dest", d.Dest)
	}
	r.logger.InfoContext(ctx, "sample "+d.Action, attrs...)
}

// MultiReporter fans a decision out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, d Decision) {
	for _, r := range m {
		r.Report(ctx, d)
	}
}

// DecisionWriter persists journal rows. *db.DB implements it.
type DecisionWriter interface {
	InsertDecision(ctx context.Context, d *db.Decision) (int64, error)
}

var (
	_ DecisionWriter   = (*db.DB)(nil)
	_ RejectionHistory = (*db.DB)(nil)
)

// JournalReporter stores decisions in the MariaDB journal together with the
// file hash and duration of the sample at its current location. Journal
// failures are logged and never stop curation.
type JournalReporter struct {
	writer DecisionWriter
	logger *slog.Logger
}

func NewJournalReporter(writer DecisionWriter, logger *slog.Logger) *JournalReporter {
	return &JournalReporter{writer: writer, logger: logger}
}

func (r *JournalReporter) Report(ctx context.Context, d Decision) {
	// a discarded sample now lives at its destination
	path := d.Sample
	if d.Dest != "" {
		path = d.Dest
	}

	row := &db.Decision{
		RunID:      d.RunID,
		Dataset:    d.Dataset,
		SamplePath: d.Sample,
		DestPath:   d.Dest,
		Pass:       d.Pass,
		Action:     d.Action,
		Reason:     d.Reason,
		Token:      d.Token,
	}

	if fp, err := audio.FingerprintFile(path); err != nil {
		r.logger.Warn("journal: hash failed", "sample", path, "error", err)
	} else {
		row.FileHash = fp.MD5
		row.FileSize = fp.Size
	}
	if meta, err := audio.Probe(ctx, path); err != nil {
		r.logger.Debug("journal: probe failed", "sample", path, "error", err)
	} else {
		row.DurationSec = meta.DurationSec
	}

	if _, err := r.writer.InsertDecision(ctx, row); err != nil {
		r.logger.Error("journal: insert failed", "sample", d.Sample, "error", err)
	}
}
