package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"audio-curator/internal/db"
)

type fakeWriter struct {
	rows []*db.Decision
	err  error
}

func (w *fakeWriter) InsertDecision(_ context.Context, d *db.Decision) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.rows = append(w.rows, d)
	return int64(len(w.rows)), nil
}

func TestJournalReporter_HashesCurrentLocation(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "rej", "automatic", "no", "c.wav")
	writeFiles(t, dir, "rej/automatic/no/c.wav")

	w := &fakeWriter{}
	rep := NewJournalReporter(w, discardLogger())
	rep.Report(context.Background(), Decision{
		RunID:   "r",
		Dataset: "ds1",
		Pass:    PassAutomatic,
		Sample:  filepath.Join(dir, "input", "ds1", "no", "c.wav"),
		Action:  ActionDiscard,
		Dest:    dest,
		Token:   "maybe",
	})

	if len(w.rows) != 1 {
		t.Fatalf("rows = %d", len(w.rows))
	}
	row := w.rows[0]
	if row.DestPath != dest || row.Action != ActionDiscard || row.Token != "maybe" {
		t.Errorf("row = %+v", row)
	}
	// writeFiles stores the relative path as content
	if row.FileSize != int64(len("rej/automatic/no/c.wav")) || len(row.FileHash) != 32 {
		t.Errorf("fingerprint = %s/%d", row.FileHash, row.FileSize)
	}
}

func TestJournalReporter_InsertFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rep := NewJournalReporter(&fakeWriter{err: errors.New("connection refused")}, logger)

	rep.Report(context.Background(), Decision{Sample: filepath.Join(t.TempDir(), "gone.wav"), Action: ActionKeep})

	if !strings.Contains(buf.String(), "journal: insert failed") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestMultiReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	MultiReporter{a, b}.Report(context.Background(), Decision{Sample: "s", Action: ActionKeep})
	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Error("decision not fanned out")
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	rep := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))
	rep.Report(context.Background(), Decision{Dataset: "ds1", Sample: "s.wav", Action: ActionDiscard, Dest: "d.wav"})

	out := buf.String()
	for _, want := range []string{"sample discard", "dataset=ds1", "dest=d.wav"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q lacks %q", out, want)
		}
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b || len(a) != 36 {
		t.Errorf("run ids %q %q", a, b)
	}
}
