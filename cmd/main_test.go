package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audio-curator/internal/config"
	"audio-curator/internal/service"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.log")
	var buf bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{Level: "info", File: path}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("dataset loaded", "dataset", "ds1")
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dataset=ds1") || !strings.Contains(buf.String(), "dataset=ds1") {
		t.Errorf("file %q, stderr %q", data, buf.String())
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	if _, _, err := newLogger(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{
		Data:   config.DataConfig{InputDir: "input", RejectionsDir: "rejections"},
		Review: config.ReviewConfig{Mode: config.ReviewAsk},
	}
	applyFlags(cfg, "/data/in", "", "YES")
	if cfg.Data.InputDir != "/data/in" || cfg.Data.RejectionsDir != "rejections" || cfg.Review.Mode != config.ReviewYes {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := newLogger(config.LogConfig{Level: "info"}, &buf)
	logSummary(context.Background(), logger, service.Summary{RunID: "r1", Passes: []service.PassSummary{
		{Dataset: "ds1", Pass: service.PassAutomatic, Kept: 2, Discarded: 1},
	}}, nil)
	out := buf.String()
	if !strings.Contains(out, "pass summary") || !strings.Contains(out, "run total") || !strings.Contains(out, "discarded=1") {
		t.Errorf("log = %q", out)
	}
}

func TestLoadConfig_FlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Setenv("ASR_BACKEND", "local")
	t.Setenv("WHISPER_LOCAL_URL", "http://127.0.0.1:9000")
	t.Setenv("MANUAL_REVIEW", "sometimes")
	envFile := filepath.Join(t.TempDir(), "missing.env")

	if _, err := loadConfig(envFile, "", "", ""); err == nil {
		t.Fatal("expected error without -review")
	}
	cfg, err := loadConfig(envFile, "/data/in", "", "no")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Review.Mode != config.ReviewNo || cfg.Data.InputDir != "/data/in" {
		t.Errorf("cfg = %+v", cfg)
	}
}

type fakeCounter struct {
	counts map[string]int64
	err    error
	runID  string
}

func (c *fakeCounter) CountByAction(_ context.Context, runID string) (map[string]int64, error) {
	c.runID = runID
	return c.counts, c.err
}

func TestLogSummary_JournalTotals(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := newLogger(config.LogConfig{Level: "info"}, &buf)
	counter := &fakeCounter{counts: map[string]int64{service.ActionKeep: 5, service.ActionDiscard: 2}}

	logSummary(context.Background(), logger, service.Summary{RunID: "r2"}, counter)

	if counter.runID != "r2" {
		t.Errorf("counted run %q, want r2", counter.runID)
	}
	out := buf.String()
	if !strings.Contains(out, "journal total") || !strings.Contains(out, "kept=5") || !strings.Contains(out, "discarded=2") {
		t.Errorf("log = %q", out)
	}
}

func TestLogSummary_JournalError(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := newLogger(config.LogConfig{Level: "info"}, &buf)

	logSummary(context.Background(), logger, service.Summary{RunID: "r3"}, &fakeCounter{err: errors.New("gone away")})

	if !strings.Contains(buf.String(), "journal totals unavailable") {
		t.Errorf("log = %q", buf.String())
	}
}
