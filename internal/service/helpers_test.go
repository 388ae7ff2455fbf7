package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"audio-curator/internal/asr"
	"audio-curator/internal/dataset"
	"audio-curator/internal/keys"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(r), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	return false
}

// fakeTranscriber answers by sample base name.
type fakeTranscriber struct {
	mu      sync.Mutex
	answers map[string][]asr.Segment
	errs    map[string]error
	calls   []string
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{
		answers: make(map[string][]asr.Segment),
		errs:    make(map[string]error),
	}
}

// say makes name transcribe as one segment per text.
func (f *fakeTranscriber) say(name string, texts ...string) {
	var segs []asr.Segment
	for _, t := range texts {
		segs = append(segs, asr.NewSegment(t, 0, 1000))
	}
	f.answers[name] = segs
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) ([]asr.Segment, error) {
	name := filepath.Base(path)
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.answers[name], nil
}

func (f *fakeTranscriber) Close() error { return nil }

func (f *fakeTranscriber) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type recordingReporter struct {
	mu        sync.Mutex
	decisions []Decision
}

func (r *recordingReporter) Report(_ context.Context, d Decision) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()
}

func (r *recordingReporter) all() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Decision(nil), r.decisions...)
}

// scriptedSource forwards commands pushed by the test. After each command it
// sends an invalid command as a barrier: the handler can only take it once
// the real command has been applied, and only then is the push acknowledged.
type scriptedSource struct {
	cmds  chan keys.Command
	acked chan struct{}

	mu    sync.Mutex
	shown [][]string
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		cmds:  make(chan keys.Command),
		acked: make(chan struct{}),
	}
}

func (s *scriptedSource) Listen(ctx context.Context, out chan<- keys.Command) error {
	for {
		var cmd keys.Command
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd = <-s.cmds:
		}
		for _, c := range []keys.Command{cmd, 0} {
			select {
			case out <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case s.acked <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *scriptedSource) Show(lines ...string) {
	s.mu.Lock()
	s.shown = append(s.shown, lines)
	s.mu.Unlock()
}

// push delivers cmd and waits until it has been applied.
func (s *scriptedSource) push(ctx context.Context, cmd keys.Command) error {
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-s.acked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scriptedPlayer records plays and issues the scripted command during the
// n-th play.
type scriptedPlayer struct {
	src    *scriptedSource
	script map[int]keys.Command
	fail   map[string]error

	mu    sync.Mutex
	plays []string
}

func (p *scriptedPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	n := len(p.plays)
	p.plays = append(p.plays, filepath.Base(path))
	p.mu.Unlock()

	if cmd, ok := p.script[n]; ok {
		if err := p.src.push(ctx, cmd); err != nil {
			return err
		}
	}
	return p.fail[filepath.Base(path)]
}

func (p *scriptedPlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.plays...)
}

func buildStore(t *testing.T, root string) *dataset.Store {
	t.Helper()
	s, err := dataset.Build(root, discardLogger(), dataset.WithSortedSamples(true))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
