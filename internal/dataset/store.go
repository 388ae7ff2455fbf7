// Package dataset holds the in-memory view of one labelled sample folder: the
// ordered sample list, the cursor that walks it and the relocator that moves
// rejected samples out of it.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrNotDirectory is returned when a dataset root is not a directory.
	ErrNotDirectory = errors.New("dataset: root is not a directory")
	// ErrNoSample is returned when the cursor does not point at a sample.
	ErrNoSample = errors.New("dataset: no current sample")
)

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	sorted bool
}

// WithSortedSamples orders samples lexicographically instead of keeping the
// raw directory enumeration order.
func WithSortedSamples(sorted bool) Option {
	return func(o *buildOptions) { o.sorted = sorted }
}

// Store is the ordered, flattened sample list of one dataset. It only ever
// shrinks, through a Relocator. The mutex also guards every Cursor built on
// the store.
type Store struct {
	mu       sync.Mutex
	root     string
	labels   []string
	samples  []string
	degraded bool
}

// Build scans root into a Store. Each sub-directory of root is a label and its
// files are samples. A plain file directly under root is kept as a sample too
// and reported as a layout warning.
func Build(root string, logger *slog.Logger, opts ...Option) (*Store, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dataset: stat %s: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	children, err := readDirUnsorted(root)
	if err != nil {
		return nil, err
	}

	s := &Store{root: root}
	for _, child := range children {
		path := filepath.Join(root, child.Name())
		s.labels = append(s.labels, child.Name())

		if !child.IsDir() {
			s.samples = append(s.samples, path)
			s.degraded = true
			continue
		}

		entries, err := readDirUnsorted(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				logger.Warn("nested directory inside label ignored", "dataset", root, "path", filepath.Join(path, e.Name()))
				continue
			}
			s.samples = append(s.samples, filepath.Join(path, e.Name()))
		}
	}

	if s.degraded {
		logger.Warn("labels used as samples: files found directly under dataset root", "dataset", root)
	}
	if o.sorted {
		sort.Strings(s.samples)
	}

	logger.Info("dataset loaded", "dataset", root, "labels", len(s.labels), "samples", len(s.samples))
	return s, nil
}

// readDirUnsorted returns the entries of dir in the order the file system
// yields them. os.ReadDir would sort them by name.
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", dir, err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", dir, err)
	}
	return entries, nil
}

// Name returns the base name of the dataset root.
func (s *Store) Name() string { return filepath.Base(s.root) }

// Degraded reports whether files were found directly under the root.
func (s *Store) Degraded() bool { return s.degraded }

// Labels returns a copy of the label names.
func (s *Store) Labels() []string {
	return append([]string(nil), s.labels...)
}

// HasLabel reports whether name is one of the dataset's labels.
func (s *Store) HasLabel(name string) bool {
	for _, l := range s.labels {
		if l == name {
			return true
		}
	}
	return false
}

// Samples returns a snapshot of the current sample list.
func (s *Store) Samples() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.samples...)
}

// Len returns the number of samples still in the dataset.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// removeAt drops the sample at i. Callers hold s.mu.
func (s *Store) removeAt(i int) {
	s.samples = append(s.samples[:i], s.samples[i+1:]...)
}
