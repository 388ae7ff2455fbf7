package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Rejection categories.
const (
	CategoryAutomatic = "automatic"
	CategoryManual    = "manual"
)

// ErrDestinationExists is returned when a rejected sample would overwrite a
// file already present in the rejection tree.
var ErrDestinationExists = errors.New("dataset: destination already exists")

// RelocateError is a failed move of a sample into the rejection tree.
type RelocateError struct {
	Sample string
	Dest   string
	Err    error
}

func (e *RelocateError) Error() string {
	return fmt.Sprintf("relocate %s -> %s: %v", e.Sample, e.Dest, e.Err)
}

func (e *RelocateError) Unwrap() error { return e.Err }

// Relocation describes one discarded sample.
type Relocation struct {
	Sample string
	Dest   string
	// More is false once the dataset has no samples left.
	More bool
}

// Relocator moves rejected samples under root/<category>/, mirroring the
// sample's path relative to its dataset root.
type Relocator struct {
	root   string
	logger *slog.Logger
}

// NewRelocator returns a relocator writing below root.
func NewRelocator(root string, logger *slog.Logger) *Relocator {
	return &Relocator{root: root, logger: logger}
}

// Root returns the rejection root.
func (r *Relocator) Root() string { return r.root }

// Destination computes where sample from store lands for category.
func (r *Relocator) Destination(store *Store, sample, category string) (string, error) {
	if category == "" || strings.ContainsAny(category, `/\`) || category == "." || category == ".." {
		return "", fmt.Errorf("dataset: invalid rejection category %q", category)
	}
	rel, err := filepath.Rel(store.root, sample)
	if err != nil {
		return "", fmt.Errorf("dataset: %s is not under %s: %w", sample, store.root, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dataset: %s is not under %s", sample, store.root)
	}
	return filepath.Join(r.root, category, rel), nil
}

// Discard moves the sample at the cursor into the rejection tree, removes it
// from the store and steps the cursor back so the sample that slid into its
// place comes next. A failed move leaves store and cursor untouched.
func (r *Relocator) Discard(c *Cursor, category string) (Relocation, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := c.currentLocked()
	if !ok {
		return Relocation{}, ErrNoSample
	}
	dest, err := r.Destination(s, sample, category)
	if err != nil {
		return Relocation{}, err
	}
	if err := move(sample, dest); err != nil {
		return Relocation{}, &RelocateError{Sample: sample, Dest: dest, Err: err}
	}

	s.removeAt(c.position)
	c.retreatAfterRemoval()

	r.logger.Info("sample discarded",
		"dataset", s.Name(),
		"sample", sample,
		"dest", dest,
		"category", category,
		"remaining", len(s.samples),
	)
	return Relocation{Sample: sample, Dest: dest, More: len(s.samples) > 0}, nil
}

func move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if _, err := os.Lstat(dest); err == nil {
		return ErrDestinationExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(src, dest)
}
