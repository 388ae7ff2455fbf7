package dataset

// Cursor walks a Store. It is shared between the pass that consumes samples
// and the key handler that navigates, so every method takes the store lock.
//
// Next yields the sample at the current position and owes one step forward,
// which is paid on the following Next. Explicit navigation cancels the owed
// step so the sample navigated to is the next one yielded.
type Cursor struct {
	store     *Store
	position  int
	exhausted bool
	owed      bool
}

// NewCursor returns a cursor positioned at the first sample of s.
func NewCursor(s *Store) *Cursor {
	return &Cursor{store: s}
}

// Position returns the current index. It equals the sample count once the
// cursor has run off the end.
func (c *Cursor) Position() int {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.position
}

// StepForward moves to the next sample. It is a no-op returning false at or
// after the last sample.
func (c *Cursor) StepForward() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.position >= len(c.store.samples)-1 {
		return false
	}
	c.position++
	c.owed = false
	return true
}

// StepBack moves to the previous sample. It is a no-op returning false at 0.
func (c *Cursor) StepBack() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.position <= 0 {
		return false
	}
	c.position--
	c.owed = false
	return true
}

// Seek jumps to position. Positions outside [1, len) are rejected; 0 is not
// reachable through Seek.
func (c *Cursor) Seek(position int) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if position < 1 || position >= len(c.store.samples) {
		return false
	}
	c.position = position
	c.owed = false
	return true
}

// Current returns the sample at the cursor, or false when the cursor is past
// the end or exhausted.
func (c *Cursor) Current() (string, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.currentLocked()
}

func (c *Cursor) currentLocked() (string, bool) {
	if c.exhausted || c.position >= len(c.store.samples) {
		return "", false
	}
	return c.store.samples[c.position], true
}

// MarkExhausted stops the cursor: Current, Next and HasMore report no sample
// from now on.
func (c *Cursor) MarkExhausted() {
	c.store.mu.Lock()
	c.exhausted = true
	c.store.mu.Unlock()
}

// HasMore reports whether Next would yield a sample.
func (c *Cursor) HasMore() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.exhausted {
		return false
	}
	next := c.position
	if c.owed {
		next++
	}
	return next < len(c.store.samples)
}

// Step is a sample yielded by NextStep together with its index and the
// sample count, read under the same lock.
type Step struct {
	Sample   string
	Position int
	Total    int
}

// Next pays the step owed by the previous sample and yields the sample at the
// new position. Once it returns false the cursor stays spent.
func (c *Cursor) Next() (string, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.nextLocked()
}

// NextStep is Next returning where the sample sits in the dataset.
func (c *Cursor) NextStep() (Step, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	sample, ok := c.nextLocked()
	if !ok {
		return Step{}, false
	}
	return Step{Sample: sample, Position: c.position, Total: len(c.store.samples)}, true
}

func (c *Cursor) nextLocked() (string, bool) {
	if c.owed {
		c.owed = false
		if c.position < len(c.store.samples) {
			c.position++
		}
	}
	sample, ok := c.currentLocked()
	if !ok {
		c.exhausted = true
		return "", false
	}
	c.owed = true
	return sample, true
}

// retreatAfterRemoval is called by the relocator with the store lock held,
// after the sample at c.position was removed. It steps back and owes one step
// so that the sample which slid into the vacated index is yielded by the next
// Next. At position 0 there is nothing to step back to: the cursor stays and
// owes nothing.
func (c *Cursor) retreatAfterRemoval() {
	if c.position > 0 {
		c.position--
		c.owed = true
		return
	}
	c.owed = false
}
