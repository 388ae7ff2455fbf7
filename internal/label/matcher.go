package label

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Reasons reported by Match.
const (
	ReasonLabel    = "label"
	ReasonPath     = "path"
	ReasonAlias    = "alias"
	ReasonPhonetic = "phonetic"
)

const defaultPhoneticThreshold = 0.85

// Option configures a Matcher.
type Option func(*Matcher)

// WithAliases accepts extra spoken words per label, e.g. "oh" for "zero".
func WithAliases(aliases map[string][]string) Option {
	return func(m *Matcher) {
		for lbl, words := range aliases {
			for _, w := range words {
				if n := Normalize(w); n != "" {
					m.aliases[n] = lbl
				}
			}
		}
	}
}

// WithPhonetic accepts a word whose Double Metaphone code matches a label's
// code when their Jaro-Winkler similarity reaches threshold. A threshold of
// zero uses the default 0.85.
func WithPhonetic(enabled bool, threshold float64) Option {
	return func(m *Matcher) {
		m.phonetic = enabled
		if threshold > 0 {
			m.phoneticThreshold = threshold
		}
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	labels            map[string]struct{}
	aliases           map[string]string
	phonetic          bool
	phoneticThreshold float64
}

// NewMatcher builds a matcher for one dataset's label set.
func NewMatcher(labels []string, opts ...Option) *Matcher {
	m := &Matcher{
		labels:            make(map[string]struct{}, len(labels)),
		aliases:           make(map[string]string),
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, l := range labels {
		m.labels[l] = struct{}{}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match reports whether the normalized word identifies the sample at
// samplePath, and why. The word must be a label, or occur in the raw sample
// path. Aliases and phonetic matching widen this only when configured.
func (m *Matcher) Match(word, samplePath string) (string, bool) {
	if word == "" {
		return "", false
	}
	if _, ok := m.labels[word]; ok {
		return ReasonLabel, true
	}
	if strings.Contains(samplePath, word) {
		return ReasonPath, true
	}
	if lbl, ok := m.aliases[word]; ok {
		if _, known := m.labels[lbl]; known {
			return ReasonAlias, true
		}
	}
	if m.phonetic && m.phoneticMatch(word) {
		return ReasonPhonetic, true
	}
	return "", false
}

func (m *Matcher) phoneticMatch(word string) bool {
	wp, ws := matchr.DoubleMetaphone(word)
	for lbl := range m.labels {
		n := Normalize(lbl)
		if n == "" {
			continue
		}
		lp, ls := matchr.DoubleMetaphone(n)
		if !sharesCode(wp, ws, lp, ls) {
			continue
		}
		if matchr.JaroWinkler(word, n, false) >= m.phoneticThreshold {
			return true
		}
	}
	return false
}

func sharesCode(ap, as, bp, bs string) bool {
	for _, a := range []string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}
