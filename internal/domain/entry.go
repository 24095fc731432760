package domain

import (
	"sort"
	"strings"
)

// DeviceID is the human-readable label of a configured appliance. Labels are
// unique within a run; the config loader rejects duplicates.
type DeviceID string

// Entry is a single domain on an appliance's whitelist or blacklist. Identity
// is the normalized domain only; the comment rides along but never takes part
// in equality.
type Entry struct {
	Domain  string `json:"domain"`
	Comment string `json:"comment,omitempty"`
}

// NormalizeDomain is the one identity definition shared by the collector,
// reconciler, and executor. Appliances disagree about casing and stray
// whitespace; normalizing in more than one place would produce diffs that
// never converge.
func NormalizeDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Key returns the normalized identity of the entry.
func (e Entry) Key() string {
	return NormalizeDomain(e.Domain)
}

// EntrySet is a set of entries keyed by normalized domain.
type EntrySet map[string]Entry

// NewEntrySet builds a set from the given entries. On duplicate identity the
// first entry wins, matching the reconciler's first-encountered tie-break.
func NewEntrySet(entries ...Entry) EntrySet {
	set := make(EntrySet, len(entries))
	for _, e := range entries {
		set.Add(e)
	}
	return set
}

// Add inserts the entry unless an entry with the same identity is already
// present. Entries with an empty normalized domain are dropped.
func (s EntrySet) Add(e Entry) {
	key := e.Key()
	if key == "" {
		return
	}
	if _, exists := s[key]; exists {
		return
	}
	s[key] = e
}

// Contains reports whether the set holds an entry for the given domain.
func (s EntrySet) Contains(domain string) bool {
	_, found := s[NormalizeDomain(domain)]
	return found
}

// Clone returns an independent copy of the set.
func (s EntrySet) Clone() EntrySet {
	cp := make(EntrySet, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// Sorted returns the entries ordered by normalized domain. Every place a set
// leaves memory (diffs, reports, logs) goes through here so output is
// deterministic regardless of map iteration order.
func (s EntrySet) Sorted() []Entry {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[k])
	}
	return out
}
