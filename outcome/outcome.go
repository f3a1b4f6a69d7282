// Package outcome defines the vocabulary shared by suites and jobs: the
// outcome tags a suite reports and the status a job ends in.
package outcome

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Tag summarizes one category of test result reported by a suite.
type Tag string

const (
	TagPass        Tag = "PASS"
	TagFail        Tag = "FAIL"
	TagError       Tag = "ERROR"
	TagInterrupted Tag = "INTERRUPTED"
	TagCancel      Tag = "CANCEL"
	TagSkip        Tag = "SKIP"
)

var allTags = []Tag{TagPass, TagFail, TagError, TagInterrupted, TagCancel, TagSkip}

// AllTags returns the tag vocabulary in display order.
func AllTags() []Tag {
	return slices.Clone(allTags)
}

// Valid reports whether t belongs to the closed tag vocabulary.
func (t Tag) Valid() bool {
	return slices.Contains(allTags, t)
}

// ParseTag converts a case-insensitive name into a Tag.
func ParseTag(s string) (Tag, error) {
	t := Tag(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown outcome tag %q", s)
	}
	return t, nil
}

// TagSet is an unordered set of outcome tags. Only presence matters.
// The zero value is an empty set ready to use with Union and Has.
type TagSet map[Tag]struct{}

// NewTagSet returns a set holding the given tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t and returns the set for chaining.
func (s TagSet) Add(t Tag) TagSet {
	s[t] = struct{}{}
	return s
}

// Has reports whether t is present.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// HasAny reports whether any of tags is present.
func (s TagSet) HasAny(tags ...Tag) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Union returns a new set with the members of s and other.
func (s TagSet) Union(other TagSet) TagSet {
	out := make(TagSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Sorted returns the tags in vocabulary order.
func (s TagSet) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for _, t := range allTags {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TagSet) String() string {
	tags := s.Sorted()
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalYAML and MarshalJSON render the set as a sorted list.
func (s TagSet) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Status is the terminal (or running) state of a job.
type Status string

const (
	StatusRunning     Status = "RUNNING"
	StatusPass        Status = "PASS"
	StatusFail        Status = "FAIL"
	StatusError       Status = "ERROR"
	StatusInterrupted Status = "INTERRUPTED"
)

// Terminal reports whether the status is a final one.
func (s Status) Terminal() bool {
	switch s {
	case StatusPass, StatusFail, StatusError, StatusInterrupted:
		return true
	default:
		return false
	}
}
