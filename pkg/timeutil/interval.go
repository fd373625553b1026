// Package timeutil implements the half-open interval arithmetic the
// scheduling engine is built on. All intervals are [Start, End): the end
// instant is excluded, so two intervals that only touch at a boundary do
// not overlap.
package timeutil

import (
	"sort"
	"time"
)

type Interval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// Contains reports whether instant t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Covers reports whether other lies entirely within i.
func (i Interval) Covers(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Overlaps reports whether a and b share any instant. Half-open semantics:
// [10:00, 11:00) and [11:00, 12:00) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// MergeBusy normalizes a set of busy intervals: drops empty ones, sorts by
// start, then sweeps, coalescing overlapping and adjacent intervals. The
// input slice is not modified.
func MergeBusy(busy []Interval) []Interval {
	valid := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.IsValid() {
			valid = append(valid, b)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []Interval{valid[0]}
	for _, b := range valid[1:] {
		last := &merged[len(merged)-1]
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}

	return merged
}

// FreeWithin returns the complement of the busy intervals inside window:
// the sub-intervals of window no busy interval touches. Busy intervals are
// merged first, so the input need not be sorted or disjoint.
func FreeWithin(busy []Interval, window Interval) []Interval {
	if !window.IsValid() {
		return nil
	}

	var free []Interval
	cursor := window.Start

	for _, b := range MergeBusy(busy) {
		if !b.End.After(window.Start) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}

	return free
}
