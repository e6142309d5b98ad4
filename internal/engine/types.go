// File: internal/engine/types.go
package engine

import (
	"fmt"
	"strings"
	"time"
)

// LocatorKind discriminates how a Locator is resolved against the page.
type LocatorKind int

const (
	// ByQuery resolves via a CSS selector.
	ByQuery LocatorKind = iota
	// ByXPath resolves via an XPath expression.
	ByXPath
	// ByText resolves to the first element whose visible text equals the value.
	ByText
	// ByTextRegex resolves to the first leaf element whose visible text
	// matches the value as a regular expression.
	ByTextRegex
)

// Locator is one concrete way of referencing an element on the remote
// surface. The weakly typed portal markup (uni-app custom elements, text-only
// anchors) means a single logical target often needs several variants.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func Query(sel string) Locator     { return Locator{Kind: ByQuery, Value: sel} }
func XPath(expr string) Locator    { return Locator{Kind: ByXPath, Value: expr} }
func Text(text string) Locator     { return Locator{Kind: ByText, Value: text} }
func TextRegex(pat string) Locator { return Locator{Kind: ByTextRegex, Value: pat} }

func (l Locator) String() string {
	switch l.Kind {
	case ByQuery:
		return "css=" + l.Value
	case ByXPath:
		return "xpath=" + l.Value
	case ByText:
		return "text=" + l.Value
	case ByTextRegex:
		return "text~=" + l.Value
	default:
		return l.Value
	}
}

// Candidate pairs a locator with the budget for waiting on it. Immutable
// once constructed; each candidate is tried at most once per Attempt call.
type Candidate struct {
	Target  Locator
	Timeout time.Duration
}

func NewCandidate(target Locator, timeout time.Duration) Candidate {
	return Candidate{Target: target, Timeout: timeout}
}

// Resource identifies one bookable unit, e.g. a court tab on the portal.
type Resource string

// Slot identifies a bookable interval by its textual start and end tokens.
type Slot struct {
	Start string
	End   string
}

// ParseSlot splits a "18:00-19:00" style token into a Slot.
func ParseSlot(s string) (Slot, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok || start == "" || end == "" {
		return Slot{}, fmt.Errorf("slot %q is not of the form start-end", s)
	}
	return Slot{Start: start, End: end}, nil
}

// StartHour returns the hour token of the slot start ("18" for "18:00").
func (s Slot) StartHour() string {
	hour, _, _ := strings.Cut(s.Start, ":")
	return hour
}

func (s Slot) String() string { return s.Start + "-" + s.End }

// Combination is one (Resource, Slot) pair considered for booking.
type Combination struct {
	Court Resource
	Slot  Slot
}

func (c Combination) String() string {
	return fmt.Sprintf("%s/%s", c.Court, c.Slot)
}

// Combinations builds the full cartesian product of resources and slots.
func Combinations(resources []Resource, slots []Slot) []Combination {
	combos := make([]Combination, 0, len(resources)*len(slots))
	for _, r := range resources {
		for _, s := range slots {
			combos = append(combos, Combination{Court: r, Slot: s})
		}
	}
	return combos
}

// Signal is the classified result of a submission attempt.
type Signal int

const (
	// SignalUnknown means neither pattern surfaced within its budget. It is
	// a first-class terminal value, not an error, and never a confirmation.
	SignalUnknown Signal = iota
	SignalSuccess
	SignalFailure
)

func (s Signal) String() string {
	switch s {
	case SignalSuccess:
		return "success"
	case SignalFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome carries the classified signal plus the matched page text, if any.
type Outcome struct {
	Signal  Signal
	Message string
}

// TimeOfDay is a wall-clock release instant with millisecond precision.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
	Milli  int
}

// ParseTimeOfDay parses the hh:mm:ss:SSS notation used in configuration.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	n, err := fmt.Sscanf(s, "%d:%d:%d:%d", &t.Hour, &t.Minute, &t.Second, &t.Milli)
	if err != nil || n != 4 {
		return TimeOfDay{}, fmt.Errorf("time of day %q is not of the form hh:mm:ss:SSS", s)
	}
	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 || t.Milli > 999 ||
		t.Hour < 0 || t.Minute < 0 || t.Second < 0 || t.Milli < 0 {
		return TimeOfDay{}, fmt.Errorf("time of day %q is out of range", s)
	}
	return t, nil
}

// NextOccurrence resolves the time of day against now: today if still ahead,
// otherwise the same instant tomorrow.
func (t TimeOfDay) NextOccurrence(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour, t.Minute, t.Second, t.Milli*int(time.Millisecond), now.Location())
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%03d", t.Hour, t.Minute, t.Second, t.Milli)
}
