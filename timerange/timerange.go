// Copyright (c) 2025 BVK Chaitanya

// Package timerange selects trade history periods.
package timerange

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Range is a half-open time interval. Zero Begin or End leaves that side
// unbounded.
type Range struct {
	Begin, End time.Time
}

func (r *Range) IsZero() bool {
	return r.Begin.IsZero() && r.End.IsZero()
}

func (r *Range) InRange(v time.Time) bool {
	if !r.Begin.IsZero() && v.Before(r.Begin) {
		return false
	}
	if !r.End.IsZero() && !v.Before(r.End) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Parse returns the range for a named period relative to now. Supported
// names are today, yesterday, this-week, last-week, this-month, last-month
// and lifetime. A duration like 6h selects the period ending at now.
func Parse(name string, now time.Time) (*Range, error) {
	today := startOfDay(now)
	switch strings.ToLower(name) {
	case "", "lifetime":
		return &Range{}, nil
	case "today":
		return &Range{Begin: today, End: today.AddDate(0, 0, 1)}, nil
	case "yesterday":
		return &Range{Begin: today.AddDate(0, 0, -1), End: today}, nil
	case "this-week":
		begin := today.AddDate(0, 0, -int(now.Weekday()))
		return &Range{Begin: begin, End: begin.AddDate(0, 0, 7)}, nil
	case "last-week":
		end := today.AddDate(0, 0, -int(now.Weekday()))
		return &Range{Begin: end.AddDate(0, 0, -7), End: end}, nil
	case "this-month":
		begin := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &Range{Begin: begin, End: begin.AddDate(0, 1, 0)}, nil
	case "last-month":
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &Range{Begin: end.AddDate(0, -1, 0), End: end}, nil
	}
	if d, err := time.ParseDuration(name); err == nil && d > 0 {
		return &Range{Begin: now.Add(-d), End: now}, nil
	}
	return nil, fmt.Errorf("invalid period %q: %w", name, os.ErrInvalid)
}
