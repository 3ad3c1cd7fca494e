// Copyright (c) 2025 BVK Chaitanya

package timerange

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	day := func(m time.Month, d int) time.Time {
		return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
	}

	testCases := []struct {
		name       string
		begin, end time.Time
	}{
		{"lifetime", time.Time{}, time.Time{}},
		{"today", day(3, 12), day(3, 13)},
		{"yesterday", day(3, 11), day(3, 12)},
		{"this-week", day(3, 9), day(3, 16)},
		{"last-week", day(3, 2), day(3, 9)},
		{"this-month", day(3, 1), day(4, 1)},
		{"last-month", day(2, 1), day(3, 1)},
		{"6h", now.Add(-6 * time.Hour), now},
	}
	for _, tc := range testCases {
		r, err := Parse(tc.name, now)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !r.Begin.Equal(tc.begin) || !r.End.Equal(tc.end) {
			t.Fatalf("%s: want [%v, %v), got [%v, %v)", tc.name, tc.begin, tc.end, r.Begin, r.End)
		}
	}

	if _, err := Parse("fortnight", now); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestInRange(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	r, err := Parse("today", now)
	if err != nil {
		t.Fatal(err)
	}
	if !r.InRange(now) {
		t.Fatalf("now must be in today")
	}
	if !r.InRange(r.Begin) {
		t.Fatalf("range begin must be included")
	}
	if r.InRange(r.End) {
		t.Fatalf("range end must be excluded")
	}
	var zero Range
	if !zero.InRange(now) {
		t.Fatalf("zero range must include everything")
	}
}
