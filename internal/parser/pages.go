package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// PageRange is an inclusive, 1-based page range. Zero fields are open ends.
type PageRange struct {
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
}

// IsSet reports whether the range restricts anything.
func (r PageRange) IsSet() bool {
	return r.Start > 0 || r.End > 0
}

// Normalize raises a start below 1 to 1 and pulls a start past the end back
// to the end.
func (r PageRange) Normalize() PageRange {
	if !r.IsSet() {
		return r
	}
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End > 0 && r.Start > r.End {
		r.Start = r.End
	}
	return r
}

// Bounds resolves the range against a document of n pages.
func (r PageRange) Bounds(n int) (start, end int) {
	if n <= 0 {
		return 1, 0
	}
	r = r.Normalize()
	start, end = 1, n
	if r.Start > 0 {
		start = r.Start
	}
	if r.End > 0 && r.End < n {
		end = r.End
	}
	if start > end {
		start = end
	}
	return start, end
}

// Contains reports whether page p falls inside the range. Page 0 (unknown)
// is always inside.
func (r PageRange) Contains(p int) bool {
	if p == 0 || !r.IsSet() {
		return true
	}
	r = r.Normalize()
	if p < r.Start {
		return false
	}
	return r.End == 0 || p <= r.End
}

// String formats the range the way generic titles show it, e.g. "3p-5p".
func (r PageRange) String() string {
	if !r.IsSet() {
		return ""
	}
	r = r.Normalize()
	if r.End == 0 {
		return fmt.Sprintf("%dp-", r.Start)
	}
	return fmt.Sprintf("%dp-%dp", r.Start, r.End)
}

// ParsePageRange reads "3", "3-5", "3-" or "-5".
func ParsePageRange(s string) (PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PageRange{}, nil
	}
	startStr, endStr, isRange := strings.Cut(s, "-")
	var r PageRange
	var err error
	if startStr = strings.TrimSpace(startStr); startStr != "" {
		if r.Start, err = strconv.Atoi(startStr); err != nil || r.Start < 1 {
			return PageRange{}, eris.Errorf("invalid page range %q", s)
		}
	}
	if !isRange {
		r.End = r.Start
		return r, nil
	}
	if endStr = strings.TrimSpace(endStr); endStr != "" {
		if r.End, err = strconv.Atoi(endStr); err != nil || r.End < 1 {
			return PageRange{}, eris.Errorf("invalid page range %q", s)
		}
	}
	return r.Normalize(), nil
}
