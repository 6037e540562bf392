// Package validate checks that every entity, device and area referenced
// by a Home Assistant configuration resolves against the registries or
// against entities the configuration defines itself.
//
// Findings are data, not Go errors: every entry point returns a Result
// holding human-readable errors and warnings, each prefixed with the
// file or label it concerns.
package validate

import "fmt"

// Result holds the findings of one validation. Warnings never fail a
// run; errors do.
type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether no errors were recorded.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Merge appends o's findings to r.
func (r *Result) Merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// normalize replaces nil slices with empty ones so JSON output always
// carries both arrays.
func (r *Result) normalize() {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
}
