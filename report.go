package buildprobe

import (
	"errors"
	"fmt"
	"strings"
)

// Report aggregates the results of a run in check order.
type Report struct {
	Profile Profile
	Results []Result
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Result returns the result of the named check.
// Returns false as the second value if the check did not run.
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Err returns a *[CheckError] for the first failed check, or nil if none failed.
// Warnings are not errors.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Status != StatusFail {
			continue
		}
		var ce *CheckError
		if errors.As(res.Err, &ce) {
			return ce
		}
		return &CheckError{Check: res.Name, Reason: res.Message, Err: res.Err}
	}
	return nil
}

// Summary returns a one-line tally, e.g. "18 passed, 1 warning, 2 failed".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %s, %d failed",
		r.Count(StatusPass), plural(r.Count(StatusWarn), "warning"), r.Count(StatusFail))
}

// String returns an uncolored rendition of the whole report.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", r.Profile)
	for _, res := range r.Results {
		fmt.Fprintf(&b, "  %s: %s", res.Name, res.Status)
		if res.Status != StatusPass && res.Err != nil {
			fmt.Fprintf(&b, " (%v)", res.Err)
		}
		b.WriteString("\n")
	}
	b.WriteString(r.Summary())
	b.WriteString("\n")
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
