package buildprobe

import (
	"errors"
	"fmt"
)

// Status is the outcome of a single environment check.
type Status int

const (
	// StatusPass means the prerequisite is satisfied.
	StatusPass Status = iota
	// StatusWarn means an optional prerequisite is missing.
	StatusWarn
	// StatusFail means a required prerequisite is missing or unusable.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Sentinel errors wrapped by [CheckError].
var (
	// ErrToolNotFound is returned when a tool cannot be spawned or exits non-zero.
	ErrToolNotFound = errors.New("tool not available")
	// ErrMalformedVersion is returned when a version string cannot be parsed.
	ErrMalformedVersion = errors.New("malformed version string")
	// ErrUnsupportedToolchain is returned when the toolchain is too old or too new.
	ErrUnsupportedToolchain = errors.New("unsupported toolchain version")
	// ErrLanguageStandard is returned when the minimal source does not compile.
	ErrLanguageStandard = errors.New("compiler cannot build the minimal source")
	// ErrLibraryNotFound is returned when linking against a library fails.
	ErrLibraryNotFound = errors.New("library not linkable")
)

// CheckError describes why a check did not pass.
type CheckError struct {
	Check  string
	Reason string
	Err    error
}

func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("check %s: %s: %v", e.Check, e.Reason, e.Err)
	}
	return fmt.Sprintf("check %s: %s", e.Check, e.Reason)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one check. It is printed as soon as it is produced.
type Result struct {
	// Name identifies the check (e.g. "git", "lib X11").
	Name string
	// Status is the verdict.
	Status Status
	// Message is the human-readable line shown to the operator.
	Message string
	// Hint is a remediation suggestion, empty on pass.
	Hint string
	// Err carries the underlying cause for warn/fail results.
	Err error
}

// ToolchainVersion is the (major, minor) pair reported by the toolchain,
// together with the host triple when available.
type ToolchainVersion struct {
	Major uint64
	Minor uint64
	Patch uint64
	Host  string
	Raw   string
}

func (v ToolchainVersion) String() string {
	if v.Host == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d (%s)", v.Major, v.Minor, v.Patch, v.Host)
}

// ToolchainRequirement is the accepted toolchain range: the major version
// must match exactly and the minor version must be strictly greater than
// MinorAbove.
type ToolchainRequirement struct {
	Major      uint64
	MinorAbove uint64
}

// DefaultToolchainRequirement accepts 1.46 and later 1.x releases.
var DefaultToolchainRequirement = ToolchainRequirement{Major: 1, MinorAbove: 45}

// Satisfied reports whether v falls within the requirement.
func (r ToolchainRequirement) Satisfied(v ToolchainVersion) bool {
	return v.Major == r.Major && v.Minor > r.MinorAbove
}

func (r ToolchainRequirement) String() string {
	return fmt.Sprintf("%d.x with x > %d", r.Major, r.MinorAbove)
}
