package buildprobe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// toolCheck describes a build tool probed with a version flag.
type toolCheck struct {
	name     string
	args     []string
	optional bool
	hint     string
}

// buildTools are probed in order after the toolchain version check.
var buildTools = []toolCheck{
	{name: "git", args: []string{"--version"}, hint: "install git and make sure it is on PATH"},
	{name: "cmake", args: []string{"--version"}, hint: "install CMake 3.11 or later and make sure it is on PATH"},
	{name: "ninja", args: []string{"--version"}, optional: true, hint: "install Ninja for faster builds; CMake falls back to its default generator"},
}

func checkToolchain(ctx context.Context, runner Runner, toolchain string, req ToolchainRequirement) Result {
	name := "toolchain"
	hint := fmt.Sprintf("install a %s toolchain (%s) and make sure it is on PATH", toolchain, req)

	out, err := runner.Run(ctx, Command{Name: toolchain, Args: []string{"-vV"}})
	if err != nil {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not installed or not in PATH", toolchain),
			Hint:    hint,
			Err:     &CheckError{Check: name, Reason: "cannot run " + toolchain, Err: fmt.Errorf("%w: %w", ErrToolNotFound, err)},
		}
	}

	v, err := parseToolchainVersion(out.Stdout)
	if err != nil {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot parse %s version output", toolchain),
			Hint:    hint,
			Err:     &CheckError{Check: name, Reason: "unexpected version output", Err: err},
		}
	}

	if !req.Satisfied(v) {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s %s is not supported, need %s", toolchain, v, req),
			Hint:    hint,
			Err:     &CheckError{Check: name, Reason: "version " + v.Raw, Err: ErrUnsupportedToolchain},
		}
	}

	return Result{Name: name, Status: StatusPass, Message: fmt.Sprintf("%s %s", toolchain, v)}
}

func checkTool(ctx context.Context, runner Runner, tc toolCheck) Result {
	out, err := runner.Run(ctx, Command{Name: tc.name, Args: tc.args})
	if err == nil {
		msg := tc.name + " found"
		if line := firstLine(out.Stdout); line != "" {
			msg = line
		}
		return Result{Name: tc.name, Status: StatusPass, Message: msg}
	}

	status := StatusFail
	if tc.optional {
		status = StatusWarn
	}
	return Result{
		Name:    tc.name,
		Status:  status,
		Message: fmt.Sprintf("%s is not installed or not in PATH", tc.name),
		Hint:    tc.hint,
		Err:     &CheckError{Check: tc.name, Reason: "cannot run " + tc.name, Err: fmt.Errorf("%w: %w", ErrToolNotFound, err)},
	}
}

func checkCompiler(ctx context.Context, driver Driver) Result {
	name := "compiler"
	res := driver.Version(ctx)
	if res.OK {
		return Result{Name: name, Status: StatusPass, Message: fmt.Sprintf("C++ compiler %s found", driver.Compiler())}
	}
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("C++ compiler %s is not installed or not in PATH", driver.Compiler()),
		Hint:    "install a C++ compiler or point CXX at one",
		Err:     &CheckError{Check: name, Reason: "cannot run " + driver.Compiler(), Err: fmt.Errorf("%w: %w", ErrToolNotFound, compileErr(res))},
	}
}

func checkLanguageStandard(ctx context.Context, driver Driver, dir string) Result {
	name := "language standard"
	res := driver.Compile(ctx, dir, sourceName)
	if res.OK {
		return Result{Name: name, Status: StatusPass, Message: fmt.Sprintf("%s compiles the minimal C++ source", driver.Compiler())}
	}
	msg := fmt.Sprintf("%s cannot compile the minimal C++ source, skipping library checks", driver.Compiler())
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: msg,
		Hint:    "upgrade the C++ compiler to one defaulting to C++14 or later",
		Err:     &CheckError{Check: name, Reason: res.Diagnostic, Err: fmt.Errorf("%w: %w", ErrLanguageStandard, compileErr(res))},
	}
}

func checkLibrary(ctx context.Context, driver Driver, profile Profile, dir string, lib LibraryRequirement) Result {
	name := "lib " + lib.Name
	if err := ctx.Err(); err != nil {
		return interrupted(name, lib, err)
	}
	res := driver.Link(ctx, dir, sourceName, lib)
	if res.OK {
		return Result{Name: name, Status: StatusPass, Message: fmt.Sprintf("%s links", lib.Name)}
	}
	if err := ctx.Err(); err != nil {
		return interrupted(name, lib, err)
	}
	reason := res.Diagnostic
	if reason == "" {
		reason = "link failed"
	}
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("%s not found (%s)", lib.Name, strings.Join(profile.LinkArgs(lib), " ")),
		Hint:    profile.Diagnose(lib),
		Err:     &CheckError{Check: name, Reason: reason, Err: fmt.Errorf("%w: %w", ErrLibraryNotFound, compileErr(res))},
	}
}

// interrupted reports a library check cut short by cancellation; it says
// nothing about whether the library is installed.
func interrupted(name string, lib LibraryRequirement, err error) Result {
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("%s not checked (interrupted)", lib.Name),
		Err:     &CheckError{Check: name, Reason: "interrupted", Err: err},
	}
}

// compileErr returns the process error of res, or a generic one when the
// process succeeded but its output revealed a failure.
func compileErr(res CompileResult) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Diagnostic != "" {
		return fmt.Errorf("compiler reported: %s", res.Diagnostic)
	}
	return errors.New("compiler reported errors")
}

// Diagnose returns a remediation hint for a library that failed to link.
func (p Profile) Diagnose(lib LibraryRequirement) string {
	switch p.Platform {
	case PlatformDarwin:
		return fmt.Sprintf("framework %s missing; install the Xcode command line tools (xcode-select --install)", lib.Name)
	case PlatformWindowsMSVC:
		return fmt.Sprintf("%s.lib missing; install the Windows SDK and run from a Developer Command Prompt", lib.Name)
	case PlatformWindowsGNU:
		return fmt.Sprintf("lib%s.a missing; install the MinGW-w64 toolchain (e.g. pacman -S mingw-w64-x86_64-toolchain)", lib.Name)
	default:
		if lib.Name == "pthread" {
			return "libpthread missing; install the C library development package (e.g. libc6-dev)"
		}
		return fmt.Sprintf("lib%s missing; install its development package (e.g. lib%s-dev or %s-devel)", lib.Name, strings.ToLower(lib.Name), lib.Name)
	}
}
