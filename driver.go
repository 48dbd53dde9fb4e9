package buildprobe

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// sourceName is the minimal translation unit written into the scratch directory.
const sourceName = "check.cpp"

// minimalSource exercises the C++ standard library features the GUI binding
// relies on without any extra flags.
const minimalSource = `#include <memory>
#include <string>
#include <vector>

int main() {
    auto v = std::make_unique<std::vector<std::string>>();
    v->emplace_back("ok");
    return v->size() == 1 ? 0 : 1;
}
`

// msvcLinkErrorMarker identifies an unresolved library in cl.exe output.
const msvcLinkErrorMarker = "fatal error LNK"

// CompileResult is the uniform verdict of a compiler invocation.
type CompileResult struct {
	OK         bool
	Diagnostic string
	Err        error
}

// Driver invokes one compiler family. All paths are relative to dir.
type Driver interface {
	// Compiler returns the executable name.
	Compiler() string
	// Version checks that the compiler can be started.
	Version(ctx context.Context) CompileResult
	// Compile builds src with no extra flags.
	Compile(ctx context.Context, dir, src string) CompileResult
	// Link builds src linking lib; the output name is unique per library.
	Link(ctx context.Context, dir, src string, lib LibraryRequirement) CompileResult
}

// NewDriver returns the driver matching the profile's flavor.
func NewDriver(p Profile, runner Runner, log zerolog.Logger) Driver {
	if p.Flavor == FlavorMSVC {
		return &msvcDriver{profile: p, runner: runner, log: log}
	}
	return &posixDriver{profile: p, runner: runner, log: log}
}

type posixDriver struct {
	profile Profile
	runner  Runner
	log     zerolog.Logger
}

func (d *posixDriver) Compiler() string { return d.profile.Compiler }

func (d *posixDriver) Version(ctx context.Context) CompileResult {
	return d.run(ctx, Command{Name: d.profile.Compiler, Args: []string{"--version"}}, false)
}

func (d *posixDriver) Compile(ctx context.Context, dir, src string) CompileResult {
	return d.run(ctx, Command{Dir: dir, Name: d.profile.Compiler, Args: []string{src}}, false)
}

func (d *posixDriver) Link(ctx context.Context, dir, src string, lib LibraryRequirement) CompileResult {
	args := []string{src, "-o", artifactName(lib) + ".out"}
	args = append(args, d.profile.LinkArgs(lib)...)
	return d.run(ctx, Command{Dir: dir, Name: d.profile.Compiler, Args: args}, true)
}

// run treats any stderr output as a failure when strict is set: linkers may
// exit zero while warning about a missing library. Only links are strict.
func (d *posixDriver) run(ctx context.Context, cmd Command, strict bool) CompileResult {
	d.log.Debug().Str("cmd", cmd.String()).Str("dir", cmd.Dir).Msg("running compiler")
	out, err := d.runner.Run(ctx, cmd)
	diag := firstLine(out.Stderr)
	if err != nil {
		return CompileResult{Diagnostic: diag, Err: err}
	}
	if strict && strings.TrimSpace(out.Stderr) != "" {
		return CompileResult{Diagnostic: diag}
	}
	return CompileResult{OK: true}
}

type msvcDriver struct {
	profile Profile
	runner  Runner
	log     zerolog.Logger
}

func (d *msvcDriver) Compiler() string { return d.profile.Compiler }

// Version runs cl without arguments: it has no version flag, and prints
// its banner when started bare.
func (d *msvcDriver) Version(ctx context.Context) CompileResult {
	return d.run(ctx, Command{Name: d.profile.Compiler})
}

func (d *msvcDriver) Compile(ctx context.Context, dir, src string) CompileResult {
	return d.run(ctx, Command{Dir: dir, Name: d.profile.Compiler, Args: []string{"/nologo", "/EHsc", src}})
}

func (d *msvcDriver) Link(ctx context.Context, dir, src string, lib LibraryRequirement) CompileResult {
	name := artifactName(lib)
	args := []string{"/nologo", "/EHsc", src, "/Fe" + name + ".exe", "/Fo" + name + ".obj"}
	args = append(args, d.profile.LinkArgs(lib)...)
	return d.run(ctx, Command{Dir: dir, Name: d.profile.Compiler, Args: args})
}

// run scans the captured output for the fatal link marker: cl writes its
// diagnostics to stdout.
func (d *msvcDriver) run(ctx context.Context, cmd Command) CompileResult {
	d.log.Debug().Str("cmd", cmd.String()).Str("dir", cmd.Dir).Msg("running compiler")
	out, err := d.runner.Run(ctx, cmd)
	combined := out.Combined()
	if idx := strings.Index(combined, msvcLinkErrorMarker); idx >= 0 {
		return CompileResult{Diagnostic: firstLine(combined[idx:]), Err: err}
	}
	if err != nil {
		return CompileResult{Diagnostic: firstLine(out.Stdout), Err: err}
	}
	return CompileResult{OK: true}
}

// artifactName maps a library to a file-system friendly output stem.
func artifactName(lib LibraryRequirement) string {
	return "check-" + strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(lib.Name)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
