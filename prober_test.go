package buildprobe

import (
	"bytes"
	"context"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProber returns a Linux-profile prober writing into buf and using
// a private parent directory for its scratch files.
func newTestProber(t *testing.T, runner Runner, buf *bytes.Buffer, opts ...Option) (*Prober, string) {
	t.Helper()
	parent := t.TempDir()
	base := []Option{
		WithRunner(runner),
		WithOutput(buf, false),
		WithProfile(ProfileFor(PlatformLinux)),
		WithToolchain("rustc"),
		WithTempDir(parent),
		WithWorkers(4),
	}
	return NewProber(append(base, opts...)...), parent
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "residual files in %s", dir)
}

func statuses(r *Report) map[string]Status {
	m := make(map[string]Status, len(r.Results))
	for _, res := range r.Results {
		m[res.Name] = res.Status
	}
	return m
}

func TestProber_HealthyHost(t *testing.T) {
	var buf bytes.Buffer
	runner := &fakeRunner{handle: healthyHost(t)}
	p, parent := newTestProber(t, runner, &buf)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	// toolchain, git, cmake, ninja, compiler, language standard, 16 libraries
	require.Len(t, report.Results, 22)
	assert.Equal(t, 22, report.Count(StatusPass))
	assert.NoError(t, report.Err())
	assert.Equal(t, "22 passed, 0 warnings, 0 failed", report.Summary())

	names := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"toolchain", "git", "cmake", "ninja", "compiler", "language standard", "lib pthread"}, names[:7])
	assert.Equal(t, "lib GLU", names[len(names)-1])

	assert.Contains(t, buf.String(), "[pass] rustc 1.46.0 (x86_64-unknown-linux-gnu)")
	assert.Contains(t, buf.String(), "[pass] git version 2.43.0")
	assert.Equal(t, 22, strings.Count(buf.String(), "\n"))

	requireEmptyDir(t, parent)
}

func TestProber_MissingFastBackendWarns(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		if cmd.Name == "ninja" {
			return Output{}, errExit
		}
		return healthy(cmd)
	}}
	p, _ := newTestProber(t, runner, &buf)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	res, ok := report.Result("ninja")
	require.True(t, ok)
	assert.Equal(t, StatusWarn, res.Status)
	assert.ErrorIs(t, res.Err, ErrToolNotFound)
	assert.Equal(t, 0, report.Count(StatusFail))
	assert.NoError(t, report.Err())
	assert.Contains(t, buf.String(), "[warn] ninja is not installed or not in PATH")
}

func TestProber_MissingToolDoesNotStopRun(t *testing.T) {
	for _, tool := range []string{"git", "cmake"} {
		t.Run(tool, func(t *testing.T) {
			var buf bytes.Buffer
			healthy := healthyHost(t)
			runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
				if cmd.Name == tool {
					return Output{}, errExit
				}
				return healthy(cmd)
			}}
			p, _ := newTestProber(t, runner, &buf)

			report, err := p.Run(context.Background())
			require.NoError(t, err)

			got := statuses(report)
			assert.Equal(t, StatusFail, got[tool])
			assert.Equal(t, 1, report.Count(StatusFail))
			assert.Equal(t, StatusPass, got["ninja"])
			assert.Equal(t, StatusPass, got["lib GLU"])

			var ce *CheckError
			require.ErrorAs(t, report.Err(), &ce)
			assert.Equal(t, tool, ce.Check)
		})
	}
}

func TestProber_ToolchainVersions(t *testing.T) {
	tests := []struct {
		output string
		want   Status
		err    error
	}{
		{"rustc 1.44.0 (49cae5576 2020-06-01)\n", StatusFail, ErrUnsupportedToolchain},
		{"rustc 1.46.0 (04488afe3 2020-08-24)\n", StatusPass, nil},
		{"rustc 1.72.1 (d5c2e9c34 2023-09-13)\n", StatusPass, nil},
		{"rustc 2.0.0 (deadbeef 2030-01-01)\n", StatusFail, ErrUnsupportedToolchain},
		{"garbage\n", StatusFail, ErrMalformedVersion},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.output), func(t *testing.T) {
			var buf bytes.Buffer
			healthy := healthyHost(t)
			runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
				if cmd.Name == "rustc" {
					return Output{Stdout: tt.output}, nil
				}
				return healthy(cmd)
			}}
			p, _ := newTestProber(t, runner, &buf)

			report, err := p.Run(context.Background())
			require.NoError(t, err)

			res, ok := report.Result("toolchain")
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Status)
			if tt.err != nil {
				assert.ErrorIs(t, res.Err, tt.err)
			}
			// The remaining checks always run.
			assert.Len(t, report.Results, 22)
		})
	}
}

func TestProber_MissingToolchain(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		if cmd.Name == "rustc" {
			return Output{}, errExit
		}
		return healthy(cmd)
	}}
	p, _ := newTestProber(t, runner, &buf)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	res, _ := report.Result("toolchain")
	assert.Equal(t, StatusFail, res.Status)
	assert.ErrorIs(t, res.Err, ErrToolNotFound)
}

func TestProber_LanguageStandardGate(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		if cmd.Name == "c++" && slices.Equal(cmd.Args, []string{sourceName}) {
			writeArtifact(t, Command{Dir: cmd.Dir, Name: cmd.Name, Args: []string{"-o", "check.o"}})
			return Output{Stderr: "check.cpp:6:14: error: 'make_unique' is not a member of 'std'\n"}, errExit
		}
		return healthy(cmd)
	}}
	p, parent := newTestProber(t, runner, &buf)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 6)
	gate := report.Results[5]
	assert.Equal(t, "language standard", gate.Name)
	assert.Equal(t, StatusFail, gate.Status)
	assert.ErrorIs(t, gate.Err, ErrLanguageStandard)

	var ce *CheckError
	require.ErrorAs(t, report.Err(), &ce)
	assert.Equal(t, "check.cpp:6:14: error: 'make_unique' is not a member of 'std'", ce.Reason)

	for _, c := range runner.calls {
		assert.NotContains(t, c.Args, "-o", "no library check may run after the gate fails")
	}
	requireEmptyDir(t, parent)
}

func TestProber_CompileWarningKeepsLibraryChecks(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		out, err := healthy(cmd)
		if cmd.Name == "c++" && slices.Equal(cmd.Args, []string{sourceName}) {
			out.Stderr = "ld: warning: ignoring duplicate libraries: '-lc++'\n"
		}
		return out, err
	}}
	p, parent := newTestProber(t, runner, &buf)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	gate, ok := report.Result("language standard")
	require.True(t, ok)
	assert.Equal(t, StatusPass, gate.Status)
	require.Len(t, report.Results, 22)
	assert.Equal(t, 0, report.Count(StatusFail))
	requireEmptyDir(t, parent)
}

func TestProber_InterruptedLibraryChecks(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		// Interrupt arrives right after the gate compiles.
		if cmd.Name == "c++" && slices.Equal(cmd.Args, []string{sourceName}) {
			defer cancel()
		}
		return healthy(cmd)
	}}
	p, parent := newTestProber(t, runner, &buf)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, 22)

	for _, res := range report.Results[6:] {
		assert.Equal(t, StatusFail, res.Status, res.Name)
		assert.ErrorIs(t, res.Err, context.Canceled, res.Name)
		assert.NotErrorIs(t, res.Err, ErrLibraryNotFound, res.Name)
		assert.Empty(t, res.Hint, res.Name)
		assert.Contains(t, res.Message, "not checked (interrupted)")
	}
	for _, c := range runner.calls {
		assert.NotContains(t, c.Args, "-o", "no link may start after cancellation")
	}
	assert.NotContains(t, buf.String(), "not found")
	requireEmptyDir(t, parent)
}

func TestProber_MissingLibraryIsolated(t *testing.T) {
	missing := map[string]bool{"-lXinerama": true, "-lpangoxft-1.0": true}

	run := func(t *testing.T, workers int) map[string]Status {
		var buf bytes.Buffer
		healthy := healthyHost(t)
		runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
			if cmd.Name == "c++" && len(cmd.Args) > 0 && missing[cmd.Args[len(cmd.Args)-1]] {
				return Output{Stderr: "/usr/bin/ld: cannot find " + cmd.Args[len(cmd.Args)-1] + "\n"}, errExit
			}
			return healthy(cmd)
		}}
		p, parent := newTestProber(t, runner, &buf, WithWorkers(workers))

		report, err := p.Run(context.Background())
		require.NoError(t, err)
		requireEmptyDir(t, parent)

		assert.Equal(t, 2, report.Count(StatusFail))
		res, _ := report.Result("lib Xinerama")
		assert.ErrorIs(t, res.Err, ErrLibraryNotFound)
		assert.Equal(t, "libXinerama missing; install its development package (e.g. libxinerama-dev or Xinerama-devel)", res.Hint)
		return statuses(report)
	}

	sequential := run(t, 1)
	parallel := run(t, 8)

	assert.Equal(t, sequential, parallel)
	assert.Equal(t, StatusFail, parallel["lib Xinerama"])
	assert.Equal(t, StatusFail, parallel["lib pangoxft-1.0"])
	assert.Equal(t, StatusPass, parallel["lib Xcursor"])
	assert.Equal(t, StatusPass, parallel["lib pangocairo-1.0"])
}

func TestProber_MSVCProfile(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		if cmd.Name == "cl" && slices.Contains(cmd.Args, "odbc32.lib") {
			return Output{Stdout: "LINK : fatal error LNK1181: cannot open input file 'odbc32.lib'\n"}, errExit
		}
		return healthy(cmd)
	}}
	p, parent := newTestProber(t, runner, &buf, WithProfile(ProfileFor(PlatformWindowsMSVC)))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	got := statuses(report)
	assert.Equal(t, StatusPass, got["compiler"])
	assert.Equal(t, StatusFail, got["lib odbc32"])
	assert.Equal(t, StatusPass, got["lib gdiplus"])
	assert.Equal(t, 1, report.Count(StatusFail))
	assert.Contains(t, buf.String(), "[fail] odbc32 not found (odbc32.lib)")
	requireEmptyDir(t, parent)
}

func TestProber_CompilerOverride(t *testing.T) {
	var buf bytes.Buffer
	healthy := healthyHost(t)
	runner := &fakeRunner{handle: func(cmd Command) (Output, error) {
		if cmd.Name == "clang++-17" {
			cmd.Name = "c++"
		}
		return healthy(cmd)
	}}
	p, _ := newTestProber(t, runner, &buf, WithCompiler("clang++-17"))

	assert.Equal(t, "clang++-17", p.Profile(context.Background()).Compiler)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count(StatusFail))
	assert.True(t, runner.called("clang++-17"))
	assert.False(t, runner.called("c++"))
}

func TestProber_ScratchDirFailure(t *testing.T) {
	var buf bytes.Buffer
	runner := &fakeRunner{handle: healthyHost(t)}
	p, _ := newTestProber(t, runner, &buf, WithTempDir("/nonexistent/buildprobe/parent"))

	report, err := p.Run(context.Background())
	require.Error(t, err)
	// Tool checks ran before the scratch directory was needed.
	assert.Len(t, report.Results, 5)
}

func TestNewProber_Defaults(t *testing.T) {
	t.Setenv("RUSTC", "/opt/rust/bin/rustc")
	p := NewProber()
	assert.Equal(t, "/opt/rust/bin/rustc", p.cfg.toolchain)
	assert.GreaterOrEqual(t, p.cfg.workers, 1)
	assert.Equal(t, DefaultToolchainRequirement, p.cfg.requirement)

	assert.Equal(t, !color.NoColor, p.cfg.colorize)

	t.Setenv("RUSTC", "")
	assert.Equal(t, "rustc", NewProber().cfg.toolchain)
}
