package buildprobe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// proberConfig holds the configuration for a probe run.
type proberConfig struct {
	runner      Runner
	out         io.Writer
	colorize    bool
	log         zerolog.Logger
	platform    Platform
	profile     *Profile
	cxx         string
	toolchain   string
	requirement ToolchainRequirement
	workers     int
	tempDir     string
}

// Option configures a [Prober].
type Option func(*proberConfig)

// WithRunner replaces the subprocess runner (default [ExecRunner]).
func WithRunner(r Runner) Option {
	return func(c *proberConfig) {
		c.runner = r
	}
}

// WithOutput sets the destination of the report lines. The default is
// stdout, colored unless color.NoColor is set.
func WithOutput(w io.Writer, colorize bool) Option {
	return func(c *proberConfig) {
		c.out = w
		c.colorize = colorize
	}
}

// WithLogger sets the logger used for debug tracing of subprocesses.
func WithLogger(log zerolog.Logger) Option {
	return func(c *proberConfig) {
		c.log = log
	}
}

// WithPlatform forces a platform instead of detecting the host one.
func WithPlatform(p Platform) Option {
	return func(c *proberConfig) {
		c.platform = p
	}
}

// WithProfile uses a fully specified profile, bypassing detection.
func WithProfile(p Profile) Option {
	return func(c *proberConfig) {
		c.profile = &p
	}
}

// WithCompiler overrides the profile's C++ compiler name.
func WithCompiler(cxx string) Option {
	return func(c *proberConfig) {
		c.cxx = cxx
	}
}

// WithToolchain sets the toolchain executable queried for its version.
func WithToolchain(name string) Option {
	return func(c *proberConfig) {
		c.toolchain = name
	}
}

// WithToolchainRequirement replaces [DefaultToolchainRequirement].
func WithToolchainRequirement(r ToolchainRequirement) Option {
	return func(c *proberConfig) {
		c.requirement = r
	}
}

// WithWorkers bounds the number of concurrent library checks.
// Values below 1 mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *proberConfig) {
		c.workers = n
	}
}

// WithTempDir sets the parent of the scratch directory (default os.TempDir).
func WithTempDir(dir string) Option {
	return func(c *proberConfig) {
		c.tempDir = dir
	}
}

// Prober runs the environment checks and prints each outcome.
type Prober struct {
	cfg     proberConfig
	printer *Printer
}

// NewProber returns a Prober configured by opts.
func NewProber(opts ...Option) *Prober {
	cfg := proberConfig{
		runner:      ExecRunner{},
		out:         os.Stdout,
		colorize:    !color.NoColor,
		log:         zerolog.Nop(),
		requirement: DefaultToolchainRequirement,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.toolchain == "" {
		cfg.toolchain = os.Getenv("RUSTC")
	}
	if cfg.toolchain == "" {
		cfg.toolchain = "rustc"
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.NumCPU()
	}
	return &Prober{cfg: cfg, printer: NewPrinter(cfg.out, cfg.colorize)}
}

// Profile returns the platform profile the prober will use.
func (p *Prober) Profile(ctx context.Context) Profile {
	if p.cfg.profile != nil {
		profile := *p.cfg.profile
		if p.cfg.cxx != "" {
			profile.Compiler = p.cfg.cxx
		}
		return profile
	}
	return ResolveProfile(ctx, p.cfg.runner, p.cfg.platform, p.cfg.cxx)
}

// Run executes every check in order and returns the collected report.
// Failed checks never abort the run, except the language standard gate.
// The returned error is non-nil only if the scratch directory cannot be
// prepared; the report collected so far is returned with it.
func (p *Prober) Run(ctx context.Context) (*Report, error) {
	profile := p.Profile(ctx)
	driver := NewDriver(profile, p.cfg.runner, p.cfg.log)
	report := &Report{Profile: profile}

	emit := func(r Result) {
		report.add(r)
		p.printer.Print(r)
	}

	p.cfg.log.Debug().
		Str("platform", profile.Platform.String()).
		Str("compiler", profile.Compiler).
		Int("libraries", len(profile.Libraries)).
		Msg("resolved profile")

	emit(checkToolchain(ctx, p.cfg.runner, p.cfg.toolchain, p.cfg.requirement))
	for _, tc := range buildTools {
		emit(checkTool(ctx, p.cfg.runner, tc))
	}
	emit(checkCompiler(ctx, driver))

	dir, err := os.MkdirTemp(p.cfg.tempDir, "buildprobe-")
	if err != nil {
		return report, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.cfg.log.Warn().Err(err).Str("dir", dir).Msg("cannot remove scratch directory")
		}
	}()
	if err := os.WriteFile(filepath.Join(dir, sourceName), []byte(minimalSource), 0o644); err != nil {
		return report, fmt.Errorf("write %s: %w", sourceName, err)
	}

	gate := checkLanguageStandard(ctx, driver, dir)
	emit(gate)
	if gate.Status == StatusFail {
		return report, nil
	}

	for _, r := range p.checkLibraries(ctx, driver, profile, dir) {
		report.add(r)
	}
	return report, nil
}

// checkLibraries links every library in parallel. Results keep the profile
// order; lines are printed as checks complete.
func (p *Prober) checkLibraries(ctx context.Context, driver Driver, profile Profile, dir string) []Result {
	results := make([]Result, len(profile.Libraries))

	var g errgroup.Group
	g.SetLimit(p.cfg.workers)
	for i, lib := range profile.Libraries {
		g.Go(func() error {
			r := checkLibrary(ctx, driver, profile, dir, lib)
			results[i] = r
			p.printer.Print(r)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
