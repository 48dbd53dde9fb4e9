package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/leodido/buildprobe"
	"github.com/leodido/structcli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
)

// Build metadata injected via ldflags.
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	root := &cobra.Command{
		Use:   "buildprobe",
		Short: "Pre-flight checks for building native GUI bindings",
		Long: `buildprobe verifies that this machine can build a native GUI binding.

It checks the compiler toolchain version, git, CMake, Ninja and the C++ compiler,
then links a minimal program against every system library the binding needs on
this platform. Results are advisory: failures are printed, not enforced, unless
--strict is given.`,
		SilenceUsage: true,
	}

	root.AddCommand(checkCmd())
	root.AddCommand(profileCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	Toolchain string              `flag:"toolchain" flagdescr:"Toolchain executable queried with -vV (default $RUSTC or rustc)"`
	Cxx       string              `flag:"cxx" flagdescr:"C++ compiler (default $CXX or the platform compiler)"`
	Platform  buildprobe.Platform `flag:"platform" flagshort:"p" flagdescr:"Platform profile" flagcustom:"true"`
	Workers   int                 `flag:"workers" flagshort:"w" flagdescr:"Concurrent library checks (0 means one per CPU)"`
	NoColor   bool                `flag:"no-color" flagdescr:"Disable colored output"`
	Strict    bool                `flag:"strict" flagdescr:"Exit with code 1 if any check fails"`
	Verbose   bool                `flag:"verbose" flagshort:"v" flagdescr:"Log every subprocess invocation to stderr"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *CheckOptions) DefinePlatform(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*buildprobe.Platform)
	*fieldPtr = buildprobe.PlatformAuto
	return newPlatformValue(fieldPtr), fmt.Sprintf("%s (%s)", descr, strings.Join(buildprobe.PlatformNames(), ", "))
}

func (o *CheckOptions) DecodePlatform(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parsePlatform(s)
}

func checkCmd() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run every environment check",
		Long:  checkLongDescription(),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
			defer stop()

			profile := buildprobe.ResolveProfile(ctx, buildprobe.ExecRunner{}, opts.Platform, opts.Cxx)
			fmt.Println(checkHeader(profile))

			prober := buildprobe.NewProber(
				buildprobe.WithOutput(os.Stdout, !opts.NoColor && !color.NoColor),
				buildprobe.WithLogger(newLogger(opts.Verbose)),
				buildprobe.WithProfile(profile),
				buildprobe.WithToolchain(opts.Toolchain),
				buildprobe.WithWorkers(opts.Workers),
			)

			report, err := prober.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(report.Summary())

			if opts.Strict {
				var ce *buildprobe.CheckError
				if errors.As(report.Err(), &ce) {
					fmt.Fprintf(os.Stderr, "FAIL: %s: %s\n", ce.Check, ce.Reason)
					os.Exit(1)
				}
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// ProfileOptions defines flags for the profile subcommand.
type ProfileOptions struct {
	Platform buildprobe.Platform `flag:"platform" flagshort:"p" flagdescr:"Platform profile" flagcustom:"true"`
	Cxx      string              `flag:"cxx" flagdescr:"C++ compiler (default $CXX or the platform compiler)"`
}

func (o *ProfileOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ProfileOptions) DefinePlatform(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*buildprobe.Platform)
	*fieldPtr = buildprobe.PlatformAuto
	return newPlatformValue(fieldPtr), fmt.Sprintf("%s (%s)", descr, strings.Join(buildprobe.PlatformNames(), ", "))
}

func (o *ProfileOptions) DecodePlatform(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parsePlatform(s)
}

func profileCmd() *cobra.Command {
	opts := &ProfileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Display the platform profile that check would use",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			p := buildprobe.NewProber(
				buildprobe.WithPlatform(opts.Platform),
				buildprobe.WithCompiler(opts.Cxx),
			).Profile(c.Context())

			fmt.Print(formatProfile(p))
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool version and host",
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("buildprobe %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("buildprobe (dev)")
			}

			if host := buildprobe.HostDescription(); host != "" {
				fmt.Printf("Host: %s\n", host)
			}
			return nil
		},
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// checkHeader names the detected environment before any check runs.
func checkHeader(p buildprobe.Profile) string {
	return fmt.Sprintf("Checking environment: %s", p)
}

func formatProfile(p buildprobe.Profile) string {
	names := make([]string, 0, len(p.Libraries))
	for _, lib := range p.Libraries {
		names = append(names, strings.Join(p.LinkArgs(lib), " "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	fmt.Fprintf(&b, "Flavor:   %s\n", p.Flavor)
	fmt.Fprintf(&b, "Compiler: %s\n", p.Compiler)
	fmt.Fprintf(&b, "Libraries (%d):\n%s\n", len(p.Libraries), formatWrappedList(names, "  ", 80))
	return b.String()
}

func checkLongDescription() string {
	return fmt.Sprintf(`Run the toolchain, build tool, compiler and library checks.
Always exits with code 0 unless --strict is given and a check fails.

Available platforms:
%s`, formatWrappedList(buildprobe.PlatformNames(), "  ", 80))
}

func formatWrappedList(items []string, indent string, maxWidth int) string {
	if len(items) == 0 {
		return indent + "(none)"
	}

	lines := make([]string, 0, len(items))
	line := indent
	for i, item := range items {
		token := item
		if i < len(items)-1 {
			token += ", "
		}

		if len(line)+len(token) > maxWidth && line != indent {
			lines = append(lines, strings.TrimRight(line, " "))
			line = indent + token
			continue
		}

		line += token
	}

	lines = append(lines, strings.TrimRight(line, " "))
	return strings.Join(lines, "\n")
}

var platformIdentifierMap = func() map[buildprobe.Platform][]string {
	ids := make(map[buildprobe.Platform][]string, len(buildprobe.PlatformValues()))
	for _, p := range buildprobe.PlatformValues() {
		ids[p] = []string{p.String()}
	}
	// Common aliases.
	ids[buildprobe.PlatformDarwin] = append(ids[buildprobe.PlatformDarwin], "macos")
	ids[buildprobe.PlatformWindowsMSVC] = append(ids[buildprobe.PlatformWindowsMSVC], "msvc")
	ids[buildprobe.PlatformWindowsGNU] = append(ids[buildprobe.PlatformWindowsGNU], "mingw")
	return ids
}()

func newPlatformValue(p *buildprobe.Platform) pflag.Value {
	return enumflag.New(p, "platform", platformIdentifierMap, enumflag.EnumCaseInsensitive)
}

func parsePlatform(input string) (buildprobe.Platform, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return buildprobe.PlatformAuto, nil
	}

	var p buildprobe.Platform
	if err := newPlatformValue(&p).Set(name); err != nil {
		return buildprobe.PlatformAuto, fmt.Errorf("unknown platform: %q (available: %s)", name, strings.Join(buildprobe.PlatformNames(), ", "))
	}
	return p, nil
}
