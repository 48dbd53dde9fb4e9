package buildprobe

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

// Flavor is the compiler family, which decides invocation and link syntax.
type Flavor int

const (
	// FlavorPOSIX is a GCC/Clang style driver linking with -l<name>.
	FlavorPOSIX Flavor = iota
	// FlavorFramework is Clang on macOS linking with -framework <name>.
	FlavorFramework
	// FlavorMSVC is the Microsoft cl.exe driver linking with <name>.lib.
	FlavorMSVC
)

func (f Flavor) String() string {
	switch f {
	case FlavorPOSIX:
		return "posix"
	case FlavorFramework:
		return "framework"
	case FlavorMSVC:
		return "msvc"
	default:
		return fmt.Sprintf("Flavor(%d)", f)
	}
}

// Platform selects a [Profile].
type Platform int

const (
	// PlatformAuto detects the platform from the running host.
	PlatformAuto Platform = iota
	// PlatformLinux covers Linux and the other X11 unixes.
	PlatformLinux
	// PlatformDarwin covers macOS.
	PlatformDarwin
	// PlatformWindowsMSVC covers Windows with the Microsoft toolchain.
	PlatformWindowsMSVC
	// PlatformWindowsGNU covers Windows with MSYS2/MinGW.
	PlatformWindowsGNU
)

var platformNames = map[Platform]string{
	PlatformAuto:        "auto",
	PlatformLinux:       "linux",
	PlatformDarwin:      "darwin",
	PlatformWindowsMSVC: "windows-msvc",
	PlatformWindowsGNU:  "windows-gnu",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Platform(%d)", p)
}

// PlatformValues returns every platform in declaration order.
func PlatformValues() []Platform {
	return []Platform{PlatformAuto, PlatformLinux, PlatformDarwin, PlatformWindowsMSVC, PlatformWindowsGNU}
}

// PlatformNames returns the names of [PlatformValues].
func PlatformNames() []string {
	values := PlatformValues()
	names := make([]string, 0, len(values))
	for _, p := range values {
		names = append(names, p.String())
	}
	return names
}

// LibraryRequirement is a system library or framework needed at link time.
type LibraryRequirement struct {
	Name string
}

// Profile is the static set of requirements and compiler conventions
// for one platform. It is selected once and never mutated.
type Profile struct {
	Platform  Platform
	Flavor    Flavor
	Compiler  string
	Libraries []LibraryRequirement
}

// String returns e.g. "windows-msvc (msvc, cl)".
func (p Profile) String() string {
	return fmt.Sprintf("%s (%s, %s)", p.Platform, p.Flavor, p.Compiler)
}

// LinkArgs returns the linker arguments for lib in the profile's syntax.
func (p Profile) LinkArgs(lib LibraryRequirement) []string {
	switch p.Flavor {
	case FlavorFramework:
		return []string{"-framework", lib.Name}
	case FlavorMSVC:
		return []string{lib.Name + ".lib"}
	default:
		return []string{"-l" + lib.Name}
	}
}

func libraries(names ...string) []LibraryRequirement {
	libs := make([]LibraryRequirement, 0, len(names))
	for _, n := range names {
		libs = append(libs, LibraryRequirement{Name: n})
	}
	return libs
}

var (
	x11Libraries = []string{
		"pthread", "X11", "Xext", "Xinerama", "Xcursor", "Xrender", "Xfixes", "Xft",
		"fontconfig", "pango-1.0", "pangoxft-1.0", "gobject-2.0", "cairo",
		"pangocairo-1.0", "GL", "GLU",
	}
	darwinFrameworks = []string{"Carbon", "Cocoa", "ApplicationServices", "OpenGL"}
	windowsLibraries = []string{
		"ws2_32", "comctl32", "gdi32", "oleaut32", "ole32", "uuid", "shell32",
		"advapi32", "comdlg32", "winspool", "user32", "kernel32", "odbc32",
		"gdiplus", "opengl32", "glu32",
	}
)

// ProfileFor returns the profile of a concrete platform.
// PlatformAuto is resolved as the Linux profile; use [DetectPlatform] first.
func ProfileFor(p Platform) Profile {
	switch p {
	case PlatformDarwin:
		return Profile{Platform: p, Flavor: FlavorFramework, Compiler: "c++", Libraries: libraries(darwinFrameworks...)}
	case PlatformWindowsMSVC:
		return Profile{Platform: p, Flavor: FlavorMSVC, Compiler: "cl", Libraries: libraries(windowsLibraries...)}
	case PlatformWindowsGNU:
		return Profile{Platform: p, Flavor: FlavorPOSIX, Compiler: "g++", Libraries: libraries(windowsLibraries...)}
	default:
		return Profile{Platform: PlatformLinux, Flavor: FlavorPOSIX, Compiler: "c++", Libraries: libraries(x11Libraries...)}
	}
}

// DetectPlatform resolves the platform of the host identified by goos.
//
// On Windows the compiler family is not known up front: a POSIX system-info
// command (uname) is attempted, and success means an MSYS2/MinGW environment.
func DetectPlatform(ctx context.Context, runner Runner, goos string) Platform {
	switch goos {
	case "darwin":
		return PlatformDarwin
	case "windows":
		if _, err := runner.Run(ctx, Command{Name: "uname"}); err == nil {
			return PlatformWindowsGNU
		}
		return PlatformWindowsMSVC
	default:
		return PlatformLinux
	}
}

// ResolveProfile returns the profile for the requested platform, detecting
// the host one when p is PlatformAuto. A non-empty cxx, or else $CXX,
// replaces the profile's compiler name.
func ResolveProfile(ctx context.Context, runner Runner, p Platform, cxx string) Profile {
	if p == PlatformAuto {
		p = DetectPlatform(ctx, runner, runtime.GOOS)
	}
	profile := ProfileFor(p)
	if cxx == "" {
		cxx = os.Getenv("CXX")
	}
	if cxx != "" {
		profile.Compiler = cxx
	}
	return profile
}
