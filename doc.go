// Package buildprobe verifies that a development machine can build a native
// GUI binding before any build is attempted.
//
// It checks the compiler toolchain version, the build tools (git, CMake and
// the optional Ninja backend), the C++ compiler, and links a minimal program
// against every system library or framework the binding needs on the
// current platform. Each check is reported as a colored pass, warn or fail
// line; failures are advisory and never stop the remaining checks, except
// when the compiler cannot build the minimal source at all.
//
// # Quick Run
//
//	report, err := buildprobe.NewProber().Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := report.Err(); err != nil {
//	    var ce *buildprobe.CheckError
//	    if errors.As(err, &ce) {
//	        log.Printf("not ready: %s: %s", ce.Check, ce.Reason)
//	    }
//	}
//
// # Platform Profiles
//
// A [Profile] is selected once per run from the host OS and the detected
// compiler family ([DetectPlatform]). It names the C++ compiler and the
// [LibraryRequirement] list, and decides the link syntax: -l<name> for
// GCC/Clang, -framework <name> on macOS and <name>.lib for MSVC.
//
// # Compiler Drivers
//
// A [Driver] hides the differences between compiler families behind a
// uniform [CompileResult]. GCC/Clang invocations fail on a non-zero exit or
// any stderr output; MSVC invocations fail when the output carries a fatal
// link error marker.
//
// # Concurrency
//
// Library checks are independent and run on a bounded worker pool
// ([WithWorkers]). Their lines are printed as they complete through a
// [Printer] that serializes writes; the [Report] keeps profile order.
//
// All scratch files live in a private temporary directory removed at the
// end of every run.
package buildprobe
