package buildprobe

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// parseToolchainVersion parses the output of `<toolchain> -vV`.
//
// The verbose form carries "release:" and "host:" lines. When only the short
// form is available ("rustc 1.46.0 (04488afe3 2020-08-24)") the second token
// of the first line is used and the host stays empty.
func parseToolchainVersion(output string) (ToolchainVersion, error) {
	var release, host, first string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "release":
			release = strings.TrimSpace(value)
		case "host":
			host = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return ToolchainVersion{}, err
	}

	if release == "" {
		fields := strings.Fields(first)
		if len(fields) < 2 {
			return ToolchainVersion{}, fmt.Errorf("%w: %q", ErrMalformedVersion, strings.TrimSpace(output))
		}
		release = fields[1]
	}

	v, err := semver.NewVersion(release)
	if err != nil {
		return ToolchainVersion{}, fmt.Errorf("%w: %q: %w", ErrMalformedVersion, release, err)
	}

	return ToolchainVersion{
		Major: v.Major(),
		Minor: v.Minor(),
		Patch: v.Patch(),
		Host:  host,
		Raw:   release,
	}, nil
}
