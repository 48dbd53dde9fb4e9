//go:build !unix

package buildprobe

import "runtime"

// HostDescription returns the OS name and architecture.
// Release information is only available on unix hosts.
func HostDescription() string {
	return runtime.GOOS + " " + runtime.GOARCH
}
