//go:build unix

package buildprobe

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// HostDescription returns the OS name, release and architecture
// (e.g. "Linux 6.1.0-generic amd64"), or an empty string if uname fails.
func HostDescription() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uname.Sysname[:]) + " " +
		unix.ByteSliceToString(uname.Release[:]) + " " + runtime.GOARCH
}
