//go:build !linux

package drm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) unix.Errno {
	return unix.ENOTSUP
}
