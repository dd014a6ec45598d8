package drm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues a request and restarts it on EINTR/EAGAIN the way libdrm does.
func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) unix.Errno {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
		if errno == unix.EINTR || errno == unix.EAGAIN {
			continue
		}
		return errno
	}
}
