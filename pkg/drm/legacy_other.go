//go:build !linux

package drm

import (
	"os"

	"golang.org/x/sys/unix"
)

func legacyVersion(*os.File) (*Version, error) {
	return nil, &Error{Op: "VERSION", Errno: unix.ENOTSUP}
}

func legacyCapability(*os.File, DriverCapability) (uint64, error) {
	return 0, &Error{Op: "GET_CAP", Errno: unix.ENOTSUP}
}

func legacyRmFB(*os.File, FramebufferHandle) error {
	return &Error{Op: "MODE_RMFB", Errno: unix.ENOTSUP}
}

func legacyMapDumb(*os.File, BufferHandle) (uint64, error) {
	return 0, &Error{Op: "MODE_MAP_DUMB", Errno: unix.ENOTSUP}
}

func legacyDestroyDumb(*os.File, BufferHandle) error {
	return &Error{Op: "MODE_DESTROY_DUMB", Errno: unix.ENOTSUP}
}
