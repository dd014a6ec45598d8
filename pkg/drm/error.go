package drm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Error is returned when an ioctl fails. errors.Is matches the errno.
type Error struct {
	Op    string
	Errno unix.Errno
}

func (e *Error) Error() string {
	return fmt.Sprintf("drm %s: %s", e.Op, e.Errno.Error())
}

func (e *Error) Unwrap() error {
	return e.Errno
}

// NewError builds the error a device reports for op.
func NewError(op string, errno unix.Errno) error {
	return &Error{Op: op, Errno: errno}
}
