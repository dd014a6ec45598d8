package drm

import (
	"os"

	neodrm "github.com/NeowayLabs/drm"
	neomode "github.com/NeowayLabs/drm/mode"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// The requests below predate planes and properties and are served by
// NeowayLabs/drm. Its ioctl helper does not restart, so retry does.

func retry(op string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}

		var errno unix.Errno
		if !errors.As(err, &errno) {
			return errors.Wrap(err, op)
		}
		if errno == unix.EINTR || errno == unix.EAGAIN {
			continue
		}
		return &Error{Op: op, Errno: errno}
	}
}

func legacyVersion(f *os.File) (*Version, error) {
	var v neodrm.Version
	err := retry("VERSION", func() (err error) {
		v, err = neodrm.GetVersion(f)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Version{
		Major:       int(v.Major),
		Minor:       int(v.Minor),
		Patch:       int(v.Patch),
		Name:        v.Name,
		Date:        v.Date,
		Description: v.Desc,
	}, nil
}

func legacyCapability(f *os.File, capability DriverCapability) (uint64, error) {
	var value uint64
	err := retry("GET_CAP", func() (err error) {
		value, err = neodrm.GetCap(f, uint64(capability))
		return err
	})
	return value, err
}

func legacyRmFB(f *os.File, h FramebufferHandle) error {
	return retry("MODE_RMFB", func() error {
		return neomode.RmFB(f, uint32(h))
	})
}

func legacyMapDumb(f *os.File, h BufferHandle) (uint64, error) {
	var offset uint64
	err := retry("MODE_MAP_DUMB", func() (err error) {
		offset, err = neomode.MapDumb(f, uint32(h))
		return err
	})
	return offset, err
}

func legacyDestroyDumb(f *os.File, h BufferHandle) error {
	return retry("MODE_DESTROY_DUMB", func() error {
		return neomode.DestroyDumb(f, uint32(h))
	})
}
