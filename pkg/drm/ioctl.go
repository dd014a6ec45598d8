package drm

import (
	"unsafe"
)

// Request codes use the generic Linux encoding:
//
//	dir<<30 | size<<16 | type<<8 | nr
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	ioctlBase = 'd'
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | ioctlBase<<iocTypeShift | nr<<iocNrShift
}

func ion(nr uintptr) uintptr {
	return ioc(iocNone, nr, 0)
}

func iow(nr, size uintptr) uintptr {
	return ioc(iocWrite, nr, size)
}

func iowr(nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, nr, size)
}

var (
	ioctlSetClientCap = iow(0x0d, unsafe.Sizeof(sysCap{}))
	ioctlSetMaster    = ion(0x1e)
	ioctlDropMaster   = ion(0x1f)

	ioctlModeGetResources     = iowr(0xa0, unsafe.Sizeof(sysCardRes{}))
	ioctlModeGetCrtc          = iowr(0xa1, unsafe.Sizeof(sysCrtc{}))
	ioctlModeSetCrtc          = iowr(0xa2, unsafe.Sizeof(sysCrtc{}))
	ioctlModeGetEncoder       = iowr(0xa6, unsafe.Sizeof(sysGetEncoder{}))
	ioctlModeGetConnector     = iowr(0xa7, unsafe.Sizeof(sysGetConnector{}))
	ioctlModeGetProperty      = iowr(0xaa, unsafe.Sizeof(sysGetProperty{}))
	ioctlModeGetPropBlob      = iowr(0xac, unsafe.Sizeof(sysGetBlob{}))
	ioctlModeGetFB            = iowr(0xad, unsafe.Sizeof(sysFBCmd{}))
	ioctlModeAddFB            = iowr(0xae, unsafe.Sizeof(sysFBCmd{}))
	ioctlModeCreateDumb       = iowr(0xb2, unsafe.Sizeof(sysCreateDumb{}))
	ioctlModeGetPlaneRes      = iowr(0xb5, unsafe.Sizeof(sysGetPlaneRes{}))
	ioctlModeGetPlane         = iowr(0xb6, unsafe.Sizeof(sysGetPlane{}))
	ioctlModeSetPlane         = iowr(0xb7, unsafe.Sizeof(sysSetPlane{}))
	ioctlModeAddFB2           = iowr(0xb8, unsafe.Sizeof(sysFBCmd2{}))
	ioctlModeObjGetProperties = iowr(0xb9, unsafe.Sizeof(sysObjGetProperties{}))
	ioctlModeObjSetProperty   = iowr(0xba, unsafe.Sizeof(sysObjSetProperty{}))
)

// slicePtr returns the user pointer the kernel expects for s, or 0 when s is empty.
func slicePtr[T any](s []T) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s[0])))
}
