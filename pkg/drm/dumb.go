package drm

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DumbBuffer is a CPU-mappable buffer object allocated by the driver.
type DumbBuffer struct {
	Handle BufferHandle
	Width  uint32
	Height uint32
	Pitch  uint32
	Size   uint64
	Format PixelFormat
}

func (c *Card) CreateDumbBuffer(width, height uint32, format PixelFormat) (*DumbBuffer, error) {
	bpp := format.Bpp()
	if bpp == 0 {
		return nil, errors.Errorf("create dumb buffer: unsupported format %s", format)
	}

	arg := sysCreateDumb{
		width:  width,
		height: height,
		bpp:    bpp,
	}
	if err := c.do("MODE_CREATE_DUMB", ioctlModeCreateDumb, unsafe.Pointer(&arg)); err != nil {
		return nil, err
	}

	return &DumbBuffer{
		Handle: BufferHandle(arg.handle),
		Width:  width,
		Height: height,
		Pitch:  arg.pitch,
		Size:   arg.size,
		Format: format,
	}, nil
}

func (c *Card) DestroyDumbBuffer(db *DumbBuffer) error {
	return legacyDestroyDumb(c.file, db.Handle)
}

// Mapping is a dumb buffer mapped into this process.
type Mapping struct {
	Buffer *DumbBuffer
	data   []byte
}

func (c *Card) MapDumbBuffer(db *DumbBuffer) (*Mapping, error) {
	offset, err := legacyMapDumb(c.file, db.Handle)
	if err != nil {
		return nil, err
	}

	data, err := unix.Mmap(int(c.file.Fd()), int64(offset), int(db.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmap dumb buffer")
	}

	return &Mapping{Buffer: db, data: data}, nil
}

func (m *Mapping) Bytes() []byte {
	return m.data
}

func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
