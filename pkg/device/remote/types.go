package remote

import (
	"kmsctl/pkg/drm"
)

// Ack is the reply of calls that return nothing; gob refuses empty structs.
type Ack struct {
	OK bool
}

type Empty struct {
	Nothing bool
}

type CapabilityResponse struct {
	Value uint64
}

type SetClientCapRequest struct {
	Cap    drm.ClientCapability
	Enable bool
}

type PlaneHandlesResponse struct {
	Planes []drm.PlaneHandle
}

type BlobResponse struct {
	Data []byte
}

type SetPropertyRequest struct {
	Object   drm.Object
	Property drm.PropertyHandle
	Value    uint64
}

type UploadRequest struct {
	Format drm.PixelFormat
	Image  []byte
}

type UploadResponse struct {
	Framebuffer drm.FramebufferHandle
}
