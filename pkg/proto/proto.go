package proto

import (
	"image"

	"go.uber.org/zap"

	"kmsctl/pkg/drm"
)

// Control is a KMS device as seen by the console: a real card, the
// in-memory virtual card, or a card served over RPC.
type Control interface {
	Driver() (*drm.Version, error)
	Capability(capability drm.DriverCapability) (uint64, error)
	SetClientCapability(capability drm.ClientCapability, enable bool) error

	ResourceHandles() (*drm.ResourceHandles, error)
	PlaneHandles() ([]drm.PlaneHandle, error)

	Connector(h drm.ConnectorHandle) (*drm.ConnectorInfo, error)
	Encoder(h drm.EncoderHandle) (*drm.EncoderInfo, error)
	Crtc(h drm.CrtcHandle) (*drm.CrtcInfo, error)
	Plane(h drm.PlaneHandle) (*drm.PlaneInfo, error)
	Framebuffer(h drm.FramebufferHandle) (*drm.FramebufferInfo, error)

	Properties(obj drm.Object) (*drm.PropertySet, error)
	Property(h drm.PropertyHandle) (*drm.PropertyInfo, error)
	PropertyBlob(h drm.BlobHandle) ([]byte, error)
	SetProperty(obj drm.Object, prop drm.PropertyHandle, value uint64) error

	// Upload copies img into a new dumb buffer and registers it as a
	// framebuffer of the given format.
	Upload(img image.Image, format drm.PixelFormat) (drm.FramebufferHandle, error)
	DestroyFramebuffer(h drm.FramebufferHandle) error
	SetPlane(req drm.PlaneRequest) error

	Close() error
}

// EnableClientCapabilities turns on every client capability the device
// accepts. Refusals are logged and otherwise ignored.
func EnableClientCapabilities(dev Control, logger *zap.Logger) []drm.ClientCapability {
	var enabled []drm.ClientCapability
	for _, c := range drm.ClientCapabilities() {
		if err := dev.SetClientCapability(c, true); err != nil {
			logger.With(zap.Stringer("cap", c), zap.Error(err)).Info("client cap refused")
			continue
		}
		enabled = append(enabled, c)
	}
	return enabled
}
