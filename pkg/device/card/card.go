package card

import (
	"sync"

	"go.uber.org/zap"

	"kmsctl/pkg/drm"
	"kmsctl/pkg/mixer"
	"kmsctl/pkg/proto"
)

var _ proto.Control = (*Card)(nil)

// New opens the DRM device at path.
func New(path string, logger *zap.Logger, opts ...Option) (*Card, error) {
	dev, err := drm.Open(path)
	if err != nil {
		return nil, err
	}

	c := &Card{
		dev:     dev,
		logger:  logger.With(zap.String("card", path)),
		mixer:   mixer.NewDrawer(),
		buffers: make(map[drm.FramebufferHandle]*drm.DumbBuffer),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.master {
		if err := dev.SetMaster(); err != nil {
			_ = dev.Close()
			return nil, err
		}
		c.logger.Debug("master")
	}

	return c, nil
}

type Option func(c *Card)

// WithMaster takes DRM master on open; needed for modesetting when
// another client may hold it.
func WithMaster() Option {
	return func(c *Card) {
		c.master = true
	}
}

func WithMixer(m *mixer.Drawer) Option {
	return func(c *Card) {
		c.mixer = m
	}
}

// Card is a real DRM device. It owns the dumb buffers behind the
// framebuffers it uploaded.
type Card struct {
	mu      sync.Mutex
	dev     *drm.Card
	logger  *zap.Logger
	mixer   *mixer.Drawer
	master  bool
	buffers map[drm.FramebufferHandle]*drm.DumbBuffer
}

func (c *Card) trace(op string, err error, fields ...zap.Field) {
	log := c.logger.With(fields...)
	if err != nil {
		log.With(zap.Error(err)).Debug(op)
		return
	}
	log.Debug(op)
}

func (c *Card) Driver() (*drm.Version, error) {
	v, err := c.dev.Version()
	c.trace("version", err)
	return v, err
}

func (c *Card) Capability(capability drm.DriverCapability) (uint64, error) {
	v, err := c.dev.Capability(capability)
	c.trace("get-cap", err, zap.Stringer("cap", capability), zap.Uint64("value", v))
	return v, err
}

func (c *Card) SetClientCapability(capability drm.ClientCapability, enable bool) error {
	err := c.dev.SetClientCapability(capability, enable)
	c.trace("set-client-cap", err, zap.Stringer("cap", capability), zap.Bool("enable", enable))
	return err
}

func (c *Card) ResourceHandles() (*drm.ResourceHandles, error) {
	res, err := c.dev.ResourceHandles()
	c.trace("resources", err)
	return res, err
}

func (c *Card) PlaneHandles() ([]drm.PlaneHandle, error) {
	planes, err := c.dev.PlaneHandles()
	c.trace("planes", err, zap.Int("count", len(planes)))
	return planes, err
}

func (c *Card) Connector(h drm.ConnectorHandle) (*drm.ConnectorInfo, error) {
	info, err := c.dev.Connector(h)
	c.trace("connector", err, zap.Stringer("object", h.Object()))
	return info, err
}

func (c *Card) Encoder(h drm.EncoderHandle) (*drm.EncoderInfo, error) {
	info, err := c.dev.Encoder(h)
	c.trace("encoder", err, zap.Stringer("object", h.Object()))
	return info, err
}

func (c *Card) Crtc(h drm.CrtcHandle) (*drm.CrtcInfo, error) {
	info, err := c.dev.Crtc(h)
	c.trace("crtc", err, zap.Stringer("object", h.Object()))
	return info, err
}

func (c *Card) Plane(h drm.PlaneHandle) (*drm.PlaneInfo, error) {
	info, err := c.dev.Plane(h)
	c.trace("plane", err, zap.Stringer("object", h.Object()))
	return info, err
}

func (c *Card) Framebuffer(h drm.FramebufferHandle) (*drm.FramebufferInfo, error) {
	info, err := c.dev.Framebuffer(h)
	c.trace("framebuffer", err, zap.Stringer("object", h.Object()))
	return info, err
}

func (c *Card) Properties(obj drm.Object) (*drm.PropertySet, error) {
	set, err := c.dev.Properties(obj)
	c.trace("properties", err, zap.Stringer("object", obj))
	return set, err
}

func (c *Card) Property(h drm.PropertyHandle) (*drm.PropertyInfo, error) {
	info, err := c.dev.Property(h)
	c.trace("property", err, zap.Uint32("prop", uint32(h)))
	return info, err
}

func (c *Card) PropertyBlob(h drm.BlobHandle) ([]byte, error) {
	data, err := c.dev.PropertyBlob(h)
	c.trace("blob", err, zap.Uint32("blob", uint32(h)), zap.Int("len", len(data)))
	return data, err
}

func (c *Card) SetProperty(obj drm.Object, prop drm.PropertyHandle, value uint64) error {
	err := c.dev.SetProperty(obj, prop, value)
	c.trace("set-property", err, zap.Stringer("object", obj), zap.Uint32("prop", uint32(prop)), zap.Uint64("value", value))
	return err
}

func (c *Card) SetPlane(req drm.PlaneRequest) error {
	err := c.dev.SetPlane(req)
	c.trace("set-plane", err,
		zap.Uint32("plane", uint32(req.Plane)),
		zap.Uint32("crtc", uint32(req.Crtc)),
		zap.Uint32("fb", uint32(req.Framebuffer)),
	)
	return err
}
