package remote

import (
	"bytes"
	"image"
	"image/png"
	"net/rpc"
	"sync"

	"github.com/samber/lo"

	"kmsctl/pkg/drm"
	"kmsctl/pkg/proto"
)

var _ proto.Control = (*Client)(nil)

func New(addr string) (*Client, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Client{rpc: client}, nil
}

// Client is a card served by kmsd. Framebuffers it uploads are removed
// again on Close; the served device itself stays open.
type Client struct {
	rpc *rpc.Client

	mu       sync.Mutex
	uploaded []drm.FramebufferHandle
}

func (c *Client) Driver() (*drm.Version, error) {
	var v drm.Version
	if err := c.rpc.Call("Service.Driver", Empty{}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Capability(capability drm.DriverCapability) (uint64, error) {
	var resp CapabilityResponse
	err := c.rpc.Call("Service.Capability", capability, &resp)
	return resp.Value, err
}

func (c *Client) SetClientCapability(capability drm.ClientCapability, enable bool) error {
	return c.rpc.Call("Service.SetClientCapability", SetClientCapRequest{Cap: capability, Enable: enable}, &Ack{})
}

func (c *Client) ResourceHandles() (*drm.ResourceHandles, error) {
	var res drm.ResourceHandles
	if err := c.rpc.Call("Service.ResourceHandles", Empty{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) PlaneHandles() ([]drm.PlaneHandle, error) {
	var resp PlaneHandlesResponse
	err := c.rpc.Call("Service.PlaneHandles", Empty{}, &resp)
	return resp.Planes, err
}

func (c *Client) Connector(h drm.ConnectorHandle) (*drm.ConnectorInfo, error) {
	var info drm.ConnectorInfo
	if err := c.rpc.Call("Service.Connector", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Encoder(h drm.EncoderHandle) (*drm.EncoderInfo, error) {
	var info drm.EncoderInfo
	if err := c.rpc.Call("Service.Encoder", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Crtc(h drm.CrtcHandle) (*drm.CrtcInfo, error) {
	var info drm.CrtcInfo
	if err := c.rpc.Call("Service.Crtc", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Plane(h drm.PlaneHandle) (*drm.PlaneInfo, error) {
	var info drm.PlaneInfo
	if err := c.rpc.Call("Service.Plane", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Framebuffer(h drm.FramebufferHandle) (*drm.FramebufferInfo, error) {
	var info drm.FramebufferInfo
	if err := c.rpc.Call("Service.Framebuffer", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Properties(obj drm.Object) (*drm.PropertySet, error) {
	var set drm.PropertySet
	if err := c.rpc.Call("Service.Properties", obj, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) Property(h drm.PropertyHandle) (*drm.PropertyInfo, error) {
	var info drm.PropertyInfo
	if err := c.rpc.Call("Service.Property", h, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) PropertyBlob(h drm.BlobHandle) ([]byte, error) {
	var resp BlobResponse
	err := c.rpc.Call("Service.PropertyBlob", h, &resp)
	return resp.Data, err
}

func (c *Client) SetProperty(obj drm.Object, prop drm.PropertyHandle, value uint64) error {
	return c.rpc.Call("Service.SetProperty", SetPropertyRequest{Object: obj, Property: prop, Value: value}, &Ack{})
}

func (c *Client) Upload(img image.Image, format drm.PixelFormat) (drm.FramebufferHandle, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, err
	}

	var resp UploadResponse
	if err := c.rpc.Call("Service.Upload", &UploadRequest{Format: format, Image: buf.Bytes()}, &resp); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.uploaded = append(c.uploaded, resp.Framebuffer)
	c.mu.Unlock()

	return resp.Framebuffer, nil
}

func (c *Client) DestroyFramebuffer(h drm.FramebufferHandle) error {
	if err := c.rpc.Call("Service.DestroyFramebuffer", h, &Ack{}); err != nil {
		return err
	}

	c.mu.Lock()
	c.uploaded = lo.Without(c.uploaded, h)
	c.mu.Unlock()
	return nil
}

func (c *Client) SetPlane(req drm.PlaneRequest) error {
	return c.rpc.Call("Service.SetPlane", req, &Ack{})
}

func (c *Client) Close() error {
	c.mu.Lock()
	fbs := c.uploaded
	c.uploaded = nil
	c.mu.Unlock()

	for _, fb := range fbs {
		_ = c.rpc.Call("Service.DestroyFramebuffer", fb, &Ack{})
	}

	return c.rpc.Close()
}
