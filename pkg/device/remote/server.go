package remote

import (
	"bytes"
	"context"
	"image/png"
	"net"
	"net/http"
	"net/rpc"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"kmsctl/pkg/drm"
	"kmsctl/pkg/proto"
)

// NewServer exposes dev as the "Service" receiver of a net/rpc server.
func NewServer(dev proto.Control) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Service", &Service{dev: dev}); err != nil {
		return nil, err
	}
	return srv, nil
}

// Proxy serves dev over HTTP on srv for the lifetime of the fx application.
func Proxy(dev proto.Control, srv *http.Server, lifecycle fx.Lifecycle, logger *zap.Logger) error {
	rpcServer, err := NewServer(dev)
	if err != nil {
		return err
	}
	srv.Handler = rpcServer

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.With(zap.String("addr", ln.Addr().String())).Info("serving")
			go func() {
				if err := srv.Serve(ln); err != http.ErrServerClosed {
					logger.With(zap.Error(err)).Error("serve failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return nil
}

type Service struct {
	dev proto.Control
}

func (s *Service) Driver(_ Empty, resp *drm.Version) error {
	v, err := s.dev.Driver()
	if err != nil {
		return err
	}
	*resp = *v
	return nil
}

func (s *Service) Capability(c drm.DriverCapability, resp *CapabilityResponse) error {
	v, err := s.dev.Capability(c)
	resp.Value = v
	return err
}

func (s *Service) SetClientCapability(req SetClientCapRequest, resp *Ack) error {
	if err := s.dev.SetClientCapability(req.Cap, req.Enable); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *Service) ResourceHandles(_ Empty, resp *drm.ResourceHandles) error {
	res, err := s.dev.ResourceHandles()
	if err != nil {
		return err
	}
	*resp = *res
	return nil
}

func (s *Service) PlaneHandles(_ Empty, resp *PlaneHandlesResponse) error {
	planes, err := s.dev.PlaneHandles()
	resp.Planes = planes
	return err
}

func (s *Service) Connector(h drm.ConnectorHandle, resp *drm.ConnectorInfo) error {
	info, err := s.dev.Connector(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) Encoder(h drm.EncoderHandle, resp *drm.EncoderInfo) error {
	info, err := s.dev.Encoder(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) Crtc(h drm.CrtcHandle, resp *drm.CrtcInfo) error {
	info, err := s.dev.Crtc(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) Plane(h drm.PlaneHandle, resp *drm.PlaneInfo) error {
	info, err := s.dev.Plane(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) Framebuffer(h drm.FramebufferHandle, resp *drm.FramebufferInfo) error {
	info, err := s.dev.Framebuffer(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) Properties(obj drm.Object, resp *drm.PropertySet) error {
	set, err := s.dev.Properties(obj)
	if err != nil {
		return err
	}
	*resp = *set
	return nil
}

func (s *Service) Property(h drm.PropertyHandle, resp *drm.PropertyInfo) error {
	info, err := s.dev.Property(h)
	if err != nil {
		return err
	}
	*resp = *info
	return nil
}

func (s *Service) PropertyBlob(h drm.BlobHandle, resp *BlobResponse) error {
	data, err := s.dev.PropertyBlob(h)
	resp.Data = data
	return err
}

func (s *Service) SetProperty(req SetPropertyRequest, resp *Ack) error {
	if err := s.dev.SetProperty(req.Object, req.Property, req.Value); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *Service) Upload(req *UploadRequest, resp *UploadResponse) error {
	img, err := png.Decode(bytes.NewBuffer(req.Image))
	if err != nil {
		return err
	}

	fb, err := s.dev.Upload(img, req.Format)
	resp.Framebuffer = fb
	return err
}

func (s *Service) DestroyFramebuffer(h drm.FramebufferHandle, resp *Ack) error {
	if err := s.dev.DestroyFramebuffer(h); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *Service) SetPlane(req drm.PlaneRequest, resp *Ack) error {
	if err := s.dev.SetPlane(req); err != nil {
		return err
	}
	resp.OK = true
	return nil
}
