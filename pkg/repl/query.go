package repl

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"kmsctl/pkg/drm"
)

const blobPreview = 32

func getResources(_ context.Context, s *Session, w io.Writer, _ []string) error {
	res, err := s.dev.ResourceHandles()
	if err != nil {
		return err
	}
	planes, err := s.dev.PlaneHandles()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tConnectors: %v\n", res.Connectors)
	fmt.Fprintf(w, "\tEncoders: %v\n", res.Encoders)
	fmt.Fprintf(w, "\tCRTCS: %v\n", res.Crtcs)
	fmt.Fprintf(w, "\tFramebuffers: %v\n", res.Framebuffers)
	fmt.Fprintf(w, "\tPlanes: %v\n", planes)
	return nil
}

func getProperties(_ context.Context, s *Session, w io.Writer, args []string) error {
	obj, err := s.resolve(args[0], args[1])
	if err != nil {
		return err
	}

	set, err := s.dev.Properties(obj)
	if err != nil {
		return err
	}

	for _, pv := range set.Values {
		info, err := s.dev.Property(pv.Property)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\tProperty: %d (%s)\tValue: %s\n", pv.Property, info.Name, info.ValueType.Format(pv.Value))
	}
	return nil
}

func getProperty(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	h := drm.PropertyHandle(id)
	if err := s.checkProperty(h); err != nil {
		return err
	}

	info, err := s.dev.Property(h)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tName: %s\n", info.Name)
	fmt.Fprintf(w, "\tMutable: %t\n", info.Mutable())
	fmt.Fprintf(w, "\tAtomic: %t\n", info.Atomic())
	fmt.Fprintf(w, "\tValue: %s\n", info.ValueType)
	return nil
}

func getConnector(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectConnector, args[0])
	if err != nil {
		return err
	}

	c, err := s.dev.Connector(drm.ConnectorHandle(id))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tName: %s\n", c.Name())
	fmt.Fprintf(w, "\tConnection: %s\n", c.Connection)
	fmt.Fprintf(w, "\tSize: %dx%d mm\n", c.MmWidth, c.MmHeight)
	fmt.Fprintf(w, "\tEncoder: %d\n", c.Encoder)
	fmt.Fprintf(w, "\tEncoders: %v\n", c.Encoders)
	fmt.Fprintf(w, "\tModes: %d\n", len(c.Modes))
	for _, m := range c.Modes {
		fmt.Fprintf(w, "\t\t%s%s\n", m, lo.Ternary(m.Preferred(), " (preferred)", ""))
	}
	return nil
}

func getEncoder(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectEncoder, args[0])
	if err != nil {
		return err
	}

	e, err := s.dev.Encoder(drm.EncoderHandle(id))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tType: %s\n", e.Type)
	fmt.Fprintf(w, "\tCrtc: %d\n", e.Crtc)
	fmt.Fprintf(w, "\tPossibleCrtcs: %#b\n", e.PossibleCrtcs)
	fmt.Fprintf(w, "\tPossibleClones: %#b\n", e.PossibleClones)
	return nil
}

func getCrtc(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectCrtc, args[0])
	if err != nil {
		return err
	}

	c, err := s.dev.Crtc(drm.CrtcHandle(id))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tFramebuffer: %d\n", c.Framebuffer)
	fmt.Fprintf(w, "\tPosition: %d,%d\n", c.X, c.Y)
	fmt.Fprintf(w, "\tGammaSize: %d\n", c.GammaSize)
	if c.Mode != nil {
		fmt.Fprintf(w, "\tMode: %s\n", c.Mode)
	} else {
		fmt.Fprintln(w, "\tMode: none")
	}
	return nil
}

func getPlane(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectPlane, args[0])
	if err != nil {
		return err
	}

	p, err := s.dev.Plane(drm.PlaneHandle(id))
	if err != nil {
		return err
	}

	formats := lo.Map(p.Formats, func(f drm.PixelFormat, _ int) string { return f.String() })
	fmt.Fprintf(w, "\tCrtc: %d\n", p.Crtc)
	fmt.Fprintf(w, "\tFramebuffer: %d\n", p.Framebuffer)
	fmt.Fprintf(w, "\tPossibleCrtcs: %#b\n", p.PossibleCrtcs)
	fmt.Fprintf(w, "\tFormats: %s\n", strings.Join(formats, " "))
	return nil
}

func getFramebuffer(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectFramebuffer, args[0])
	if err != nil {
		return err
	}

	f, err := s.dev.Framebuffer(drm.FramebufferHandle(id))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tSize: %dx%d\n", f.Width, f.Height)
	fmt.Fprintf(w, "\tPitch: %d\n", f.Pitch)
	fmt.Fprintf(w, "\tBpp: %d\n", f.Bpp)
	fmt.Fprintf(w, "\tDepth: %d\n", f.Depth)
	if e, ok := s.album.Lookup(f.Handle); ok {
		fmt.Fprintf(w, "\tSource: %s (%s)\n", e.Source, e.Format)
	}
	return nil
}

func getBlob(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	h := drm.BlobHandle(id)
	if err := s.checkBlob(h); err != nil {
		return err
	}

	data, err := s.dev.PropertyBlob(h)
	if err != nil {
		return err
	}

	preview := data
	if len(preview) > blobPreview {
		preview = preview[:blobPreview]
	}
	fmt.Fprintf(w, "\tLength: %d\n", len(data))
	fmt.Fprintf(w, "\tData: %s%s\n", hex.EncodeToString(preview), lo.Ternary(len(data) > blobPreview, "...", ""))
	return nil
}

func getCap(_ context.Context, s *Session, w io.Writer, args []string) error {
	c, err := drm.ParseDriverCapability(args[0])
	if err != nil {
		return err
	}

	v, err := s.dev.Capability(c)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\t%s: %d\n", c, v)
	return nil
}

func capabilities(_ context.Context, s *Session, w io.Writer, _ []string) error {
	for _, c := range drm.DriverCapabilities() {
		if v, err := s.dev.Capability(c); err != nil {
			fmt.Fprintf(w, "\t%s: unsupported (%s)\n", c, err)
		} else {
			fmt.Fprintf(w, "\t%s: %d\n", c, v)
		}
	}
	return nil
}
