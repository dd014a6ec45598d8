package repl

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"kmsctl/pkg/drm"
)

func setProperty(_ context.Context, s *Session, w io.Writer, args []string) error {
	obj, err := s.resolve(args[0], args[1])
	if err != nil {
		return err
	}

	id, err := parseID(args[2])
	if err != nil {
		return err
	}
	prop := drm.PropertyHandle(id)

	set, err := s.dev.Properties(obj)
	if err != nil {
		return err
	}
	if _, ok := set.Get(prop); !ok {
		return errors.Errorf("%s has no property %d", obj, prop)
	}

	info, err := s.dev.Property(prop)
	if err != nil {
		return err
	}
	if !info.Mutable() {
		return errors.Errorf("property %s is immutable", info.Name)
	}

	value, err := info.ValueType.Parse(args[3])
	if err != nil {
		return err
	}

	if err := s.dev.SetProperty(obj, prop, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "\tOK: %s = %s\n", info.Name, info.ValueType.Format(value))
	return nil
}

func destroyFramebuffer(_ context.Context, s *Session, w io.Writer, args []string) error {
	id, err := s.lookup(drm.ObjectFramebuffer, args[0])
	if err != nil {
		return err
	}

	fb := drm.FramebufferHandle(id)
	if err := s.dev.DestroyFramebuffer(fb); err != nil {
		return err
	}

	s.album.Remove(fb)
	fmt.Fprintln(w, "\tOK")
	return nil
}

func setClientCap(_ context.Context, s *Session, w io.Writer, args []string) error {
	c, err := drm.ParseClientCapability(args[0])
	if err != nil {
		return err
	}

	enable, err := strconv.ParseBool(args[1])
	if err != nil {
		return errors.Errorf("invalid switch %q", args[1])
	}

	if err := s.dev.SetClientCapability(c, enable); err != nil {
		return err
	}

	fmt.Fprintln(w, "\tOK")
	return nil
}

func load(ctx context.Context, s *Session, w io.Writer, args []string) error {
	format := s.format
	if len(args) > 1 {
		f, err := drm.ParsePixelFormat(args[1])
		if err != nil {
			return err
		}
		format = f
	}

	fb, err := s.load(ctx, args[0], format)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\tFramebuffer: %d\n", fb)
	return nil
}

func images(_ context.Context, s *Session, w io.Writer, _ []string) error {
	entries := s.album.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "\tnone")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(w, "\t%d\t%dx%d\t%s\t%s\n", e.Framebuffer, e.Width, e.Height, e.Format, e.Source)
	}
	return nil
}

func setPlane(_ context.Context, s *Session, w io.Writer, args []string) error {
	plane, err := s.lookup(drm.ObjectPlane, args[0])
	if err != nil {
		return err
	}
	crtc, err := s.lookup(drm.ObjectCrtc, args[1])
	if err != nil {
		return err
	}

	fb, err := parseID(args[2])
	if err != nil {
		return err
	}

	req := drm.PlaneRequest{
		Plane:       drm.PlaneHandle(plane),
		Crtc:        drm.CrtcHandle(crtc),
		Framebuffer: drm.FramebufferHandle(fb),
	}

	if len(args) > 3 {
		if len(args) != 5 {
			return errors.New("position needs both x and y")
		}
		x, err := drm.ParseInt(args[3], 32)
		if err != nil {
			return errors.Errorf("invalid x %q", args[3])
		}
		y, err := drm.ParseInt(args[4], 32)
		if err != nil {
			return errors.Errorf("invalid y %q", args[4])
		}
		req.CrtcX, req.CrtcY = int32(x), int32(y)
	}

	// fb 0 disables the plane
	if fb != 0 {
		if err := s.checkObject(drm.FramebufferHandle(fb).Object()); err != nil {
			return err
		}
		info, err := s.dev.Framebuffer(drm.FramebufferHandle(fb))
		if err != nil {
			return err
		}
		req.CrtcW, req.CrtcH = info.Width, info.Height
		req.SrcW, req.SrcH = info.Width<<16, info.Height<<16
	}

	if err := s.dev.SetPlane(req); err != nil {
		return err
	}

	fmt.Fprintln(w, "\tOK")
	return nil
}
