package repl

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"kmsctl/pkg/drm"
)

func parseID(s string) (uint32, error) {
	v, err := drm.ParseUint(s, 32)
	if err != nil {
		return 0, errors.Errorf("invalid handle %q", s)
	}
	return uint32(v), nil
}

// resolve parses "<kind> <h>" and checks the object exists.
func (s *Session) resolve(kind, id string) (drm.Object, error) {
	t, err := drm.ParseObjectType(kind)
	if err != nil {
		return drm.Object{}, err
	}

	switch t {
	case drm.ObjectConnector, drm.ObjectCrtc, drm.ObjectEncoder, drm.ObjectFramebuffer, drm.ObjectPlane:
	default:
		return drm.Object{}, errors.Errorf("%s objects are not addressable", t)
	}

	h, err := parseID(id)
	if err != nil {
		return drm.Object{}, err
	}

	obj := drm.Object{Type: t, ID: h}
	return obj, s.checkObject(obj)
}

func (s *Session) checkObject(obj drm.Object) error {
	if obj.Type == drm.ObjectPlane {
		planes, err := s.dev.PlaneHandles()
		if err != nil {
			return err
		}
		if !lo.Contains(planes, drm.PlaneHandle(obj.ID)) {
			return errors.Errorf("no such %s", obj)
		}
		return nil
	}

	res, err := s.dev.ResourceHandles()
	if err != nil {
		return err
	}
	if !res.Contains(obj) {
		return errors.Errorf("no such %s", obj)
	}
	return nil
}

func (s *Session) lookup(t drm.ObjectType, id string) (uint32, error) {
	h, err := parseID(id)
	if err != nil {
		return 0, err
	}
	return h, s.checkObject(drm.Object{Type: t, ID: h})
}

// objects lists every object that can carry properties.
func (s *Session) objects() ([]drm.Object, error) {
	res, err := s.dev.ResourceHandles()
	if err != nil {
		return nil, err
	}
	planes, err := s.dev.PlaneHandles()
	if err != nil {
		return nil, err
	}

	var objs []drm.Object
	objs = append(objs, lo.Map(res.Connectors, func(h drm.ConnectorHandle, _ int) drm.Object { return h.Object() })...)
	objs = append(objs, lo.Map(res.Crtcs, func(h drm.CrtcHandle, _ int) drm.Object { return h.Object() })...)
	objs = append(objs, lo.Map(planes, func(h drm.PlaneHandle, _ int) drm.Object { return h.Object() })...)
	return objs, nil
}

// propertyValues collects the property values of every object, skipping
// objects the device refuses to describe.
func (s *Session) propertyValues() ([]drm.PropertyValue, error) {
	objs, err := s.objects()
	if err != nil {
		return nil, err
	}

	var values []drm.PropertyValue
	for _, obj := range objs {
		set, err := s.dev.Properties(obj)
		if err != nil {
			continue
		}
		values = append(values, set.Values...)
	}
	return values, nil
}

// checkProperty reports whether h is a property some object carries.
func (s *Session) checkProperty(h drm.PropertyHandle) error {
	values, err := s.propertyValues()
	if err != nil {
		return err
	}

	if _, ok := lo.Find(values, func(pv drm.PropertyValue) bool { return pv.Property == h }); !ok {
		return errors.Errorf("no such %s", h.Object())
	}
	return nil
}

// checkBlob reports whether h is the current value of a blob property.
func (s *Session) checkBlob(h drm.BlobHandle) error {
	if h == 0 {
		return errors.New("blob 0 is the empty blob")
	}

	values, err := s.propertyValues()
	if err != nil {
		return err
	}

	for _, pv := range values {
		if pv.Value != uint64(h) {
			continue
		}
		info, err := s.dev.Property(pv.Property)
		if err != nil {
			return err
		}
		if info.ValueType.Kind == drm.ValueBlob {
			return nil
		}
	}
	return errors.Errorf("no such %s", h.Object())
}
