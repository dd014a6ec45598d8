package drm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestRequestCodes(t *testing.T) {
	cases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"SET_CLIENT_CAP", ioctlSetClientCap, 0x4010640d},
		{"SET_MASTER", ioctlSetMaster, 0x641e},
		{"DROP_MASTER", ioctlDropMaster, 0x641f},
		{"GETRESOURCES", ioctlModeGetResources, 0xc04064a0},
		{"GETCRTC", ioctlModeGetCrtc, 0xc06864a1},
		{"SETCRTC", ioctlModeSetCrtc, 0xc06864a2},
		{"GETENCODER", ioctlModeGetEncoder, 0xc01464a6},
		{"GETCONNECTOR", ioctlModeGetConnector, 0xc05064a7},
		{"GETPROPERTY", ioctlModeGetProperty, 0xc04064aa},
		{"GETPROPBLOB", ioctlModeGetPropBlob, 0xc01064ac},
		{"GETFB", ioctlModeGetFB, 0xc01c64ad},
		{"ADDFB", ioctlModeAddFB, 0xc01c64ae},
		{"CREATE_DUMB", ioctlModeCreateDumb, 0xc02064b2},
		{"GETPLANERESOURCES", ioctlModeGetPlaneRes, 0xc01064b5},
		{"GETPLANE", ioctlModeGetPlane, 0xc02064b6},
		{"SETPLANE", ioctlModeSetPlane, 0xc03064b7},
		{"ADDFB2", ioctlModeAddFB2, 0xc06864b8},
		{"OBJ_GETPROPERTIES", ioctlModeObjGetProperties, 0xc02064b9},
		{"OBJ_SETPROPERTY", ioctlModeObjSetProperty, 0xc01864ba},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, c.got, "%s: got %#x", c.name, c.got)
	}
}

func TestSlicePtr(t *testing.T) {
	assert.Zero(t, slicePtr([]uint32(nil)))

	s := []uint32{1, 2}
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&s[0]))), slicePtr(s))
}

func TestErrorUnwrap(t *testing.T) {
	err := NewError("MODE_GETCRTC", 2)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "MODE_GETCRTC")
}
