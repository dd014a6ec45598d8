package drm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Property flag bits from drm_mode.h.
const (
	PropPending   = 1 << 0
	PropRange     = 1 << 1
	PropImmutable = 1 << 2
	PropEnum      = 1 << 3
	PropBlob      = 1 << 4
	PropBitmask   = 1 << 5

	PropExtendedType = 0x0000ffc0
	PropObject       = 1 << 6
	PropSignedRange  = 2 << 6

	PropAtomic = 0x80000000
)

type ValueKind int

const (
	ValueUnknown ValueKind = iota
	ValueBoolean
	ValueUnsignedRange
	ValueSignedRange
	ValueEnum
	ValueBitmask
	ValueBlob
	ValueObject
)

type EnumValue struct {
	Value uint64
	Name  string
}

// ValueType describes what a property accepts. Min and Max hold the raw
// kernel values; for signed ranges they are two's complement.
type ValueType struct {
	Kind   ValueKind
	Min    uint64
	Max    uint64
	Enums  []EnumValue
	Object ObjectType
}

// DecodeValueType interprets GETPROPERTY results.
func DecodeValueType(flags uint32, values []uint64, enums []EnumValue) ValueType {
	ext := flags & PropExtendedType
	switch {
	case flags&PropRange != 0 && len(values) >= 2:
		if values[0] == 0 && values[1] == 1 {
			return ValueType{Kind: ValueBoolean, Min: 0, Max: 1}
		}
		return ValueType{Kind: ValueUnsignedRange, Min: values[0], Max: values[1]}
	case ext == PropSignedRange && len(values) >= 2:
		return ValueType{Kind: ValueSignedRange, Min: values[0], Max: values[1]}
	case flags&PropEnum != 0:
		return ValueType{Kind: ValueEnum, Enums: enums}
	case flags&PropBitmask != 0:
		return ValueType{Kind: ValueBitmask, Enums: enums}
	case flags&PropBlob != 0:
		return ValueType{Kind: ValueBlob}
	case ext == PropObject:
		vt := ValueType{Kind: ValueObject}
		if len(values) > 0 {
			vt.Object = ObjectType(values[0])
		}
		return vt
	}
	return ValueType{Kind: ValueUnknown}
}

func (vt ValueType) String() string {
	switch vt.Kind {
	case ValueBoolean:
		return "Boolean"
	case ValueUnsignedRange:
		return fmt.Sprintf("UnsignedRange(%d, %d)", vt.Min, vt.Max)
	case ValueSignedRange:
		return fmt.Sprintf("SignedRange(%d, %d)", int64(vt.Min), int64(vt.Max))
	case ValueEnum, ValueBitmask:
		names := make([]string, len(vt.Enums))
		for i, e := range vt.Enums {
			names[i] = fmt.Sprintf("%s=%d", e.Name, e.Value)
		}
		kind := "Enum"
		if vt.Kind == ValueBitmask {
			kind = "Bitmask"
		}
		return fmt.Sprintf("%s[%s]", kind, strings.Join(names, " "))
	case ValueBlob:
		return "Blob"
	case ValueObject:
		return fmt.Sprintf("Object(%s)", vt.Object)
	}
	return "Unknown"
}

func (vt ValueType) bitmask() uint64 {
	var mask uint64
	for _, e := range vt.Enums {
		mask |= 1 << e.Value
	}
	return mask
}

// Check reports whether v is a value the property can hold.
func (vt ValueType) Check(v uint64) error {
	switch vt.Kind {
	case ValueBoolean, ValueUnsignedRange:
		if v < vt.Min || v > vt.Max {
			return errors.Errorf("value %d out of range [%d, %d]", v, vt.Min, vt.Max)
		}
	case ValueSignedRange:
		if int64(v) < int64(vt.Min) || int64(v) > int64(vt.Max) {
			return errors.Errorf("value %d out of range [%d, %d]", int64(v), int64(vt.Min), int64(vt.Max))
		}
	case ValueEnum:
		for _, e := range vt.Enums {
			if e.Value == v {
				return nil
			}
		}
		return errors.Errorf("value %d is not one of %s", v, vt)
	case ValueBitmask:
		if v&^vt.bitmask() != 0 {
			return errors.Errorf("value %#x has bits outside %s", v, vt)
		}
	}
	return nil
}

// Parse converts user input to a raw value. Enum and bitmask values may be
// given by name (bitmask names joined with '|'), booleans as true/false.
func (vt ValueType) Parse(s string) (uint64, error) {
	v, err := vt.parse(s)
	if err != nil {
		return 0, err
	}
	return v, vt.Check(v)
}

func (vt ValueType) parse(s string) (uint64, error) {
	switch vt.Kind {
	case ValueBoolean:
		switch strings.ToLower(s) {
		case "true", "on", "yes":
			return 1, nil
		case "false", "off", "no":
			return 0, nil
		}
	case ValueSignedRange:
		v, err := ParseInt(s, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", s)
		}
		return uint64(v), nil
	case ValueEnum:
		if e, ok := vt.lookup(s); ok {
			return e.Value, nil
		}
	case ValueBitmask:
		if _, err := ParseUint(s, 64); err != nil {
			var v uint64
			for _, name := range strings.Split(s, "|") {
				e, ok := vt.lookup(name)
				if !ok {
					return 0, errors.Errorf("unknown bit %q in %s", name, vt)
				}
				v |= 1 << e.Value
			}
			return v, nil
		}
	}
	v, err := ParseUint(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %q", s)
	}
	return v, nil
}

func (vt ValueType) lookup(name string) (EnumValue, bool) {
	for _, e := range vt.Enums {
		if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			return e, true
		}
	}
	return EnumValue{}, false
}

// Format renders v for display.
func (vt ValueType) Format(v uint64) string {
	switch vt.Kind {
	case ValueBoolean:
		return strconv.FormatBool(v != 0)
	case ValueSignedRange:
		return strconv.FormatInt(int64(v), 10)
	case ValueEnum:
		for _, e := range vt.Enums {
			if e.Value == v {
				return fmt.Sprintf("%d (%s)", v, e.Name)
			}
		}
	case ValueBitmask:
		var names []string
		for _, e := range vt.Enums {
			if v&(1<<e.Value) != 0 {
				names = append(names, e.Name)
			}
		}
		if len(names) > 0 {
			return fmt.Sprintf("%#x (%s)", v, strings.Join(names, "|"))
		}
	case ValueObject:
		if v == 0 {
			return "0 (none)"
		}
		return Object{Type: vt.Object, ID: uint32(v)}.String()
	case ValueBlob:
		if v == 0 {
			return "0 (none)"
		}
		return BlobHandle(v).Object().String()
	}
	return strconv.FormatUint(v, 10)
}

type PropertyInfo struct {
	Handle    PropertyHandle
	Name      string
	Flags     uint32
	ValueType ValueType
}

func (p *PropertyInfo) Mutable() bool {
	return p.Flags&PropImmutable == 0
}

func (p *PropertyInfo) Atomic() bool {
	return p.Flags&PropAtomic != 0
}

type PropertyValue struct {
	Property PropertyHandle
	Value    uint64
}

// PropertySet is the ordered result of OBJ_GETPROPERTIES.
type PropertySet struct {
	Object Object
	Values []PropertyValue
}

func (s *PropertySet) Get(prop PropertyHandle) (uint64, bool) {
	for _, pv := range s.Values {
		if pv.Property == prop {
			return pv.Value, true
		}
	}
	return 0, false
}
