package property

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// ErrNotWritable is returned when writing a property the device currently
// refuses.
var ErrNotWritable = errors.New("property: not writable")

// decoded is one record after the codec pass.
type decoded struct {
	code     Code
	current  Value
	writable bool
	possible []uint64
}

func decodeRecord(r sdk.RawProperty) (decoded, bool, error) {
	spec, ok := registry[Code(r.Code)]
	if !ok {
		return decoded{}, false, nil
	}
	raws, err := spec.Kind.elements(r.Values)
	if err != nil {
		return decoded{}, true, fmt.Errorf("decode %s: %w", spec.Code, err)
	}
	return decoded{
		code:     spec.Code,
		current:  spec.Decode(r.Current),
		writable: r.Settable,
		possible: raws,
	}, true, nil
}

// Decode turns raw records into typed properties outside any cache. Records
// of unsupported codes are skipped.
func Decode(raws []sdk.RawProperty) ([]Property, error) {
	out := make([]Property, 0, len(raws))
	for _, r := range raws {
		d, supported, err := decodeRecord(r)
		if err != nil {
			return nil, err
		}
		if !supported {
			continue
		}
		spec := registry[d.code]
		p := Property{Code: d.code, Kind: spec.Kind, Current: d.current, Writable: d.writable}
		for _, raw := range d.possible {
			p.Possible = append(p.Possible, spec.Decode(raw))
		}
		out = append(out, p)
	}
	return out, nil
}

// Encode builds the record that writes v to property c.
func Encode(c Code, v Value) (sdk.RawProperty, error) {
	spec, ok := registry[c]
	if !ok {
		return sdk.RawProperty{}, fmt.Errorf("%w: %s", ErrUnknownProperty, c)
	}
	return sdk.RawProperty{
		Code:      uint32(c),
		ValueType: spec.Kind.DataType(),
		Current:   v.Raw() & spec.Kind.Mask(),
	}, nil
}

// EncodeRaw builds a write record from an untyped raw value.
func EncodeRaw(c Code, raw uint64) (sdk.RawProperty, error) {
	spec, ok := registry[c]
	if !ok {
		return sdk.RawProperty{}, fmt.Errorf("%w: %s", ErrUnknownProperty, c)
	}
	return Encode(c, spec.Decode(raw))
}

// Parse reads an operator-supplied value for property c. Enumerated
// properties accept value names; numeric domains accept their usual
// notation (5.6, 1/250, 2", auto) as well as plain or 0x-prefixed integers.
func Parse(c Code, s string) (Value, error) {
	spec, ok := registry[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, c)
	}
	s = strings.TrimSpace(s)
	if spec.Enum != nil {
		if v, ok := spec.Enum.Lookup(s); ok {
			return v, nil
		}
	}

	switch c {
	case FNumber:
		t := strings.TrimPrefix(strings.TrimPrefix(s, "F"), "f")
		if f, err := strconv.ParseFloat(t, 64); err == nil && strings.Contains(t, ".") {
			return Aperture(f*100 + 0.5), nil
		}
	case ShutterSpeed:
		if strings.EqualFold(s, "bulb") {
			return Bulb, nil
		}
		if num, den, ok := strings.Cut(s, "/"); ok {
			n, err1 := strconv.ParseUint(num, 10, 16)
			d, err2 := strconv.ParseUint(den, 10, 16)
			if err1 == nil && err2 == nil {
				return Shutter{Num: uint16(n), Den: uint16(d)}, nil
			}
		}
		if sec, ok := strings.CutSuffix(s, "\""); ok {
			if f, err := strconv.ParseFloat(sec, 64); err == nil {
				return Shutter{Num: uint16(f*10 + 0.5), Den: 10}, nil
			}
		}
	case IsoSensitivity:
		if strings.EqualFold(s, "auto") {
			return ISO{Sensitivity: ISOAuto}, nil
		}
	case ExposureBiasCompensation, FlashCompensation:
		t := strings.TrimSuffix(strings.ToUpper(s), "EV")
		if strings.Contains(t, ".") {
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				if f < 0 {
					return EV(f*1000 - 0.5), nil
				}
				return EV(f*1000 + 0.5), nil
			}
		}
	}

	if spec.Kind.Signed() {
		n, err := strconv.ParseInt(s, 0, 8*spec.Kind.Width())
		if err != nil {
			return nil, fmt.Errorf("parse %s value %q: %w", c, s, err)
		}
		return spec.Decode(uint64(n)), nil
	}
	n, err := strconv.ParseUint(s, 0, 8*spec.Kind.Width())
	if err != nil {
		return nil, fmt.Errorf("parse %s value %q: %w", c, s, err)
	}
	return spec.Decode(n), nil
}
