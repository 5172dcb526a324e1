package property

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	codeNames   = make(map[Code]string, len(codeTable))
	codesByName = make(map[string]Code, len(codeTable))
)

func init() {
	for _, e := range codeTable {
		codeNames[e.code] = e.name
		codesByName[strings.ToLower(e.name)] = e.code
	}
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(0x%04X)", uint32(c))
}

// ByName resolves a property name, case-insensitively. Underscores are
// ignored so "Zoom_Operation" and "ZoomOperation" name the same property.
func ByName(name string) (Code, bool) {
	key := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	c, ok := codesByName[key]
	if !ok || c == Undefined || c == GetOnly || c == MaxVal {
		return Undefined, false
	}
	return c, true
}

// Resolve accepts a property name or a numeric code ("0x0100", "256").
// Numeric codes must be registered.
func Resolve(s string) (Code, error) {
	if c, ok := ByName(s); ok {
		return c, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		if _, ok := Lookup(Code(n)); ok {
			return Code(n), nil
		}
	}
	return Undefined, fmt.Errorf("%w: %s", ErrUnknownProperty, s)
}
