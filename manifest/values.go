package manifest

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/module-bridge/errors"
)

var witTypes = map[string]wit.Type{
	"bool":   wit.Bool{},
	"s8":     wit.S8{},
	"u8":     wit.U8{},
	"s16":    wit.S16{},
	"u16":    wit.U16{},
	"s32":    wit.S32{},
	"u32":    wit.U32{},
	"s64":    wit.S64{},
	"u64":    wit.U64{},
	"f32":    wit.F32{},
	"f64":    wit.F64{},
	"char":   wit.Char{},
	"string": wit.String{},
}

// WitType maps a wit primitive name to its type.
func WitType(name string) (wit.Type, error) {
	t, ok := witTypes[name]
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Value(name).
			Detail("unknown binding type %q", name).
			Build()
	}
	return t, nil
}

func typeName(name string) string {
	if name == "" {
		return "untyped"
	}
	return name
}

// ParseValue converts text to the Go value the backends store for t. A nil
// type infers the value: integers, then floats, then booleans, then the text
// itself.
func ParseValue(t wit.Type, text string) (any, error) {
	switch t.(type) {
	case nil:
		return inferValue(text), nil
	case wit.Bool:
		return strconv.ParseBool(text)
	case wit.S8:
		n, err := strconv.ParseInt(text, 0, 8)
		return int8(n), err
	case wit.S16:
		n, err := strconv.ParseInt(text, 0, 16)
		return int16(n), err
	case wit.S32:
		n, err := strconv.ParseInt(text, 0, 32)
		return int32(n), err
	case wit.S64:
		return strconv.ParseInt(text, 0, 64)
	case wit.U8:
		n, err := strconv.ParseUint(text, 0, 8)
		return uint8(n), err
	case wit.U16:
		n, err := strconv.ParseUint(text, 0, 16)
		return uint16(n), err
	case wit.U32:
		n, err := strconv.ParseUint(text, 0, 32)
		return uint32(n), err
	case wit.U64:
		return strconv.ParseUint(text, 0, 64)
	case wit.F32:
		f, err := strconv.ParseFloat(text, 32)
		return float32(f), err
	case wit.F64:
		return strconv.ParseFloat(text, 64)
	case wit.Char:
		r, size := utf8.DecodeRuneInString(text)
		if r == utf8.RuneError || size != len(text) {
			return nil, fmt.Errorf("%q is not a single character", text)
		}
		return r, nil
	case wit.String:
		return text, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", t)
	}
}

func inferValue(text string) any {
	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	return text
}
