package wasmbridge

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/module-bridge/errors"
)

// ValueType maps a primitive wit type to the wasm value type of its global.
func ValueType(t wit.Type) (api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.S64, wit.U64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("type %s has no global representation", TypeName(t))
	}
}

// TypeName returns the wit spelling of t.
func TypeName(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func encodeValue(name string, t wit.Type, v any) (uint64, error) {
	mismatch := func() (uint64, error) {
		return 0, errors.TypeMismatch(errors.PhaseAccess, name, v, TypeName(t))
	}

	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		if b {
			return api.EncodeI32(1), nil
		}
		return api.EncodeI32(0), nil
	case wit.Char:
		switch r := v.(type) {
		case rune:
			if !utf8.ValidRune(r) {
				return mismatch()
			}
			return api.EncodeU32(uint32(r)), nil
		case string:
			if !utf8.ValidString(r) || utf8.RuneCountInString(r) != 1 {
				return mismatch()
			}
			c, _ := utf8.DecodeRuneInString(r)
			return api.EncodeU32(uint32(c)), nil
		}
		return mismatch()
	case wit.S8:
		return encodeSigned(v, math.MinInt8, math.MaxInt8, mismatch)
	case wit.S16:
		return encodeSigned(v, math.MinInt16, math.MaxInt16, mismatch)
	case wit.S32:
		return encodeSigned(v, math.MinInt32, math.MaxInt32, mismatch)
	case wit.S64:
		n, ok := toInt64(v)
		if !ok {
			return mismatch()
		}
		return api.EncodeI64(n), nil
	case wit.U8:
		return encodeUnsigned(v, math.MaxUint8, mismatch)
	case wit.U16:
		return encodeUnsigned(v, math.MaxUint16, mismatch)
	case wit.U32:
		return encodeUnsigned(v, math.MaxUint32, mismatch)
	case wit.U64:
		n, ok := toUint64(v)
		if !ok {
			return mismatch()
		}
		return n, nil
	case wit.F32:
		f, ok := toFloat64(v)
		if !ok {
			return mismatch()
		}
		return api.EncodeF32(float32(f)), nil
	case wit.F64:
		f, ok := toFloat64(v)
		if !ok {
			return mismatch()
		}
		return api.EncodeF64(f), nil
	default:
		return mismatch()
	}
}

func encodeSigned(v any, lo, hi int64, mismatch func() (uint64, error)) (uint64, error) {
	n, ok := toInt64(v)
	if !ok || n < lo || n > hi {
		return mismatch()
	}
	return api.EncodeI32(int32(n)), nil
}

func encodeUnsigned(v any, hi uint64, mismatch func() (uint64, error)) (uint64, error) {
	n, ok := toUint64(v)
	if !ok || n > hi {
		return mismatch()
	}
	return api.EncodeU32(uint32(n)), nil
}

func decodeValue(t wit.Type, bits uint64) any {
	switch t.(type) {
	case wit.Bool:
		return api.DecodeU32(bits) != 0
	case wit.Char:
		return rune(api.DecodeU32(bits))
	case wit.S8:
		return int8(api.DecodeI32(bits))
	case wit.S16:
		return int16(api.DecodeI32(bits))
	case wit.S32:
		return api.DecodeI32(bits)
	case wit.S64:
		return int64(bits)
	case wit.U8:
		return uint8(api.DecodeU32(bits))
	case wit.U16:
		return uint16(api.DecodeU32(bits))
	case wit.U32:
		return api.DecodeU32(bits)
	case wit.U64:
		return bits
	case wit.F32:
		return api.DecodeF32(bits)
	case wit.F64:
		return api.DecodeF64(bits)
	default:
		return bits
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		return int64(n), n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64
	case float32:
		f := float64(n)
		return int64(f), f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
	default:
		return 0, false
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		return uint64(n), n == math.Trunc(n) && n >= 0 && n < math.MaxUint64
	case float32:
		f := float64(n)
		return uint64(f), f == math.Trunc(f) && f >= 0 && f < math.MaxUint64
	default:
		i, ok := toInt64(v)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		if u, ok := toUint64(v); ok {
			return float64(u), true
		}
		return 0, false
	}
}
