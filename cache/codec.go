package cache

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TypePrefixes are the sentinels the codec writes in front of values JSON
// cannot represent losslessly. A genuine string that starts with one of
// these prefixes will be decoded as the tagged type.
type TypePrefixes struct {
	Decimal    string
	BigInt     string
	Bytes      string
	TypedArray string
	Date       string
	Int64      string
	Uint64     string
}

// DefaultTypePrefixes returns the prefixes used when none are configured.
func DefaultTypePrefixes() TypePrefixes {
	return TypePrefixes{
		Decimal:    "___decimal_",
		BigInt:     "___bigint_",
		Bytes:      "___buffer_",
		TypedArray: "___typed_",
		Date:       "___date_",
		Int64:      "___int64_",
		Uint64:     "___uint64_",
	}
}

func (p TypePrefixes) ordered() []string {
	return []string{p.Decimal, p.BigInt, p.Bytes, p.TypedArray, p.Date, p.Int64, p.Uint64}
}

// Validate checks that every prefix is set and that no prefix shadows another.
func (p TypePrefixes) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Decimal, validation.Required),
		validation.Field(&p.BigInt, validation.Required),
		validation.Field(&p.Bytes, validation.Required),
		validation.Field(&p.TypedArray, validation.Required),
		validation.Field(&p.Date, validation.Required),
		validation.Field(&p.Int64, validation.Required),
		validation.Field(&p.Uint64, validation.Required),
	)
	if err != nil {
		return err
	}

	all := p.ordered()
	for i, a := range all {
		for j, b := range all {
			if i != j && strings.HasPrefix(b, a) {
				return errors.Errorf("type prefix %q shadows %q", a, b)
			}
		}
	}
	return nil
}

// typed array element tags
const (
	arrayInt8    = "int8"
	arrayInt16   = "int16"
	arrayInt32   = "int32"
	arrayInt64   = "int64"
	arrayUint16  = "uint16"
	arrayUint32  = "uint32"
	arrayUint64  = "uint64"
	arrayFloat32 = "float32"
	arrayFloat64 = "float64"
)

// Codec serializes query results into the string envelope kept in the store.
//
// Leaves are checked in a fixed order: decimal, big integer, byte buffer,
// typed numeric arrays, timestamp, 64-bit integers, then plain JSON. Maps,
// structs, slices and arrays are walked structurally. Decoded values come
// back as map[string]any / []any trees with the tagged leaves restored:
// decimal.Decimal, *big.Int, []byte, fixed width numeric slices, time.Time,
// int64 and uint64. Integer widths are normalized: int and int64 leaves
// decode as int64, uint and uint64 as uint64, while int8, int16, int32,
// uint8, uint16, uint32 and float leaves decode as float64. A nil []byte
// decodes as nil, an empty one as []byte{}.
type Codec struct {
	prefixes TypePrefixes
}

// NewCodec returns a codec using the given prefixes; the zero value of
// TypePrefixes selects the defaults.
func NewCodec(prefixes TypePrefixes) *Codec {
	if prefixes == (TypePrefixes{}) {
		prefixes = DefaultTypePrefixes()
	}
	return &Codec{prefixes: prefixes}
}

type envelope struct {
	Data any `json:"data"`
}

// Encode renders v as a JSON envelope with rich leaves tagged.
func (c *Codec) Encode(v any) (string, error) {
	out, err := jsonAPI.MarshalToString(envelope{Data: c.encodeValue(v)})
	if err != nil {
		return "", errors.Wrapf(err, "encode %T", v)
	}
	return out, nil
}

// Decode parses an envelope produced by Encode.
func (c *Codec) Decode(s string) (any, error) {
	var env envelope
	if err := jsonAPI.UnmarshalFromString(s, &env); err != nil {
		return nil, errors.Wrap(err, "decode cached envelope")
	}
	return c.decodeValue(env.Data), nil
}

func (c *Codec) encodeValue(v any) any {
	if v == nil {
		return nil
	}

	switch x := v.(type) {
	case decimal.Decimal:
		return c.prefixes.Decimal + x.String()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return c.prefixes.Decimal + x.String()
	case *big.Int:
		if x == nil {
			return nil
		}
		return c.prefixes.BigInt + x.String()
	case big.Int:
		return c.prefixes.BigInt + x.String()
	case []byte:
		if x == nil {
			return nil
		}
		return c.prefixes.Bytes + base64.StdEncoding.EncodeToString(x)
	case []int8:
		return c.typed(arrayInt8, formatInts(x))
	case []int16:
		return c.typed(arrayInt16, formatInts(x))
	case []int32:
		return c.typed(arrayInt32, formatInts(x))
	case []int64:
		return c.typed(arrayInt64, formatInts(x))
	case []uint16:
		return c.typed(arrayUint16, formatUints(x))
	case []uint32:
		return c.typed(arrayUint32, formatUints(x))
	case []uint64:
		return c.typed(arrayUint64, formatUints(x))
	case []float32:
		return c.typed(arrayFloat32, formatFloats(x, 32))
	case []float64:
		return c.typed(arrayFloat64, formatFloats(x, 64))
	case time.Time:
		return c.prefixes.Date + x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return c.prefixes.Date + x.Format(time.RFC3339Nano)
	case int64:
		return c.prefixes.Int64 + strconv.FormatInt(x, 10)
	case int:
		return c.prefixes.Int64 + strconv.FormatInt(int64(x), 10)
	case uint64:
		return c.prefixes.Uint64 + strconv.FormatUint(x, 10)
	case uint:
		return c.prefixes.Uint64 + strconv.FormatUint(uint64(x), 10)
	case json.Marshaler, encoding.TextMarshaler:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return c.encodeValue(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKeyString(iter.Key())] = c.encodeValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return c.encodeSequence(rv)
	case reflect.Array:
		return c.encodeSequence(rv)
	case reflect.Struct:
		fields := structFields(rv)
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			out[f.name] = c.encodeValue(f.value.Interface())
		}
		return out
	case reflect.Int, reflect.Int64:
		return c.prefixes.Int64 + strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint64:
		return c.prefixes.Uint64 + strconv.FormatUint(rv.Uint(), 10)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	}

	return v
}

func (c *Codec) encodeSequence(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = c.encodeValue(rv.Index(i).Interface())
	}
	return out
}

func (c *Codec) typed(kind, body string) string {
	return c.prefixes.TypedArray + kind + KeySeparator + body
}

func (c *Codec) decodeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = c.decodeValue(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = c.decodeValue(item)
		}
		return x
	case string:
		return c.decodeString(x)
	default:
		return v
	}
}

// decodeString reverses a tagged leaf. Malformed tagged text is returned
// unchanged.
func (c *Codec) decodeString(s string) any {
	p := c.prefixes
	switch {
	case strings.HasPrefix(s, p.Decimal):
		if d, err := decimal.NewFromString(s[len(p.Decimal):]); err == nil {
			return d
		}
	case strings.HasPrefix(s, p.BigInt):
		if n, ok := new(big.Int).SetString(s[len(p.BigInt):], 10); ok {
			return n
		}
	case strings.HasPrefix(s, p.Bytes):
		if b, err := base64.StdEncoding.DecodeString(s[len(p.Bytes):]); err == nil {
			return b
		}
	case strings.HasPrefix(s, p.TypedArray):
		if arr, ok := parseTypedArray(s[len(p.TypedArray):]); ok {
			return arr
		}
	case strings.HasPrefix(s, p.Date):
		if t, err := time.Parse(time.RFC3339Nano, s[len(p.Date):]); err == nil {
			return t
		}
	case strings.HasPrefix(s, p.Int64):
		if n, err := strconv.ParseInt(s[len(p.Int64):], 10, 64); err == nil {
			return n
		}
	case strings.HasPrefix(s, p.Uint64):
		if n, err := strconv.ParseUint(s[len(p.Uint64):], 10, 64); err == nil {
			return n
		}
	}
	return s
}

func formatInts[T int8 | int16 | int32 | int64](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}

func formatUints[T uint16 | uint32 | uint64](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}

func formatFloats[T float32 | float64](values []T, bits int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, bits)
	}
	return strings.Join(parts, ",")
}

func parseTypedArray(s string) (any, bool) {
	kind, body, ok := strings.Cut(s, KeySeparator)
	if !ok {
		return nil, false
	}
	var parts []string
	if body != "" {
		parts = strings.Split(body, ",")
	}

	switch kind {
	case arrayInt8:
		return parseInts[int8](parts, 8)
	case arrayInt16:
		return parseInts[int16](parts, 16)
	case arrayInt32:
		return parseInts[int32](parts, 32)
	case arrayInt64:
		return parseInts[int64](parts, 64)
	case arrayUint16:
		return parseUints[uint16](parts, 16)
	case arrayUint32:
		return parseUints[uint32](parts, 32)
	case arrayUint64:
		return parseUints[uint64](parts, 64)
	case arrayFloat32:
		return parseFloats[float32](parts, 32)
	case arrayFloat64:
		return parseFloats[float64](parts, 64)
	}
	return nil, false
}

func parseInts[T int8 | int16 | int32 | int64](parts []string, bits int) (any, bool) {
	out := make([]T, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, bits)
		if err != nil {
			return nil, false
		}
		out[i] = T(n)
	}
	return out, true
}

func parseUints[T uint16 | uint32 | uint64](parts []string, bits int) (any, bool) {
	out := make([]T, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, bits)
		if err != nil {
			return nil, false
		}
		out[i] = T(n)
	}
	return out, true
}

func parseFloats[T float32 | float64](parts []string, bits int) (any, bool) {
	out := make([]T, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(part, bits)
		if err != nil {
			return nil, false
		}
		out[i] = T(f)
	}
	return out, true
}
