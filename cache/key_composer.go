package cache

import (
	"crypto/md5"
	"encoding"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

const (
	// KeySeparator defines the delimiter used between cache key segments.
	KeySeparator = ":"
	// HashSeparator separates the entity/operation path from the argument hash.
	HashSeparator = "@"
)

// KeyComposer builds cache keys for intercepted calls.
type KeyComposer interface {
	// Compose returns "[namespace:]entity:operation@hash" where hash is
	// computed from the canonical form of args.
	Compose(entity, operation, namespace string, args any) string
	// Join prefixes a caller supplied key with namespace, omitting empty parts.
	Join(key, namespace string) string
}

// Hasher turns canonical argument bytes into the hash segment of a key.
type Hasher interface {
	Sum(data []byte) string
}

// MD5Hasher hex encodes an MD5 digest. It is the default.
type MD5Hasher struct{}

// Sum implements Hasher.
func (MD5Hasher) Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// XXHasher uses xxhash64, which is cheaper than MD5 for large payloads.
type XXHasher struct{}

// Sum implements Hasher.
func (XXHasher) Sum(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// defaultKeyComposer canonicalizes arguments using reflection and hashes
// the sorted JSON form. Function and channel values are keyed by pointer,
// which is only stable within a single process.
type defaultKeyComposer struct {
	hasher Hasher
}

// NewDefaultKeyComposer creates a key composer hashing with MD5.
func NewDefaultKeyComposer() KeyComposer {
	return &defaultKeyComposer{hasher: MD5Hasher{}}
}

// NewKeyComposer creates a key composer using the given hasher.
func NewKeyComposer(hasher Hasher) KeyComposer {
	if hasher == nil {
		hasher = MD5Hasher{}
	}
	return &defaultKeyComposer{hasher: hasher}
}

func (s *defaultKeyComposer) Compose(entity, operation, namespace string, args any) string {
	parts := make([]string, 0, 3)
	if namespace != "" {
		parts = append(parts, namespace)
	}
	parts = append(parts, entity, operation)

	return strings.Join(parts, KeySeparator) + HashSeparator + s.hasher.Sum([]byte(Canonicalize(args)))
}

func (s *defaultKeyComposer) Join(key, namespace string) string {
	switch {
	case namespace == "":
		return key
	case key == "":
		return namespace
	default:
		return namespace + KeySeparator + key
	}
}

// Canonicalize renders args as sorted JSON after normalizing rich values,
// so structurally equal payloads produce identical output.
func Canonicalize(args any) string {
	out, err := jsonAPI.MarshalToString(canonicalValue(args))
	if err != nil {
		// canonicalValue only emits JSON native values
		return fmt.Sprintf("fallback:%T", args)
	}
	return out
}

// canonicalValue normalizes a single value into a JSON native tree.
func canonicalValue(v any) any {
	if v == nil {
		return nil
	}

	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.String()
	case *big.Int:
		if x == nil {
			return nil
		}
		return json.Number(x.String())
	case big.Int:
		return json.Number(x.String())
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		if x == nil {
			return nil
		}
		return base64.StdEncoding.EncodeToString(x)
	case json.Number:
		return x
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return canonicalValue(rv.Elem().Interface())
	}

	if tm, ok := v.(encoding.TextMarshaler); ok {
		if text, err := tm.MarshalText(); err == nil {
			return string(text)
		}
	}

	switch rt.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return canonicalSequence(rv)
	case reflect.Array:
		return canonicalSequence(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKeyString(iter.Key())] = canonicalValue(iter.Value().Interface())
		}
		return out
	case reflect.Struct:
		fields := structFields(rv)
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			out[f.name] = canonicalValue(f.value.Interface())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return json.Number(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return json.Number(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", v)
	}

	return fmt.Sprintf("fallback:%s", rt.String())
}

func canonicalSequence(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = canonicalValue(rv.Index(i).Interface())
	}
	return out
}

// KeyMentions reports whether entity appears as a path segment of key. The
// trailing "@hash" of composed keys is ignored.
func KeyMentions(key, entity string) bool {
	if entity == "" {
		return false
	}
	path := key
	if i := strings.LastIndex(key, HashSeparator); i >= 0 && isHex(key[i+1:]) {
		path = key[:i]
	}
	for _, segment := range strings.Split(path, KeySeparator) {
		if segment == entity {
			return true
		}
	}
	return false
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
