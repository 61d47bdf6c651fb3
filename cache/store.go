package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidResultType is returned when a cached value cannot be converted
// into the type requested by the caller.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// Store is the key-value contract the query cache needs from a backend.
// Values are the string envelopes produced by Codec. A ttl of zero means
// "use the store default".
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// KeyEnumerator is implemented by stores that can list the keys they hold.
// match is a plain substring filter; an empty match returns every key.
type KeyEnumerator interface {
	Keys(ctx context.Context, match string) ([]string, error)
}

// Convert turns a value produced by Codec.Decode (or the original query
// result) into T. Values that already are a T are returned as is, anything
// else is round tripped through JSON.
func Convert[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}

	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return zero, errors.Wrapf(ErrInvalidResultType, "marshal %T: %v", v, err)
	}

	var out T
	if err := jsonAPI.Unmarshal(data, &out); err != nil {
		return zero, errors.Wrapf(ErrInvalidResultType, "convert %T into %T: %v", v, zero, err)
	}
	return out, nil
}
