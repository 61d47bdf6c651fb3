package querycache

import (
	"time"

	"github.com/goliatone/go-query-cache/cache"
)

// CacheKind tags the shape of a CacheDirective.
type CacheKind int

const (
	// CacheAbsent means the call carried no directive.
	CacheAbsent CacheKind = iota
	// CacheDisabled is an explicit `false`.
	CacheDisabled
	// CacheEnabled is an explicit `true`.
	CacheEnabled
	// CacheTTL caches with an explicit lifetime.
	CacheTTL
	// CacheLiteralKey caches under a caller supplied key.
	CacheLiteralKey
	// CacheStructured caches according to CacheOptions.
	CacheStructured
)

// CacheOptions is the structured form of a cache directive.
type CacheOptions struct {
	// Key stores the result under Namespace:Key instead of a composed key.
	Key string
	// KeyFunc derives the key from the result. It takes precedence over Key
	// and disables the pre-read, since the key is only known afterwards.
	KeyFunc func(result any) string
	// Namespace prefixes the key.
	Namespace string
	// TTL overrides the engine default when positive.
	TTL time.Duration
}

// CacheDirective says whether and how to cache one call. Build it with the
// constructors below or ParseCacheDirective.
type CacheDirective struct {
	kind    CacheKind
	ttl     time.Duration
	key     string
	options CacheOptions
}

// NoCache disables caching for the call.
func NoCache() CacheDirective { return CacheDirective{kind: CacheDisabled} }

// Cache caches the call with a composed key and the default TTL.
func Cache() CacheDirective { return CacheDirective{kind: CacheEnabled} }

// CacheFor caches the call for ttl.
func CacheFor(ttl time.Duration) CacheDirective {
	return CacheDirective{kind: CacheTTL, ttl: ttl}
}

// CacheSeconds caches the call for the given number of seconds.
func CacheSeconds(seconds float64) CacheDirective {
	return CacheFor(time.Duration(seconds * float64(time.Second)))
}

// CacheAs caches the call under a literal key.
func CacheAs(key string) CacheDirective {
	return CacheDirective{kind: CacheLiteralKey, key: key}
}

// CacheWith caches the call according to opts.
func CacheWith(opts CacheOptions) CacheDirective {
	return CacheDirective{kind: CacheStructured, options: opts}
}

// Kind returns the directive tag.
func (d CacheDirective) Kind() CacheKind { return d.kind }

// Enabled reports whether the directive asks for the result to be cached.
func (d CacheDirective) Enabled() bool {
	return d.kind != CacheAbsent && d.kind != CacheDisabled
}

// deferredKey reports whether the key can only be computed from the result.
func (d CacheDirective) deferredKey() bool {
	return d.kind == CacheStructured && d.options.KeyFunc != nil
}

// UncacheKind tags the shape of an UncacheDirective.
type UncacheKind int

const (
	// UncacheAbsent means nothing is deleted.
	UncacheAbsent UncacheKind = iota
	// UncacheKeys deletes literal keys.
	UncacheKeys
	// UncacheRefs deletes namespaced key references.
	UncacheRefs
	// UncacheFunc deletes keys derived from the result.
	UncacheFunc
)

// KeyRef names a cache entry by key and optional namespace.
type KeyRef struct {
	Key       string
	Namespace string
}

// UncacheDirective lists cache entries to delete once the call completes,
// independently of automatic invalidation.
type UncacheDirective struct {
	kind UncacheKind
	keys []string
	refs []KeyRef
	fn   func(result any) []string
}

// Uncache deletes the given literal keys.
func Uncache(keys ...string) UncacheDirective {
	if len(keys) == 0 {
		return UncacheDirective{}
	}
	return UncacheDirective{kind: UncacheKeys, keys: keys}
}

// UncacheRef deletes namespaced keys.
func UncacheRef(refs ...KeyRef) UncacheDirective {
	if len(refs) == 0 {
		return UncacheDirective{}
	}
	return UncacheDirective{kind: UncacheRefs, refs: refs}
}

// UncacheWith deletes the keys fn derives from the result.
func UncacheWith(fn func(result any) []string) UncacheDirective {
	if fn == nil {
		return UncacheDirective{}
	}
	return UncacheDirective{kind: UncacheFunc, fn: fn}
}

// Kind returns the directive tag.
func (d UncacheDirective) Kind() UncacheKind { return d.kind }

// resolve lists the keys to delete for result.
func (d UncacheDirective) resolve(keys cache.KeyComposer, result any) []string {
	switch d.kind {
	case UncacheKeys:
		return d.keys
	case UncacheRefs:
		out := make([]string, 0, len(d.refs))
		for _, ref := range d.refs {
			out = append(out, keys.Join(ref.Key, ref.Namespace))
		}
		return out
	case UncacheFunc:
		return d.fn(result)
	default:
		return nil
	}
}
