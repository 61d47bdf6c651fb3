package querycache

import (
	"time"
)

// Reserved argument keys carrying directives. They are stripped from the
// arguments before the underlying query runs.
const (
	CacheArg   = "cache"
	UncacheArg = "uncache"
)

// ParseCacheDirective converts a loosely typed directive into its tagged
// form. Accepted shapes: CacheDirective, bool, a number of seconds,
// time.Duration, a literal key string, a func(any) string key, CacheOptions and
// map[string]any{"key", "namespace", "ttl"} where key may be a
// func(any) string. Anything else yields an absent directive and ok=false.
func ParseCacheDirective(v any) (CacheDirective, bool) {
	switch x := v.(type) {
	case nil:
		return CacheDirective{}, true
	case CacheDirective:
		return x, true
	case *CacheDirective:
		if x == nil {
			return CacheDirective{}, true
		}
		return *x, true
	case bool:
		if x {
			return Cache(), true
		}
		return NoCache(), true
	case time.Duration:
		return CacheFor(x), true
	case string:
		return CacheAs(x), true
	case CacheOptions:
		return CacheWith(x), true
	case *CacheOptions:
		if x == nil {
			return CacheDirective{}, false
		}
		return CacheWith(*x), true
	case func(any) string:
		return CacheWith(CacheOptions{KeyFunc: x}), true
	case map[string]any:
		return parseCacheOptions(x)
	}

	if seconds, ok := toSeconds(v); ok {
		return CacheSeconds(seconds), true
	}
	return CacheDirective{}, false
}

func parseCacheOptions(m map[string]any) (CacheDirective, bool) {
	var opts CacheOptions

	switch key := m["key"].(type) {
	case nil:
	case string:
		opts.Key = key
	case func(any) string:
		opts.KeyFunc = key
	default:
		return CacheDirective{}, false
	}

	switch ns := m["namespace"].(type) {
	case nil:
	case string:
		opts.Namespace = ns
	default:
		return CacheDirective{}, false
	}

	switch ttl := m["ttl"].(type) {
	case nil:
	case time.Duration:
		opts.TTL = ttl
	default:
		seconds, ok := toSeconds(ttl)
		if !ok {
			return CacheDirective{}, false
		}
		opts.TTL = time.Duration(seconds * float64(time.Second))
	}

	return CacheWith(opts), true
}

// ParseUncacheDirective converts a loosely typed uncache directive into its
// tagged form. Accepted shapes: UncacheDirective, a key string, []string,
// []KeyRef, []map[string]any{"key", "namespace"}, []any of either strings
// or such maps, func(any) string and func(any) []string. Anything else
// yields an absent directive and ok=false.
func ParseUncacheDirective(v any) (UncacheDirective, bool) {
	switch x := v.(type) {
	case nil:
		return UncacheDirective{}, true
	case UncacheDirective:
		return x, true
	case string:
		return Uncache(x), true
	case []string:
		return Uncache(x...), true
	case []KeyRef:
		return UncacheRef(x...), true
	case []map[string]any:
		refs := make([]KeyRef, 0, len(x))
		for _, m := range x {
			ref, ok := parseKeyRef(m)
			if !ok {
				return UncacheDirective{}, false
			}
			refs = append(refs, ref)
		}
		return UncacheRef(refs...), true
	case []any:
		return parseUncacheList(x)
	case func(any) []string:
		return UncacheWith(x), true
	case func(any) string:
		return UncacheWith(func(result any) []string { return []string{x(result)} }), true
	}
	return UncacheDirective{}, false
}

func parseUncacheList(items []any) (UncacheDirective, bool) {
	if len(items) == 0 {
		return UncacheDirective{}, true
	}

	if _, isString := items[0].(string); isString {
		keys := make([]string, 0, len(items))
		for _, item := range items {
			key, ok := item.(string)
			if !ok {
				return UncacheDirective{}, false
			}
			keys = append(keys, key)
		}
		return Uncache(keys...), true
	}

	refs := make([]KeyRef, 0, len(items))
	for _, item := range items {
		var (
			ref KeyRef
			ok  bool
		)
		switch x := item.(type) {
		case KeyRef:
			ref, ok = x, true
		case map[string]any:
			ref, ok = parseKeyRef(x)
		}
		if !ok {
			return UncacheDirective{}, false
		}
		refs = append(refs, ref)
	}
	return UncacheRef(refs...), true
}

func parseKeyRef(m map[string]any) (KeyRef, bool) {
	key, ok := m["key"].(string)
	if !ok {
		return KeyRef{}, false
	}
	ref := KeyRef{Key: key}
	if ns, present := m["namespace"]; present && ns != nil {
		namespace, ok := ns.(string)
		if !ok {
			return KeyRef{}, false
		}
		ref.Namespace = namespace
	}
	return ref, true
}

func toSeconds(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// splitArgs separates directives from the arguments passed down to the
// query. The input map is not modified.
func splitArgs(args Args) (Args, any, any) {
	if args == nil {
		return Args{}, nil, nil
	}
	cacheRaw, hasCache := args[CacheArg]
	uncacheRaw, hasUncache := args[UncacheArg]
	if !hasCache && !hasUncache {
		return args, nil, nil
	}

	out := make(Args, len(args))
	for k, v := range args {
		if k == CacheArg || k == UncacheArg {
			continue
		}
		out[k] = v
	}
	return out, cacheRaw, uncacheRaw
}
