package querycache

import (
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-query-cache/cache"
)

func TestParseCacheDirective(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantKind CacheKind
		wantTTL  time.Duration
		wantKey  string
		wantOK   bool
	}{
		{name: "absent", input: nil, wantKind: CacheAbsent, wantOK: true},
		{name: "false", input: false, wantKind: CacheDisabled, wantOK: true},
		{name: "true", input: true, wantKind: CacheEnabled, wantOK: true},
		{name: "int seconds", input: 30, wantKind: CacheTTL, wantTTL: 30 * time.Second, wantOK: true},
		{name: "fractional seconds", input: 0.5, wantKind: CacheTTL, wantTTL: 500 * time.Millisecond, wantOK: true},
		{name: "duration", input: time.Minute, wantKind: CacheTTL, wantTTL: time.Minute, wantOK: true},
		{name: "literal key", input: "users:all", wantKind: CacheLiteralKey, wantKey: "users:all", wantOK: true},
		{name: "constructed", input: CacheAs("k"), wantKind: CacheLiteralKey, wantKey: "k", wantOK: true},
		{name: "options", input: CacheOptions{Key: "k"}, wantKind: CacheStructured, wantOK: true},
		{name: "map", input: map[string]any{"key": "k", "ttl": 2}, wantKind: CacheStructured, wantOK: true},
		{name: "key func", input: func(any) string { return "k" }, wantKind: CacheStructured, wantOK: true},
		{name: "map with bad key", input: map[string]any{"key": 3}, wantKind: CacheAbsent},
		{name: "map with bad ttl", input: map[string]any{"ttl": "soon"}, wantKind: CacheAbsent},
		{name: "unknown shape", input: []int{1}, wantKind: CacheAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCacheDirective(tt.input)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Kind() != tt.wantKind {
				t.Errorf("kind = %v, want %v", got.Kind(), tt.wantKind)
			}
			if got.ttl != tt.wantTTL {
				t.Errorf("ttl = %v, want %v", got.ttl, tt.wantTTL)
			}
			if got.key != tt.wantKey {
				t.Errorf("key = %q, want %q", got.key, tt.wantKey)
			}
		})
	}
}

func TestParseCacheDirective_StructuredFields(t *testing.T) {
	fn := func(any) string { return "k" }
	got, ok := ParseCacheDirective(map[string]any{"key": fn, "namespace": "ns", "ttl": 1.5})
	if !ok {
		t.Fatal("expected structured directive")
	}
	if got.options.Namespace != "ns" {
		t.Errorf("namespace = %q", got.options.Namespace)
	}
	if got.options.TTL != 1500*time.Millisecond {
		t.Errorf("ttl = %v", got.options.TTL)
	}
	if !got.deferredKey() {
		t.Error("expected key to be derived from the result")
	}
}

func TestParseUncacheDirective(t *testing.T) {
	keys := cache.NewDefaultKeyComposer()

	tests := []struct {
		name   string
		input  any
		want   []string
		wantOK bool
	}{
		{name: "absent", input: nil, want: nil, wantOK: true},
		{name: "single key", input: "k", want: []string{"k"}, wantOK: true},
		{name: "keys", input: []string{"k1", "k2"}, want: []string{"k1", "k2"}, wantOK: true},
		{name: "any strings", input: []any{"k1", "k2"}, want: []string{"k1", "k2"}, wantOK: true},
		{name: "refs", input: []KeyRef{{Key: "k", Namespace: "ns"}, {Key: "j"}}, want: []string{"ns:k", "j"}, wantOK: true},
		{name: "maps", input: []map[string]any{{"key": "k", "namespace": "ns"}}, want: []string{"ns:k"}, wantOK: true},
		{name: "any maps", input: []any{map[string]any{"key": "k"}}, want: []string{"k"}, wantOK: true},
		{name: "func", input: func(any) []string { return []string{"a", "b"} }, want: []string{"a", "b"}, wantOK: true},
		{name: "single func", input: func(any) string { return "a" }, want: []string{"a"}, wantOK: true},
		{name: "mixed list", input: []any{"k", 1}, want: nil},
		{name: "map without key", input: []map[string]any{{"namespace": "ns"}}, want: nil},
		{name: "unknown", input: 12, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUncacheDirective(tt.input)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if resolved := got.resolve(keys, nil); !reflect.DeepEqual(resolved, tt.want) {
				t.Errorf("resolve() = %v, want %v", resolved, tt.want)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	args := Args{"where": 1, CacheArg: true, UncacheArg: "k"}
	out, c, u := splitArgs(args)

	if !reflect.DeepEqual(out, Args{"where": 1}) {
		t.Errorf("args = %v", out)
	}
	if c != true || u != "k" {
		t.Errorf("directives = %v, %v", c, u)
	}
	if len(args) != 3 {
		t.Error("input must not be modified")
	}

	out, c, u = splitArgs(nil)
	if out == nil || c != nil || u != nil {
		t.Errorf("splitArgs(nil) = %v, %v, %v", out, c, u)
	}
}
