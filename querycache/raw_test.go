package querycache

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-query-cache/pkg/testsupport"
)

type rawRecorder struct {
	calls  int
	text   string
	params []any
}

func (r *rawRecorder) run(_ context.Context, text string, params ...any) (any, error) {
	r.calls++
	r.text = text
	r.params = params
	return []any{map[string]any{"n": r.calls}}, nil
}

func TestEngine_QueryRaw(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewRecordingStore()
	e := newTestEngine(t, store)
	rec := &rawRecorder{}

	q := RawQuery{Text: "SELECT * FROM users WHERE id = ?", Params: []any{1}}
	for i := 0; i < 2; i++ {
		if _, err := e.QueryRaw(ctx, q, rec.run); err != nil {
			t.Fatalf("QueryRaw() error = %v", err)
		}
	}
	if rec.calls != 1 {
		t.Errorf("raw query executed %d times, want 1", rec.calls)
	}
	if rec.text != q.Text || len(rec.params) != 1 || rec.params[0] != 1 {
		t.Errorf("raw query got text=%q params=%v", rec.text, rec.params)
	}

	q.Params = []any{2}
	if _, err := e.QueryRaw(ctx, q, rec.run); err != nil {
		t.Fatalf("QueryRaw() error = %v", err)
	}
	if rec.calls != 2 {
		t.Errorf("different parameters must miss, executed %d times", rec.calls)
	}

	for _, set := range store.Sets() {
		if !strings.HasPrefix(set.Key, RawEntity+":") {
			t.Errorf("raw key %q lacks %s prefix", set.Key, RawEntity)
		}
	}
}

func TestEngine_QueryRawNoCache(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewRecordingStore()
	store.Put("stale", "x")
	e := newTestEngine(t, store)
	rec := &rawRecorder{}

	q := RawQuery{Text: "UPDATE users SET name = ?", Params: []any{"x"}, Cache: NoCache(), Uncache: Uncache("stale")}
	for i := 0; i < 2; i++ {
		if _, err := e.QueryRaw(ctx, q, rec.run); err != nil {
			t.Fatalf("QueryRaw() error = %v", err)
		}
	}
	if rec.calls != 2 {
		t.Errorf("raw query executed %d times, want 2", rec.calls)
	}
	if len(store.Sets()) != 0 {
		t.Errorf("expected no writes, got %v", store.Sets())
	}
	if store.Has("stale") {
		t.Error("expected uncache to apply to raw queries")
	}
}

func TestEngine_QueryRawUnsafe(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewRecordingStore()
	e := newTestEngine(t, store)
	rec := &rawRecorder{}

	text := "SELECT count(*) FROM users"
	for i := 0; i < 2; i++ {
		if _, err := e.QueryRawUnsafe(ctx, text, CacheDirective{}, UncacheDirective{}, rec.run); err != nil {
			t.Fatalf("QueryRawUnsafe() error = %v", err)
		}
	}
	if rec.calls != 1 {
		t.Errorf("raw query executed %d times, want 1", rec.calls)
	}
	sets := store.Sets()
	if len(sets) != 1 || !strings.HasPrefix(sets[0].Key, RawUnsafeEntity+":") {
		t.Errorf("sets = %v", sets)
	}
	if _, err := e.QueryRawUnsafe(ctx, text, Cache(), UncacheDirective{}, nil); err != ErrNilQuery {
		t.Errorf("error = %v, want ErrNilQuery", err)
	}
}
