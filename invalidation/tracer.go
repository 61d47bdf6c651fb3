package invalidation

import (
	"reflect"

	"github.com/goliatone/go-query-cache/cache"
)

// DefaultMaxDepth bounds how far a trace follows nested payloads.
const DefaultMaxDepth = 32

// nestedWriteKeys are the keys of a relation payload that wrap the related
// records rather than describe them, e.g. {posts: {create: [...]}}.
var nestedWriteKeys = map[string]bool{
	"create":          true,
	"createMany":      true,
	"connectOrCreate": true,
	"connect":         true,
	"update":          true,
	"updateMany":      true,
	"upsert":          true,
	"set":             true,
	"disconnect":      true,
	"delete":          true,
	"deleteMany":      true,
	"data":            true,
	"where":           true,
	"skipDuplicates":  true,
}

// defaultPayloadKeys says where each write operation keeps the records it
// writes. Writes that are not listed only affect their own entity.
var defaultPayloadKeys = map[string][]string{
	"create":     {"data"},
	"update":     {"data"},
	"updateMany": {"data"},
	"createMany": {"data"},
	"upsert":     {"create", "update"},
}

// readShapeKeys are the read arguments that pull related entities into a result.
var readShapeKeys = []string{"include", "select"}

// Tracer computes which entities a call touches by walking its payload
// against a RelationGraph. It only sees relations present in the payload
// itself; database side cascades and triggers are invisible to it.
type Tracer struct {
	graph       RelationGraph
	maxDepth    int
	payloadKeys map[string][]string
}

// TracerOption customizes a Tracer.
type TracerOption func(*Tracer)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) TracerOption {
	return func(t *Tracer) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithPayloadKeys declares the argument keys holding written records for
// operation, replacing the default entry point for it.
func WithPayloadKeys(operation string, keys ...string) TracerOption {
	return func(t *Tracer) {
		t.payloadKeys[operation] = keys
	}
}

// NewTracer builds a tracer. A nil graph yields traces containing only the
// root entity.
func NewTracer(graph RelationGraph, opts ...TracerOption) *Tracer {
	t := &Tracer{
		graph:       graph,
		maxDepth:    DefaultMaxDepth,
		payloadKeys: make(map[string][]string, len(defaultPayloadKeys)),
	}
	for op, keys := range defaultPayloadKeys {
		t.payloadKeys[op] = keys
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AffectedEntities returns the root entity plus every related entity
// referenced by the write payload of operation. The result has no duplicates
// and keeps discovery order, root first.
func (t *Tracer) AffectedEntities(entity, operation string, args map[string]any) []string {
	var roots []any
	for _, key := range t.payloadKeys[operation] {
		if v, ok := args[key]; ok {
			roots = append(roots, v)
		}
	}
	return t.trace(entity, roots, t.writeFields)
}

// ReadEntities returns the root entity plus the related entities a read
// pulls in through its include/select arguments.
func (t *Tracer) ReadEntities(entity string, args map[string]any) []string {
	var roots []any
	for _, key := range readShapeKeys {
		if v, ok := args[key]; ok {
			roots = append(roots, v)
		}
	}
	return t.trace(entity, roots, t.shapeFields)
}

type frame struct {
	entity string
	value  any
	depth  int
}

type visit struct {
	entity string
	ptr    uintptr
}

type expandFn func(f frame, push func(frame), touch func(string))

func (t *Tracer) trace(entity string, roots []any, expand expandFn) []string {
	result := []string{entity}
	seen := map[string]bool{entity: true}
	touch := func(name string) {
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	if t.graph == nil {
		return result
	}

	visited := map[visit]bool{}
	var stack []frame
	push := func(f frame) {
		if f.depth > t.maxDepth || isNil(f.value) {
			return
		}
		if ptr, ok := identity(f.value); ok {
			v := visit{entity: f.entity, ptr: ptr}
			if visited[v] {
				return
			}
			visited[v] = true
		}
		stack = append(stack, f)
	}

	for _, root := range roots {
		push(frame{entity: entity, value: root})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if items, ok := sequence(f.value); ok {
			for _, item := range items {
				push(frame{entity: f.entity, value: item, depth: f.depth + 1})
			}
			continue
		}
		expand(f, push, touch)
	}

	return result
}

// writeFields handles one record (or nested write wrapper) of a write payload.
func (t *Tracer) writeFields(f frame, push func(frame), touch func(string)) {
	fields, ok := cache.ToMap(f.value)
	if !ok {
		return
	}

	if isNestedWrite(fields) {
		for key, v := range fields {
			if key == "where" || key == "skipDuplicates" {
				continue
			}
			push(frame{entity: f.entity, value: v, depth: f.depth + 1})
		}
		return
	}

	for name, v := range fields {
		related, ok := t.graph.Relation(f.entity, name)
		if !ok || isNil(v) {
			continue
		}
		touch(related)
		if isObject(v) {
			push(frame{entity: related, value: v, depth: f.depth + 1})
		}
	}
}

// shapeFields handles an include/select tree: {posts: true} or
// {posts: {include: {author: true}}}.
func (t *Tracer) shapeFields(f frame, push func(frame), touch func(string)) {
	fields, ok := cache.ToMap(f.value)
	if !ok {
		return
	}

	for name, v := range fields {
		related, ok := t.graph.Relation(f.entity, name)
		if !ok || isNil(v) || v == false {
			continue
		}
		touch(related)
		nested, ok := cache.ToMap(v)
		if !ok {
			continue
		}
		for _, key := range readShapeKeys {
			if sub, ok := nested[key]; ok {
				push(frame{entity: related, value: sub, depth: f.depth + 1})
			}
		}
	}
}

func isNestedWrite(fields map[string]any) bool {
	if len(fields) == 0 {
		return false
	}
	for key := range fields {
		if !nestedWriteKeys[key] {
			return false
		}
	}
	return true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isObject(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		return true
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

// sequence expands slices and arrays of records; byte slices are leaves.
func sequence(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// identity returns an address for reference values so cyclic payloads are
// walked once per entity.
func identity(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map:
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}
