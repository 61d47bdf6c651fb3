package cache

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
)

// jsonAPI is shared by the codec, the key composer and Convert. ConfigStd
// sorts map keys, which keeps both envelopes and key hashes stable.
var jsonAPI = sonic.ConfigStd

type structField struct {
	name  string
	value reflect.Value
}

// structFields lists the exported fields of a struct value using the same
// naming rules as encoding/json: json tag names win, "-" skips the field,
// omitempty drops zero values and untagged embedded structs are flattened.
func structFields(rv reflect.Value) []structField {
	rt := rv.Type()
	fields := make([]structField, 0, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if field.Anonymous && name == "" {
			embedded := value
			if embedded.Kind() == reflect.Ptr {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				fields = append(fields, structFields(embedded)...)
				continue
			}
		}

		if !field.IsExported() || !value.CanInterface() {
			continue
		}
		if strings.Contains(opts, "omitempty") && value.IsZero() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fields = append(fields, structField{name: name, value: value})
	}

	return fields
}

// ToMap exposes the fields of a mapping or struct payload as a
// map[string]any. Pointers are followed. The second return value is false
// for anything that is not object shaped.
func ToMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKeyString(iter.Key())] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		fields := structFields(rv)
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			out[f.name] = f.value.Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

func mapKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprintf("%v", k.Interface())
}
