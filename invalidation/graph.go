package invalidation

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// RelationGraph answers whether a field of an entity is a relation and, if
// so, which entity it points to. Implementations are read only.
type RelationGraph interface {
	Relation(entity, field string) (related string, ok bool)
}

// StaticGraph is a RelationGraph declared by hand: entity -> field -> related entity.
type StaticGraph map[string]map[string]string

// Relation implements RelationGraph.
func (g StaticGraph) Relation(entity, field string) (string, bool) {
	fields, ok := g[entity]
	if !ok {
		return "", false
	}
	related, ok := fields[field]
	return related, ok
}

// GraphFunc adapts a function to RelationGraph.
type GraphFunc func(entity, field string) (string, bool)

// Relation implements RelationGraph.
func (f GraphFunc) Relation(entity, field string) (string, bool) {
	return f(entity, field)
}

// BunGraph reads relation metadata from bun table definitions. Entities are
// named after the model type (schema.Table.TypeName). Each relation is
// reachable by its Go field name, the lower camel form of the Go name, the
// name bun derives for it (underscored unless set in the tag) and its json
// tag, which is the name struct payloads carry once flattened.
type BunGraph struct {
	relations StaticGraph
}

// NewBunGraph inspects the given models (struct values or pointers) and
// every model reachable through their relations.
func NewBunGraph(db *bun.DB, models ...any) *BunGraph {
	g := &BunGraph{relations: StaticGraph{}}
	for _, model := range models {
		typ := reflect.TypeOf(model)
		for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
			typ = typ.Elem()
		}
		g.addTable(db.Table(typ))
	}
	return g
}

// Relation implements RelationGraph.
func (g *BunGraph) Relation(entity, field string) (string, bool) {
	return g.relations.Relation(entity, field)
}

// Entities returns the model names known to the graph.
func (g *BunGraph) Entities() []string {
	out := make([]string, 0, len(g.relations))
	for entity := range g.relations {
		out = append(out, entity)
	}
	return out
}

func (g *BunGraph) addTable(table *schema.Table) {
	if table == nil {
		return
	}
	if _, seen := g.relations[table.TypeName]; seen {
		return
	}

	fields := make(map[string]string, len(table.Relations)*4)
	g.relations[table.TypeName] = fields

	for goName, rel := range table.Relations {
		if rel.JoinTable == nil {
			continue
		}
		related := rel.JoinTable.TypeName
		for _, alias := range relationAliases(goName, rel.Field) {
			fields[alias] = related
		}
		g.addTable(rel.JoinTable)
	}
}

func relationAliases(goName string, field *schema.Field) []string {
	aliases := []string{goName, lowerFirst(goName)}
	if field == nil {
		return aliases
	}
	if field.Name != "" {
		aliases = append(aliases, field.Name)
	}
	if name, _, _ := strings.Cut(field.StructField.Tag.Get("json"), ","); name != "" && name != "-" {
		aliases = append(aliases, name)
	}
	return aliases
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
