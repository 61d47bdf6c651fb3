package querycache

import (
	"github.com/pkg/errors"
)

// Read operations cached by default.
var DefaultReadOperations = []string{
	"findMany",
	"findFirst",
	"findFirstOrThrow",
	"findUnique",
	"findUniqueOrThrow",
	"count",
	"aggregate",
	"groupBy",
}

// Write operations intercepted by default.
var DefaultWriteOperations = []string{
	"create",
	"createMany",
	"updateMany",
	"upsert",
	"update",
	"delete",
	"deleteMany",
}

// Operations classifies operation names. Only cacheable operations are
// intercepted; writes are a subset of them.
type Operations struct {
	Cacheable map[string]bool
	Writes    map[string]bool
}

// DefaultOperations returns the default classification tables.
func DefaultOperations() Operations {
	return NewOperations(DefaultReadOperations, DefaultWriteOperations)
}

// NewOperations builds classification tables from a list of reads and a
// list of writes. Writes are cacheable too.
func NewOperations(reads, writes []string) Operations {
	ops := Operations{
		Cacheable: make(map[string]bool, len(reads)+len(writes)),
		Writes:    make(map[string]bool, len(writes)),
	}
	for _, op := range reads {
		ops.Cacheable[op] = true
	}
	for _, op := range writes {
		ops.Cacheable[op] = true
		ops.Writes[op] = true
	}
	return ops
}

// IsCacheable reports whether operation is intercepted.
func (o Operations) IsCacheable(operation string) bool {
	return o.Cacheable[operation]
}

// IsWrite reports whether operation mutates state.
func (o Operations) IsWrite(operation string) bool {
	return o.Writes[operation]
}

// Validate checks that the tables are populated and that every write is cacheable.
func (o Operations) Validate() error {
	if len(o.Cacheable) == 0 {
		return errors.New("no cacheable operations configured")
	}
	for op, write := range o.Writes {
		if write && !o.Cacheable[op] {
			return errors.Errorf("write operation %q is not cacheable", op)
		}
	}
	return nil
}
