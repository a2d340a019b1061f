package query

import (
	"strings"
	"time"
)

// Persisted field names.
const (
	FieldID         = "_id"
	FieldName       = "name"
	FieldSurnames   = "surnames"
	FieldAge        = "age"
	FieldCity       = "city"
	FieldEmail      = "email"
	FieldPosition   = "position"
	FieldDepartment = "department"
	FieldCreatedAt  = "createdAt"
	FieldUpdatedAt  = "updatedAt"
	FieldIsDeleted  = "isDeleted"
)

// Op is a comparison operator of a single condition.
type Op int

const (
	// OpEq is exact, case-sensitive equality.
	OpEq Op = iota
	// OpContains is an unanchored, case-insensitive literal substring match.
	OpContains
	// OpGte and OpLte are inclusive integer bounds.
	OpGte
	OpLte
	// OpIn matches when the field equals any of a []string value.
	OpIn
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpContains:
		return "contains"
	case OpGte:
		return "gte"
	case OpLte:
		return "lte"
	case OpIn:
		return "in"
	}
	return "unknown"
}

// Condition is one predicate fragment.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Predicate is a conjunction of conditions. The empty predicate matches everything.
type Predicate []Condition

// Record exposes stored field values to in-memory evaluation.
type Record interface {
	Value(field string) any
}

// Match reports whether r satisfies every condition of p.
func (p Predicate) Match(r Record) bool {
	for _, c := range p {
		if !c.match(r.Value(c.Field)) {
			return false
		}
	}
	return true
}

// Has reports whether p carries a condition on field with operator op.
func (p Predicate) Has(field string, op Op) bool {
	for _, c := range p {
		if c.Field == field && c.Op == op {
			return true
		}
	}
	return false
}

func (c Condition) match(v any) bool {
	switch c.Op {
	case OpEq:
		return Compare(v, c.Value) == 0
	case OpContains:
		s, ok := v.(string)
		needle, ok2 := c.Value.(string)
		return ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case OpGte:
		n, ok := v.(int)
		bound, ok2 := c.Value.(int)
		return ok && ok2 && n >= bound
	case OpLte:
		n, ok := v.(int)
		bound, ok2 := c.Value.(int)
		return ok && ok2 && n <= bound
	case OpIn:
		s, ok := v.(string)
		set, ok2 := c.Value.([]string)
		if !ok || !ok2 {
			return false
		}
		for _, x := range set {
			if x == s {
				return true
			}
		}
	}
	return false
}

// Compare orders two field values of the same kind: -1, 0 or 1.
// Values of differing or unsupported kinds compare as unequal (-1).
func Compare(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmpInt(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return -1
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ByID selects one live record by identifier.
func ByID(id string) Predicate {
	return Predicate{
		{Field: FieldID, Op: OpEq, Value: id},
		notDeleted(),
	}
}

// WithID selects a record by identifier regardless of its deletion flag.
// Mutations address records this way.
func WithID(id string) Predicate {
	return Predicate{{Field: FieldID, Op: OpEq, Value: id}}
}

// WithIDs selects every record whose identifier is in ids, deleted or not.
func WithIDs(ids []string) Predicate {
	set := make([]string, len(ids))
	copy(set, ids)
	return Predicate{{Field: FieldID, Op: OpIn, Value: set}}
}

func notDeleted() Condition {
	return Condition{Field: FieldIsDeleted, Op: OpEq, Value: false}
}
