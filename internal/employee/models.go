package employee

import (
	"encoding/json"
	"time"

	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/pkg/apperr"
)

// Employee is the persisted employee record. ID is the hex form of the
// storage identifier and is not part of the stored body.
type Employee struct {
	ID         string    `json:"_id" bson:"-"`
	Name       string    `json:"name" bson:"name"`
	Surnames   string    `json:"surnames" bson:"surnames"`
	Age        int       `json:"age" bson:"age"`
	City       string    `json:"city" bson:"city"`
	Email      string    `json:"email" bson:"email"`
	Position   string    `json:"position" bson:"position"`
	Department string    `json:"department" bson:"department"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
	IsDeleted  bool      `json:"isDeleted" bson:"isDeleted"`
}

// Value implements query.Record.
func (e *Employee) Value(field string) any {
	switch field {
	case query.FieldID:
		return e.ID
	case query.FieldName:
		return e.Name
	case query.FieldSurnames:
		return e.Surnames
	case query.FieldAge:
		return e.Age
	case query.FieldCity:
		return e.City
	case query.FieldEmail:
		return e.Email
	case query.FieldPosition:
		return e.Position
	case query.FieldDepartment:
		return e.Department
	case query.FieldCreatedAt:
		return e.CreatedAt
	case query.FieldUpdatedAt:
		return e.UpdatedAt
	case query.FieldIsDeleted:
		return e.IsDeleted
	}
	return nil
}

// Apply writes every change onto e and reports whether any stored value
// actually differs afterwards. Unknown fields and mistyped values are ignored.
func (e *Employee) Apply(set Changes) bool {
	changed := false
	for _, c := range set {
		var ok bool
		switch c.Field {
		case query.FieldName:
			ok = assign(&e.Name, c.Value)
		case query.FieldSurnames:
			ok = assign(&e.Surnames, c.Value)
		case query.FieldAge:
			ok = assign(&e.Age, c.Value)
		case query.FieldCity:
			ok = assign(&e.City, c.Value)
		case query.FieldEmail:
			ok = assign(&e.Email, c.Value)
		case query.FieldPosition:
			ok = assign(&e.Position, c.Value)
		case query.FieldDepartment:
			ok = assign(&e.Department, c.Value)
		case query.FieldUpdatedAt:
			if t, isTime := c.Value.(time.Time); isTime && !t.Equal(e.UpdatedAt) {
				e.UpdatedAt, ok = t, true
			}
		case query.FieldIsDeleted:
			ok = assign(&e.IsDeleted, c.Value)
		}
		changed = changed || ok
	}
	return changed
}

func assign[T comparable](dst *T, v any) bool {
	x, ok := v.(T)
	if !ok || *dst == x {
		return false
	}
	*dst = x
	return true
}

// NewEmployee is the create payload.
type NewEmployee struct {
	Name       string `json:"name" binding:"required"`
	Surnames   string `json:"surnames" binding:"required"`
	Age        int    `json:"age" binding:"required,min=18"`
	City       string `json:"city" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Position   string `json:"position" binding:"required"`
	Department string `json:"department" binding:"required"`
}

// Patch is a partial update addressed by identifier. Nil fields are left
// untouched; the identifier itself is never updated.
type Patch struct {
	ID         string  `json:"_id" binding:"required"`
	Name       *string `json:"name,omitempty"`
	Surnames   *string `json:"surnames,omitempty"`
	Age        *int    `json:"age,omitempty" binding:"omitempty,min=18"`
	City       *string `json:"city,omitempty"`
	Email      *string `json:"email,omitempty" binding:"omitempty,email"`
	Position   *string `json:"position,omitempty"`
	Department *string `json:"department,omitempty"`
}

// Change is a single field assignment.
type Change struct {
	Field string
	Value any
}

// Changes is an ordered field assignment set ($set).
type Changes []Change

// Changes returns the supplied fields of p in a fixed order.
func (p Patch) Changes() Changes {
	var set Changes
	add := func(field string, v *string) {
		if v != nil {
			set = append(set, Change{Field: field, Value: *v})
		}
	}
	add(query.FieldName, p.Name)
	add(query.FieldSurnames, p.Surnames)
	if p.Age != nil {
		set = append(set, Change{Field: query.FieldAge, Value: *p.Age})
	}
	add(query.FieldCity, p.City)
	add(query.FieldEmail, p.Email)
	add(query.FieldPosition, p.Position)
	add(query.FieldDepartment, p.Department)
	return set
}

// UpdateOp is one independent update-by-filter inside a bulk write.
type UpdateOp struct {
	Filter query.Predicate
	Set    Changes
}

// CreateResult reports a single insert.
type CreateResult struct {
	InsertedID string `json:"insertedId"`
}

// ItemOutcome is the result of one entry of a bulk operation, by input position.
type ItemOutcome struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error error  `json:"-"`
}

// Succeeded reports whether the entry was applied.
func (o ItemOutcome) Succeeded() bool { return o.Error == nil }

func (o ItemOutcome) MarshalJSON() ([]byte, error) {
	out := map[string]any{"index": o.Index, "success": o.Error == nil}
	if o.ID != "" {
		out["id"] = o.ID
	}
	if o.Error != nil {
		out["error"] = apperr.Payload(o.Error)
	}
	return json.Marshal(out)
}

// BulkCreateResult reports a multi-record insert. Items has one entry per input.
type BulkCreateResult struct {
	InsertedCount int           `json:"insertedCount"`
	InsertedIDs   []string      `json:"insertedIds"`
	Items         []ItemOutcome `json:"items"`
}

// UpdateResult reports matched and modified counts of an update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// BulkUpdateResult aggregates the independent updates of a bulk write.
// Failures lists rejected entries by input position (missing or malformed
// ids, email collisions);
// entries whose identifier matched nothing are not failures.
type BulkUpdateResult struct {
	MatchedCount  int64         `json:"matchedCount"`
	ModifiedCount int64         `json:"modifiedCount"`
	Failures      []ItemOutcome `json:"failures,omitempty"`
}

// DeleteResult reports a logical delete. DeletedCount counts modified
// records; re-deleting an already deleted record still refreshes updatedAt
// to a strictly later time and therefore counts.
type DeleteResult struct {
	MatchedCount int64 `json:"matchedCount"`
	DeletedCount int64 `json:"deletedCount"`
}

// Pagination is the listing metadata.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int64 `json:"limit"`
	Pages int64 `json:"pages"`
}

// Page is one window of a listing.
type Page struct {
	Data       []*Employee `json:"data"`
	Pagination Pagination  `json:"pagination"`
}
