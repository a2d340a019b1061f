package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogotex/employees/pkg/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Request holds the optional listing criteria. Nil or empty fields impose
// no condition. Binding tags describe the upstream shape checks; Build
// re-checks everything it depends on.
type Request struct {
	Name       string `form:"name" json:"name,omitempty"`
	Surnames   string `form:"surnames" json:"surnames,omitempty"`
	City       string `form:"city" json:"city,omitempty"`
	Position   string `form:"position" json:"position,omitempty"`
	Department string `form:"department" json:"department,omitempty"`
	MinAge     *int   `form:"minAge" json:"minAge,omitempty" binding:"omitempty,min=18"`
	MaxAge     *int   `form:"maxAge" json:"maxAge,omitempty" binding:"omitempty,min=18"`
	SortBy     string `form:"sortBy" json:"sortBy,omitempty"`
	SortOrder  string `form:"sortOrder" json:"sortOrder,omitempty" binding:"omitempty,oneof=asc desc"`
	Page       *int   `form:"page" json:"page,omitempty" binding:"omitempty,min=1"`
	Limit      *int   `form:"limit" json:"limit,omitempty" binding:"omitempty,min=1,max=100"`
}

// SortField is one key of a sort specification. Desc false means ascending.
type SortField struct {
	Field string
	Desc  bool
}

// Query is the output of Build: predicate, sort specification and window.
type Query struct {
	Predicate Predicate
	Sort      []SortField
	Skip      int64
	Limit     int64
	Page      int
}

// Sortable lists the fields a listing may be ordered by.
var Sortable = map[string]bool{
	FieldName:       true,
	FieldSurnames:   true,
	FieldAge:        true,
	FieldCity:       true,
	FieldEmail:      true,
	FieldPosition:   true,
	FieldDepartment: true,
	FieldCreatedAt:  true,
	FieldUpdatedAt:  true,
}

// fragment turns one optional request key into zero or one condition.
type fragment func(r *Request) (Condition, bool)

func contains(field string, get func(r *Request) string) fragment {
	return func(r *Request) (Condition, bool) {
		v := get(r)
		if v == "" {
			return Condition{}, false
		}
		return Condition{Field: field, Op: OpContains, Value: v}, true
	}
}

func bound(field string, op Op, get func(r *Request) *int) fragment {
	return func(r *Request) (Condition, bool) {
		v := get(r)
		if v == nil {
			return Condition{}, false
		}
		return Condition{Field: field, Op: op, Value: *v}, true
	}
}

var fragments = []fragment{
	contains(FieldName, func(r *Request) string { return r.Name }),
	contains(FieldSurnames, func(r *Request) string { return r.Surnames }),
	contains(FieldCity, func(r *Request) string { return r.City }),
	contains(FieldPosition, func(r *Request) string { return r.Position }),
	contains(FieldDepartment, func(r *Request) string { return r.Department }),
	bound(FieldAge, OpGte, func(r *Request) *int { return r.MinAge }),
	bound(FieldAge, OpLte, func(r *Request) *int { return r.MaxAge }),
}

// Build translates r into a predicate, sort specification and window.
// The live-records condition (isDeleted = false) is always present.
func Build(r Request) (*Query, error) {
	page, limit, err := window(r.Page, r.Limit)
	if err != nil {
		return nil, err
	}
	sort, err := sortSpec(r.SortBy, r.SortOrder)
	if err != nil {
		return nil, err
	}

	pred := make(Predicate, 0, len(fragments)+1)
	for _, f := range fragments {
		if c, ok := f(&r); ok {
			pred = append(pred, c)
		}
	}
	pred = append(pred, notDeleted())

	return &Query{
		Predicate: pred,
		Sort:      sort,
		Skip:      int64(page-1) * int64(limit),
		Limit:     int64(limit),
		Page:      page,
	}, nil
}

// Scoped builds r with an exact equality on field (department or position)
// that replaces any partial match the request carries for the same field.
func Scoped(r Request, field, value string) (*Query, error) {
	if value == "" {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, field+" must not be empty")
	}
	switch field {
	case FieldDepartment:
		r.Department = ""
	case FieldPosition:
		r.Position = ""
	default:
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "cannot scope listing by "+field)
	}
	q, err := Build(r)
	if err != nil {
		return nil, err
	}
	q.Predicate = append(Predicate{{Field: field, Op: OpEq, Value: value}}, q.Predicate...)
	return q, nil
}

func window(pagePtr, limitPtr *int) (int, int, error) {
	page, limit := DefaultPage, DefaultLimit
	if pagePtr != nil {
		page = *pagePtr
	}
	if limitPtr != nil {
		limit = *limitPtr
	}
	if page < 1 {
		return 0, 0, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "page must be >= 1"), map[string]any{"page": page})
	}
	if limit < 1 || limit > MaxLimit {
		return 0, 0, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, fmt.Sprintf("limit must be between 1 and %d", MaxLimit)), map[string]any{"limit": limit})
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return 0, 0, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "page out of range"), map[string]any{"page": page})
	}
	return page, limit, nil
}

func sortSpec(sortBy, sortOrder string) ([]SortField, error) {
	order := strings.ToLower(sortOrder)
	if order != "" && order != SortAsc && order != SortDesc {
		return nil, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, `sortOrder must be "asc" or "desc"`), map[string]any{"sortOrder": sortOrder})
	}
	spec := make([]SortField, 0, 2)
	if sortBy != "" {
		if !Sortable[sortBy] {
			return nil, apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "unsupported sortBy field"), map[string]any{"sortBy": sortBy})
		}
		spec = append(spec, SortField{Field: sortBy, Desc: order == SortDesc})
	}
	// identifier tie-break keeps pages stable between identical requests
	spec = append(spec, SortField{Field: FieldID})
	return spec, nil
}

// Less orders a before b according to q.Sort.
func (q *Query) Less(a, b Record) bool {
	for _, s := range q.Sort {
		c := Compare(a.Value(s.Field), b.Value(s.Field))
		if c == 0 {
			continue
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Pages returns ceil(total/limit). limit is at least 1 for any built query.
func Pages(total, limit int64) int64 {
	return (total + limit - 1) / limit
}
