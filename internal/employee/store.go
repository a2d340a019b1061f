package employee

import (
	"context"

	"github.com/gogotex/employees/internal/employee/query"
)

// Store is the employee collection the record operations run against.
// Implementations translate storage failures into apperr classes:
// duplicate email -> ErrConflict, unreachable storage -> ErrStorageUnavailable,
// malformed identifiers -> ErrInvalidArgument.
type Store interface {
	// InsertOne persists e and returns its generated identifier.
	InsertOne(ctx context.Context, e *Employee) (string, error)
	// InsertMany submits all records as one unordered insert. The returned
	// outcomes are positional; a non-nil error means no outcome is known.
	InsertMany(ctx context.Context, es []*Employee) ([]ItemOutcome, error)
	UpdateOne(ctx context.Context, filter query.Predicate, set Changes) (*UpdateResult, error)
	// BulkUpdate applies independent operations in one request. Rejected
	// entries are reported in the result, not as an error.
	BulkUpdate(ctx context.Context, ops []UpdateOp) (*BulkUpdateResult, error)
	UpdateMany(ctx context.Context, filter query.Predicate, set Changes) (*UpdateResult, error)
	// FindOne returns apperr.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter query.Predicate) (*Employee, error)
	Find(ctx context.Context, q *query.Query) ([]*Employee, error)
	Count(ctx context.Context, filter query.Predicate) (int64, error)
}
