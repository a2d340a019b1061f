package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/internal/employee/repository"
	"github.com/gogotex/employees/pkg/apperr"
	"github.com/gogotex/employees/pkg/logger"
	"github.com/gogotex/employees/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Service defines the employee record operations used by the handler layer.
type Service interface {
	CreateOne(ctx context.Context, in employee.NewEmployee) (*employee.CreateResult, error)
	CreateMany(ctx context.Context, in []employee.NewEmployee) (*employee.BulkCreateResult, error)
	UpdateOne(ctx context.Context, p employee.Patch) (*employee.UpdateResult, error)
	UpdateMany(ctx context.Context, ps []employee.Patch) (*employee.BulkUpdateResult, error)
	Delete(ctx context.Context, ids []string) (*employee.DeleteResult, error)
	FindByID(ctx context.Context, id string) (*employee.Employee, error)
	FindAll(ctx context.Context, r query.Request) (*employee.Page, error)
	FindByDepartment(ctx context.Context, department string, r query.Request) (*employee.Page, error)
	FindByPosition(ctx context.Context, position string, r query.Request) (*employee.Page, error)
	Search(ctx context.Context, r query.Request) (*employee.Page, error)
}

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

type Option func(*service)

func WithClock(c Clock) Option {
	return func(s *service) { s.now = c }
}

// New returns a Service over the given store.
func New(store employee.Store, opts ...Option) Service {
	s := &service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection, opts ...Option) Service {
	return New(repository.NewMongoRepo(col), opts...)
}

type service struct {
	store employee.Store
	now   Clock

	mu   sync.Mutex
	last time.Time
}

// timestamp is the bookkeeping time for a mutation, at the storage precision.
// Successive readings strictly increase, even within one millisecond or when
// the clock steps back.
func (s *service) timestamp() time.Time {
	t := s.now().UTC().Truncate(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}

func (s *service) CreateOne(ctx context.Context, in employee.NewEmployee) (*employee.CreateResult, error) {
	const op = "create"
	id, err := s.store.InsertOne(ctx, s.newRecord(in, s.timestamp()))
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.ok(op)
	logger.Debugf("employee created id=%s", id)
	return &employee.CreateResult{InsertedID: id}, nil
}

func (s *service) CreateMany(ctx context.Context, in []employee.NewEmployee) (*employee.BulkCreateResult, error) {
	const op = "create_bulk"
	if len(in) == 0 {
		return nil, s.fail(op, apperr.Newf(apperr.ErrInvalidArgument, "employee list must not be empty"))
	}
	now := s.timestamp()
	records := make([]*employee.Employee, len(in))
	for i := range in {
		records[i] = s.newRecord(in[i], now)
	}

	items, err := s.store.InsertMany(ctx, records)
	if err != nil {
		return nil, s.fail(op, err)
	}
	res := &employee.BulkCreateResult{InsertedIDs: []string{}, Items: items}
	for _, it := range items {
		if it.Succeeded() {
			res.InsertedCount++
			res.InsertedIDs = append(res.InsertedIDs, it.ID)
			metrics.BulkItems.WithLabelValues(op, "ok").Inc()
			continue
		}
		metrics.BulkItems.WithLabelValues(op, apperr.Code(it.Error)).Inc()
		logger.Warnf("bulk create: item %d rejected: %v", it.Index, it.Error)
	}
	s.ok(op)
	return res, nil
}

func (s *service) newRecord(in employee.NewEmployee, now time.Time) *employee.Employee {
	return &employee.Employee{
		Name:       in.Name,
		Surnames:   in.Surnames,
		Age:        in.Age,
		City:       in.City,
		Email:      in.Email,
		Position:   in.Position,
		Department: in.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
		IsDeleted:  false,
	}
}

func (s *service) UpdateOne(ctx context.Context, p employee.Patch) (*employee.UpdateResult, error) {
	const op = "update"
	if p.ID == "" {
		return nil, s.fail(op, apperr.Newf(apperr.ErrInvalidArgument, "employee id is required"))
	}
	set := append(p.Changes(), employee.Change{Field: query.FieldUpdatedAt, Value: s.timestamp()})
	res, err := s.store.UpdateOne(ctx, query.WithID(p.ID), set)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if res.MatchedCount == 0 {
		return nil, s.fail(op, apperr.WithFields(apperr.Newf(apperr.ErrNotFound, "employee not found"), map[string]any{"id": p.ID}))
	}
	s.ok(op)
	return res, nil
}

// UpdateMany applies each patch as an independent update-by-id in one bulk
// write. Patches whose id matches nothing are not errors; they only lower
// MatchedCount. Patches with a missing or malformed id are reported in
// Failures and the rest are still applied.
func (s *service) UpdateMany(ctx context.Context, ps []employee.Patch) (*employee.BulkUpdateResult, error) {
	const op = "update_bulk"
	if len(ps) == 0 {
		return nil, s.fail(op, apperr.Newf(apperr.ErrInvalidArgument, "update list must not be empty"))
	}
	now := s.timestamp()
	var (
		ops      = make([]employee.UpdateOp, 0, len(ps))
		pos      = make([]int, 0, len(ps)) // ops index -> input index
		rejected []employee.ItemOutcome
	)
	for i, p := range ps {
		if err := checkID(p.ID); err != nil {
			rejected = append(rejected, employee.ItemOutcome{Index: i, ID: p.ID, Error: err})
			continue
		}
		ops = append(ops, employee.UpdateOp{
			Filter: query.WithID(p.ID),
			Set:    append(p.Changes(), employee.Change{Field: query.FieldUpdatedAt, Value: now}),
		})
		pos = append(pos, i)
	}

	res := &employee.BulkUpdateResult{}
	if len(ops) > 0 {
		stored, err := s.store.BulkUpdate(ctx, ops)
		if err != nil {
			return nil, s.fail(op, err)
		}
		res.MatchedCount, res.ModifiedCount = stored.MatchedCount, stored.ModifiedCount
		for _, f := range stored.Failures {
			f.Index = pos[f.Index]
			f.ID = ps[f.Index].ID
			rejected = append(rejected, f)
		}
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	res.Failures = rejected

	for _, f := range res.Failures {
		metrics.BulkItems.WithLabelValues(op, apperr.Code(f.Error)).Inc()
		logger.Warnf("bulk update: item %d rejected: %v", f.Index, f.Error)
	}
	metrics.BulkItems.WithLabelValues(op, "ok").Add(float64(len(ps) - len(res.Failures)))
	if missing := int64(len(ps)-len(res.Failures)) - res.MatchedCount; missing > 0 {
		logger.Debugf("bulk update: %d id(s) matched no employee", missing)
	}
	s.ok(op)
	return res, nil
}

func checkID(id string) error {
	if id == "" {
		return apperr.Newf(apperr.ErrInvalidArgument, "employee id is required")
	}
	if !primitive.IsValidObjectID(id) {
		return apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "malformed employee id"), map[string]any{"id": id})
	}
	return nil
}

// Delete marks every listed employee as deleted. Already deleted employees
// match and, since updatedAt is refreshed to a strictly later time, count as
// deleted again.
func (s *service) Delete(ctx context.Context, ids []string) (*employee.DeleteResult, error) {
	const op = "delete"
	if len(ids) == 0 {
		return nil, s.fail(op, apperr.Newf(apperr.ErrInvalidArgument, "id list must not be empty"))
	}
	set := employee.Changes{
		{Field: query.FieldIsDeleted, Value: true},
		{Field: query.FieldUpdatedAt, Value: s.timestamp()},
	}
	res, err := s.store.UpdateMany(ctx, query.WithIDs(ids), set)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if res.MatchedCount == 0 {
		return nil, s.fail(op, apperr.WithFields(apperr.Newf(apperr.ErrNotFound, "no employee matched the given ids"), map[string]any{"ids": ids}))
	}
	s.ok(op)
	return &employee.DeleteResult{MatchedCount: res.MatchedCount, DeletedCount: res.ModifiedCount}, nil
}

func (s *service) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	const op = "find_by_id"
	if id == "" {
		return nil, s.fail(op, apperr.Newf(apperr.ErrInvalidArgument, "employee id is required"))
	}
	e, err := s.store.FindOne(ctx, query.ByID(id))
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.ok(op)
	return e, nil
}

func (s *service) FindAll(ctx context.Context, r query.Request) (*employee.Page, error) {
	q, err := query.Build(r)
	if err != nil {
		return nil, s.fail("find_all", err)
	}
	return s.list(ctx, "find_all", q)
}

func (s *service) FindByDepartment(ctx context.Context, department string, r query.Request) (*employee.Page, error) {
	q, err := query.Scoped(r, query.FieldDepartment, department)
	if err != nil {
		return nil, s.fail("find_by_department", err)
	}
	return s.list(ctx, "find_by_department", q)
}

func (s *service) FindByPosition(ctx context.Context, position string, r query.Request) (*employee.Page, error) {
	q, err := query.Scoped(r, query.FieldPosition, position)
	if err != nil {
		return nil, s.fail("find_by_position", err)
	}
	return s.list(ctx, "find_by_position", q)
}

func (s *service) Search(ctx context.Context, r query.Request) (*employee.Page, error) {
	q, err := query.Build(r)
	if err != nil {
		return nil, s.fail("search", err)
	}
	return s.list(ctx, "search", q)
}

// list runs the windowed read and the total count concurrently. The two
// reads are independent; a write racing between them may skew total.
func (s *service) list(ctx context.Context, op string, q *query.Query) (*employee.Page, error) {
	start := time.Now()
	defer func() { metrics.ListDuration.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	var (
		data  []*employee.Employee
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.store.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, q.Predicate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(op, err)
	}
	if data == nil {
		data = []*employee.Employee{}
	}
	s.ok(op)
	return &employee.Page{
		Data: data,
		Pagination: employee.Pagination{
			Total: total,
			Page:  q.Page,
			Limit: q.Limit,
			Pages: query.Pages(total, q.Limit),
		},
	}, nil
}

func (s *service) ok(op string) {
	metrics.Operations.WithLabelValues(op, "ok").Inc()
}

// fail logs and counts err, and returns it as an *apperr.Error.
func (s *service) fail(op string, err error) error {
	if _, ok := apperr.As(err); !ok {
		err = apperr.Wrap(err, apperr.ErrInternal, op+" failed")
	}
	code := apperr.Code(err)
	metrics.Operations.WithLabelValues(op, code).Inc()
	switch code {
	case apperr.ErrNotFound.Code, apperr.ErrInvalidArgument.Code:
		logger.Debugf("%s: %v", op, err)
	case apperr.ErrConflict.Code:
		logger.Warnf("%s: %v", op, err)
	default:
		logger.Errorf("%s: %v (cause: %v)", op, err, errors.Unwrap(err))
	}
	return err
}
