package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory employee.Store with the same observable
// semantics as MongoRepo: ObjectID identifiers, a unique email across all
// records, and matched/modified counting. Used by unit tests and as the
// fallback when MongoDB cannot be reached at startup.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*employee.Employee
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*employee.Employee)}
}

var _ employee.Store = (*MemoryRepo)(nil)

func (m *MemoryRepo) InsertOne(ctx context.Context, e *employee.Employee) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(e)
}

func (m *MemoryRepo) InsertMany(ctx context.Context, es []*employee.Employee) ([]employee.ItemOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]employee.ItemOutcome, len(es))
	for i, e := range es {
		id, err := m.insertLocked(e)
		out[i] = employee.ItemOutcome{Index: i, ID: id, Error: err}
	}
	return out, nil
}

func (m *MemoryRepo) insertLocked(e *employee.Employee) (string, error) {
	if m.emailTakenLocked(e.Email, "") {
		return "", duplicateEmail(e.Email)
	}
	cp := *e
	cp.ID = primitive.NewObjectID().Hex()
	m.store[cp.ID] = &cp
	e.ID = cp.ID
	return cp.ID, nil
}

func (m *MemoryRepo) UpdateOne(ctx context.Context, filter query.Predicate, set employee.Changes) (*employee.UpdateResult, error) {
	if err := checkIDs(filter); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(filter, set, 1)
}

func (m *MemoryRepo) BulkUpdate(ctx context.Context, ops []employee.UpdateOp) (*employee.BulkUpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &employee.BulkUpdateResult{}
	for i, op := range ops {
		err := checkIDs(op.Filter)
		var r *employee.UpdateResult
		if err == nil {
			r, err = m.updateLocked(op.Filter, op.Set, 1)
		}
		if err != nil {
			res.Failures = append(res.Failures, employee.ItemOutcome{Index: i, Error: err})
			continue
		}
		res.MatchedCount += r.MatchedCount
		res.ModifiedCount += r.ModifiedCount
	}
	return res, nil
}

func (m *MemoryRepo) UpdateMany(ctx context.Context, filter query.Predicate, set employee.Changes) (*employee.UpdateResult, error) {
	if err := checkIDs(filter); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(filter, set, 0)
}

// updateLocked applies set to at most max matching records (0 = all).
// Either every target is updated or, on an email conflict, none is.
func (m *MemoryRepo) updateLocked(filter query.Predicate, set employee.Changes, max int) (*employee.UpdateResult, error) {
	targets := m.matchLocked(filter)
	if max > 0 && len(targets) > max {
		targets = targets[:max]
	}
	for _, c := range set {
		email, ok := c.Value.(string)
		if c.Field != query.FieldEmail || !ok {
			continue
		}
		// one email cannot be given to several records
		if len(targets) > 1 {
			return nil, duplicateEmail(email)
		}
		for _, e := range targets {
			if m.emailTakenLocked(email, e.ID) {
				return nil, duplicateEmail(email)
			}
		}
	}

	res := &employee.UpdateResult{}
	for _, e := range targets {
		res.MatchedCount++
		if e.Apply(set) {
			res.ModifiedCount++
		}
	}
	return res, nil
}

func (m *MemoryRepo) FindOne(ctx context.Context, filter query.Predicate) (*employee.Employee, error) {
	if err := checkIDs(filter); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := m.matchLocked(filter)
	if len(found) == 0 {
		return nil, apperr.Newf(apperr.ErrNotFound, "employee not found")
	}
	cp := *found[0]
	return &cp, nil
}

func (m *MemoryRepo) Find(ctx context.Context, q *query.Query) ([]*employee.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := m.matchLocked(q.Predicate)
	sort.SliceStable(found, func(i, j int) bool { return q.Less(found[i], found[j]) })

	out := []*employee.Employee{}
	if q.Skip >= int64(len(found)) {
		return out, nil
	}
	end := int64(len(found))
	if q.Limit > 0 && q.Skip+q.Limit < end {
		end = q.Skip + q.Limit
	}
	for _, e := range found[q.Skip:end] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryRepo) Count(ctx context.Context, filter query.Predicate) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchLocked(filter))), nil
}

// matchLocked returns live pointers to matching records in identifier order.
func (m *MemoryRepo) matchLocked(filter query.Predicate) []*employee.Employee {
	out := make([]*employee.Employee, 0)
	for _, e := range m.store {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepo) emailTakenLocked(email, exceptID string) bool {
	for id, e := range m.store {
		if id != exceptID && e.Email == email {
			return true
		}
	}
	return false
}

func duplicateEmail(email string) error {
	return apperr.WithFields(apperr.Newf(apperr.ErrConflict, "email already exists"), map[string]any{"email": email})
}

// checkIDs rejects identifier conditions that are not ObjectID hex strings.
func checkIDs(p query.Predicate) error {
	for _, c := range p {
		if c.Field != query.FieldID {
			continue
		}
		var ids []string
		switch v := c.Value.(type) {
		case string:
			ids = []string{v}
		case []string:
			ids = v
		}
		for _, id := range ids {
			if !primitive.IsValidObjectID(id) {
				return invalidID(id)
			}
		}
	}
	return nil
}

func invalidID(id string) error {
	return apperr.WithFields(apperr.Newf(apperr.ErrInvalidArgument, "malformed employee id"), map[string]any{"id": id})
}
