package repository

import (
	"context"
	"errors"
	"regexp"
	"sort"

	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements employee.Store on a MongoDB collection. Identifiers
// are stored as ObjectIDs in _id and exposed as hex strings.
// Indexes (unique email, name+surnames, department, position, isDeleted)
// are created by database.EnsureEmployeeIndexes, not here.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

var _ employee.Store = (*MongoRepo)(nil)

// employeeDoc is the stored shape: the record body plus its ObjectID.
type employeeDoc struct {
	ID                primitive.ObjectID `bson:"_id"`
	employee.Employee `bson:",inline"`
}

func (d *employeeDoc) toEmployee() *employee.Employee {
	e := d.Employee
	e.ID = d.ID.Hex()
	return &e
}

func (m *MongoRepo) InsertOne(ctx context.Context, e *employee.Employee) (string, error) {
	doc := employeeDoc{ID: primitive.NewObjectID(), Employee: *e}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return "", translate(err, "insert employee")
	}
	e.ID = doc.ID.Hex()
	return e.ID, nil
}

func (m *MongoRepo) InsertMany(ctx context.Context, es []*employee.Employee) ([]employee.ItemOutcome, error) {
	docs := make([]interface{}, len(es))
	out := make([]employee.ItemOutcome, len(es))
	for i, e := range es {
		id := primitive.NewObjectID()
		docs[i] = employeeDoc{ID: id, Employee: *e}
		out[i] = employee.ItemOutcome{Index: i, ID: id.Hex()}
	}

	_, err := m.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		failed, ok := writeErrors(err)
		if !ok {
			return nil, translate(err, "insert employees")
		}
		for idx, werr := range failed {
			if idx >= 0 && idx < len(out) {
				out[idx].ID = ""
				out[idx].Error = werr
			}
		}
	}
	for i := range out {
		if out[i].Error == nil {
			es[i].ID = out[i].ID
		}
	}
	return out, nil
}

func (m *MongoRepo) UpdateOne(ctx context.Context, filter query.Predicate, set employee.Changes) (*employee.UpdateResult, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	res, err := m.col.UpdateOne(ctx, f, bson.M{"$set": toSet(set)})
	if err != nil {
		return nil, translate(err, "update employee")
	}
	return &employee.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (m *MongoRepo) BulkUpdate(ctx context.Context, ops []employee.UpdateOp) (*employee.BulkUpdateResult, error) {
	out := &employee.BulkUpdateResult{}
	models := make([]mongo.WriteModel, 0, len(ops))
	pos := make([]int, 0, len(ops))
	for i, op := range ops {
		f, err := toFilter(op.Filter)
		if err != nil {
			out.Failures = append(out.Failures, employee.ItemOutcome{Index: i, Error: err})
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(f).SetUpdate(bson.M{"$set": toSet(op.Set)}))
		pos = append(pos, i)
	}
	if len(models) == 0 {
		return out, nil
	}

	res, err := m.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if res != nil {
		out.MatchedCount = res.MatchedCount
		out.ModifiedCount = res.ModifiedCount
	}
	if err != nil {
		failed, ok := writeErrors(err)
		if !ok {
			return nil, translate(err, "bulk update employees")
		}
		for idx, werr := range failed {
			out.Failures = append(out.Failures, employee.ItemOutcome{Index: pos[idx], Error: werr})
		}
	}
	sortOutcomes(out.Failures)
	return out, nil
}

func (m *MongoRepo) UpdateMany(ctx context.Context, filter query.Predicate, set employee.Changes) (*employee.UpdateResult, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	res, err := m.col.UpdateMany(ctx, f, bson.M{"$set": toSet(set)})
	if err != nil {
		return nil, translate(err, "update employees")
	}
	return &employee.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (m *MongoRepo) FindOne(ctx context.Context, filter query.Predicate) (*employee.Employee, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	var doc employeeDoc
	if err := m.col.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.Newf(apperr.ErrNotFound, "employee not found")
		}
		return nil, translate(err, "find employee")
	}
	return doc.toEmployee(), nil
}

func (m *MongoRepo) Find(ctx context.Context, q *query.Query) ([]*employee.Employee, error) {
	f, err := toFilter(q.Predicate)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(toSort(q.Sort)).SetSkip(q.Skip).SetLimit(q.Limit)
	cur, err := m.col.Find(ctx, f, opts)
	if err != nil {
		return nil, translate(err, "list employees")
	}
	defer cur.Close(ctx)
	out := []*employee.Employee{}
	for cur.Next(ctx) {
		var doc employeeDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, translate(err, "decode employee")
		}
		out = append(out, doc.toEmployee())
	}
	if err := cur.Err(); err != nil {
		return nil, translate(err, "list employees")
	}
	return out, nil
}

func (m *MongoRepo) Count(ctx context.Context, filter query.Predicate) (int64, error) {
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := m.col.CountDocuments(ctx, f)
	if err != nil {
		return 0, translate(err, "count employees")
	}
	return n, nil
}

var mongoOps = map[query.Op]string{
	query.OpEq:  "$eq",
	query.OpGte: "$gte",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
}

// toFilter renders a predicate as a Mongo filter document. Conditions on
// the same field share one operator sub-document.
func toFilter(p query.Predicate) (bson.M, error) {
	filter := bson.M{}
	for _, c := range p {
		value := c.Value
		if c.Field == query.FieldID {
			v, err := objectIDs(c.Value)
			if err != nil {
				return nil, err
			}
			value = v
		}
		sub, _ := filter[c.Field].(bson.M)
		if sub == nil {
			sub = bson.M{}
			filter[c.Field] = sub
		}
		if c.Op == query.OpContains {
			s, _ := value.(string)
			sub["$regex"] = regexp.QuoteMeta(s)
			sub["$options"] = "i"
			continue
		}
		op, ok := mongoOps[c.Op]
		if !ok {
			return nil, apperr.Newf(apperr.ErrInvalidArgument, "unsupported operator "+c.Op.String())
		}
		sub[op] = value
	}
	return filter, nil
}

func objectIDs(v any) (any, error) {
	switch x := v.(type) {
	case string:
		oid, err := primitive.ObjectIDFromHex(x)
		if err != nil {
			return nil, invalidID(x)
		}
		return oid, nil
	case []string:
		out := make([]primitive.ObjectID, 0, len(x))
		for _, id := range x {
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, invalidID(id)
			}
			out = append(out, oid)
		}
		return out, nil
	}
	return nil, apperr.Newf(apperr.ErrInvalidArgument, "malformed employee id")
}

func toSort(spec []query.SortField) bson.D {
	d := bson.D{}
	for _, s := range spec {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}

func toSet(set employee.Changes) bson.M {
	m := bson.M{}
	for _, c := range set {
		if c.Field == query.FieldID {
			continue
		}
		m[c.Field] = c.Value
	}
	return m
}

// writeErrors extracts per-entry failures of an unordered bulk request.
// ok is false when err is not a pure per-entry failure (e.g. the server
// was unreachable or a write concern failed).
func writeErrors(err error) (map[int]error, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return nil, false
	}
	out := make(map[int]error, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		werr := errors.New(we.Message)
		if isDuplicateKey(we.Code) {
			out[we.Index] = apperr.Wrap(werr, apperr.ErrConflict, "email already exists")
		} else {
			out[we.Index] = apperr.Wrap(werr, apperr.ErrInternal, "write rejected")
		}
	}
	return out, true
}

func sortOutcomes(o []employee.ItemOutcome) {
	sort.Slice(o, func(i, j int) bool { return o[i].Index < o[j].Index })
}

func isDuplicateKey(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

// translate maps driver errors onto the apperr taxonomy.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return apperr.Wrap(err, apperr.ErrConflict, "email already exists")
	case mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected):
		return apperr.Wrap(err, apperr.ErrStorageUnavailable, op+": storage unavailable")
	}
	return apperr.Wrap(err, apperr.ErrInternal, op+" failed")
}
