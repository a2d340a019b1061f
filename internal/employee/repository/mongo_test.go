package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/pkg/apperr"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestToFilter(t *testing.T) {
	q, err := query.Build(query.Request{Name: "a.b", MinAge: intPtr(20), MaxAge: intPtr(30)})
	require.NoError(t, err)

	f, err := toFilter(q.Predicate)
	require.NoError(t, err)
	require.Equal(t, bson.M{
		"name":      bson.M{"$regex": `a\.b`, "$options": "i"},
		"age":       bson.M{"$gte": 20, "$lte": 30},
		"isDeleted": bson.M{"$eq": false},
	}, f)
}

func TestToFilterConvertsIdentifiers(t *testing.T) {
	oid := primitive.NewObjectID()
	f, err := toFilter(query.ByID(oid.Hex()))
	require.NoError(t, err)
	require.Equal(t, bson.M{"$eq": oid}, f["_id"])

	f, err = toFilter(query.WithIDs([]string{oid.Hex()}))
	require.NoError(t, err)
	require.Equal(t, bson.M{"$in": []primitive.ObjectID{oid}}, f["_id"])

	_, err = toFilter(query.WithID("nope"))
	require.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestToSortAndSet(t *testing.T) {
	d := toSort([]query.SortField{{Field: query.FieldAge, Desc: true}, {Field: query.FieldID}})
	require.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "_id", Value: 1}}, d)

	set := toSet(employee.Changes{{Field: query.FieldID, Value: "x"}, {Field: query.FieldCity, Value: "Lima"}})
	require.Equal(t, bson.M{"city": "Lima"}, set)
}

func TestTranslate(t *testing.T) {
	require.Nil(t, translate(nil, "op"))
	require.True(t, errors.Is(translate(context.DeadlineExceeded, "op"), apperr.ErrStorageUnavailable))
	require.True(t, errors.Is(translate(mongo.ErrClientDisconnected, "op"), apperr.ErrStorageUnavailable))
	require.True(t, errors.Is(translate(errors.New("boom"), "op"), apperr.ErrInternal))

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000"}}}
	require.True(t, errors.Is(translate(dup, "op"), apperr.ErrConflict))
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert one", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		r := NewMongoRepo(mt.Coll)
		e := sample("Juan", "juan@x.com", "Tech", 30)
		id, err := r.InsertOne(context.Background(), e)
		require.NoError(mt, err)
		require.True(mt, primitive.IsValidObjectID(id))
		require.Equal(mt, id, e.ID)
	})

	mt.Run("insert one duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))
		r := NewMongoRepo(mt.Coll)
		_, err := r.InsertOne(context.Background(), sample("Juan", "juan@x.com", "Tech", 30))
		require.True(mt, errors.Is(err, apperr.ErrConflict))
	})

	mt.Run("insert many partial", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"}))
		r := NewMongoRepo(mt.Coll)
		in := []*employee.Employee{
			sample("A", "a@x.com", "Tech", 20),
			sample("B", "a@x.com", "Tech", 21),
			sample("C", "c@x.com", "Tech", 22),
		}
		out, err := r.InsertMany(context.Background(), in)
		require.NoError(mt, err)
		require.Len(mt, out, 3)
		require.True(mt, out[0].Succeeded())
		require.True(mt, errors.Is(out[1].Error, apperr.ErrConflict))
		require.Empty(mt, out[1].ID)
		require.Empty(mt, in[1].ID)
		require.True(mt, out[2].Succeeded())
		require.Equal(mt, out[2].ID, in[2].ID)
	})

	mt.Run("find one", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Juan"},
			{Key: "surnames", Value: "Pérez"},
			{Key: "age", Value: 30},
			{Key: "email", Value: "juan@x.com"},
			{Key: "department", Value: "Tech"},
			{Key: "createdAt", Value: now},
			{Key: "isDeleted", Value: false},
		}))
		r := NewMongoRepo(mt.Coll)
		e, err := r.FindOne(context.Background(), query.ByID(oid.Hex()))
		require.NoError(mt, err)
		require.Equal(mt, oid.Hex(), e.ID)
		require.Equal(mt, "Juan", e.Name)
		require.Equal(mt, 30, e.Age)
		require.True(mt, now.Equal(e.CreatedAt))
	})

	mt.Run("find one missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch))
		r := NewMongoRepo(mt.Coll)
		_, err := r.FindOne(context.Background(), query.ByID(primitive.NewObjectID().Hex()))
		require.True(mt, errors.Is(err, apperr.ErrNotFound))
	})

	mt.Run("find", func(mt *mtest.T) {
		first := mtest.CreateCursorResponse(1, "db.employees", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "A"}})
		second := mtest.CreateCursorResponse(0, "db.employees", mtest.NextBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "B"}})
		mt.AddMockResponses(first, second)
		r := NewMongoRepo(mt.Coll)
		q, err := query.Build(query.Request{})
		require.NoError(mt, err)
		list, err := r.Find(context.Background(), q)
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		require.Equal(mt, "A", list[0].Name)
		require.Equal(mt, "B", list[1].Name)
	})

	mt.Run("find empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch))
		r := NewMongoRepo(mt.Coll)
		q, err := query.Build(query.Request{})
		require.NoError(mt, err)
		list, err := r.Find(context.Background(), q)
		require.NoError(mt, err)
		require.NotNil(mt, list)
		require.Empty(mt, list)
	})

	mt.Run("count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}))
		r := NewMongoRepo(mt.Coll)
		n, err := r.Count(context.Background(), query.Predicate{})
		require.NoError(mt, err)
		require.Equal(mt, int64(7), n)
	})

	mt.Run("update one", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		r := NewMongoRepo(mt.Coll)
		res, err := r.UpdateOne(context.Background(), query.WithID(primitive.NewObjectID().Hex()),
			employee.Changes{{Field: query.FieldCity, Value: "Lima"}})
		require.NoError(mt, err)
		require.Equal(mt, int64(1), res.MatchedCount)
		require.Equal(mt, int64(1), res.ModifiedCount)
	})

	mt.Run("update many", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 1},
		))
		r := NewMongoRepo(mt.Coll)
		ids := []string{primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()}
		res, err := r.UpdateMany(context.Background(), query.WithIDs(ids),
			employee.Changes{{Field: query.FieldIsDeleted, Value: true}})
		require.NoError(mt, err)
		require.Equal(mt, int64(2), res.MatchedCount)
		require.Equal(mt, int64(1), res.ModifiedCount)
	})

	mt.Run("bulk update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 2},
		))
		r := NewMongoRepo(mt.Coll)
		set := employee.Changes{{Field: query.FieldAge, Value: 41}}
		res, err := r.BulkUpdate(context.Background(), []employee.UpdateOp{
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
		})
		require.NoError(mt, err)
		require.Equal(mt, int64(2), res.MatchedCount)
		require.Equal(mt, int64(2), res.ModifiedCount)
		require.Empty(mt, res.Failures)
	})

	mt.Run("bulk update rejected entry", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"}))
		r := NewMongoRepo(mt.Coll)
		set := employee.Changes{{Field: query.FieldEmail, Value: "taken@x.com"}}
		res, err := r.BulkUpdate(context.Background(), []employee.UpdateOp{
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
		})
		require.NoError(mt, err)
		require.Len(mt, res.Failures, 1)
		require.Equal(mt, 1, res.Failures[0].Index)
		require.True(mt, errors.Is(res.Failures[0].Error, apperr.ErrConflict))
	})

	mt.Run("bulk update malformed entry", func(mt *mtest.T) {
		// the write error index refers to the submitted models, not the input
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"}))
		r := NewMongoRepo(mt.Coll)
		set := employee.Changes{{Field: query.FieldEmail, Value: "taken@x.com"}}
		res, err := r.BulkUpdate(context.Background(), []employee.UpdateOp{
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
			{Filter: query.WithID("bogus"), Set: set},
			{Filter: query.WithID(primitive.NewObjectID().Hex()), Set: set},
		})
		require.NoError(mt, err)
		require.Len(mt, res.Failures, 2)
		require.Equal(mt, 1, res.Failures[0].Index)
		require.True(mt, errors.Is(res.Failures[0].Error, apperr.ErrInvalidArgument))
		require.Equal(mt, 2, res.Failures[1].Index)
		require.True(mt, errors.Is(res.Failures[1].Error, apperr.ErrConflict))
	})

	mt.Run("bulk update with only malformed entries", func(mt *mtest.T) {
		r := NewMongoRepo(mt.Coll)
		res, err := r.BulkUpdate(context.Background(), []employee.UpdateOp{{Filter: query.WithID("bogus")}})
		require.NoError(mt, err)
		require.Len(mt, res.Failures, 1)
		require.Equal(mt, int64(0), res.MatchedCount)
	})

	mt.Run("command failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 8000, Message: "boom", Name: "AtlasError"}))
		r := NewMongoRepo(mt.Coll)
		_, err := r.Count(context.Background(), query.Predicate{})
		require.Error(mt, err)
		require.False(mt, errors.Is(err, apperr.ErrNotFound))
		_, ok := apperr.As(err)
		require.True(mt, ok)
	})
}

func intPtr(v int) *int { return &v }
