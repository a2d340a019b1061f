package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEmployeeIndexes(t *testing.T) {
	idx := EmployeeIndexes()
	require.Len(t, idx, 5)
	require.Equal(t, bson.D{{Key: "email", Value: 1}}, idx[0].Keys)
	require.NotNil(t, idx[0].Options.Unique)
	require.True(t, *idx[0].Options.Unique)
	for _, m := range idx[1:] {
		require.Nil(t, m.Options.Unique)
	}
}

func TestEnsureEmployeeIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("created", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		names, err := EnsureEmployeeIndexes(context.Background(), mt.Coll)
		require.NoError(mt, err)
		require.Equal(mt, []string{"email_unique", "name_surnames", "department", "position", "is_deleted"}, names)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Name: "IndexOptionsConflict", Message: "index exists with different options"}))
		_, err := EnsureEmployeeIndexes(context.Background(), mt.Coll)
		require.Error(mt, err)
	})
}
