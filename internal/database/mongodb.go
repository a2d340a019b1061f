package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri).SetTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EmployeeIndexes are the secondary structures the employee listing relies on.
// The unique email index spans deleted records too.
func EmployeeIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "surnames", Value: 1}}, Options: options.Index().SetName("name_surnames")},
		{Keys: bson.D{{Key: "department", Value: 1}}, Options: options.Index().SetName("department")},
		{Keys: bson.D{{Key: "position", Value: 1}}, Options: options.Index().SetName("position")},
		{Keys: bson.D{{Key: "isDeleted", Value: 1}}, Options: options.Index().SetName("is_deleted")},
	}
}

// EnsureEmployeeIndexes creates the employee indexes. Existing indexes with
// the same definition are left as they are.
func EnsureEmployeeIndexes(ctx context.Context, col *mongo.Collection) ([]string, error) {
	names, err := col.Indexes().CreateMany(ctx, EmployeeIndexes())
	if err != nil {
		return nil, fmt.Errorf("create employee indexes: %w", err)
	}
	return names, nil
}
