// Command indexes creates the employee collection indexes and exits.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/gogotex/employees/internal/config"
	"github.com/gogotex/employees/internal/database"
	"github.com/gogotex/employees/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for connecting and creating indexes")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
	names, err := database.EnsureEmployeeIndexes(ctx, col)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	for _, n := range names {
		logger.Infof("index ready: %s.%s %s", cfg.MongoDB.Database, cfg.MongoDB.Collection, n)
	}
}
