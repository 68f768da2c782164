// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/repository"
	"yatube/internal/seed"
	"yatube/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema  bool
	SeedBuiltIns bool
}

// OptionsFromConfig is what the server uses: schema and built-in groups per config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{ApplySchema: true, SeedBuiltIns: cfg.SeedBuiltinGroups}
}

// InitRuntime connects to the database and Redis, brings the schema up to date and
// optionally seeds the built-in groups. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			closeDB(db)
			return nil, nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	rdb := cache.Connect(ctx, cfg.RedisURL)

	if opts.SeedBuiltIns {
		groups := service.NewGroupService(repository.NewGroupRepository(db), cache.NewStore(rdb))
		n, err := seed.Groups(ctx, groups)
		if err != nil {
			closeDB(db)
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, nil, fmt.Errorf("failed to seed built-in groups: %w", err)
		}
		log.Printf("built-in groups ensured (%d)", n)
	}

	return db, rdb, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
