// Package app opens the stores and helpers a process needs for the
// configured backend.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/config"
	"github.com/kstielfps/VATImposter/internal/repository"
)

type App struct {
	RoomRepo     repository.RoomRepo
	WordRepo     repository.WordGroupRepo
	RoomCache    cache.RoomCache
	RoomLocker   cache.RoomLocker
	NudgeLimiter cache.NudgeLimiter

	closers []func(context.Context) error
}

// Open connects Redis (when configured) and the store backend.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.RoomCache = cache.NewRoomCache(rdb)
		a.RoomLocker = cache.NewRoomLocker(rdb)
		a.NudgeLimiter = cache.NewNudgeLimiter(rdb, cfg.NudgeInterval)
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	} else {
		a.RoomCache = cache.NewMemoryRoomCache()
		a.RoomLocker = cache.NewLocalRoomLocker()
		a.NudgeLimiter = cache.NewLocalNudgeLimiter(cfg.NudgeInterval)
		log.Warn().Msg("REDIS_ADDR not set, using in-process lock and limiter")
	}

	var err error
	switch cfg.StoreBackend {
	case config.BackendMemory:
		a.RoomRepo = repository.NewMemoryRoomRepo(a.RoomLocker)
		a.WordRepo = repository.NewMemoryWordGroupRepo()
	case config.BackendMongo:
		err = a.openMongo(ctx, cfg)
	case config.BackendPostgres:
		err = a.openSQL(postgres.Open(cfg.DatabaseURL))
	case config.BackendSQLite:
		err = a.openSQL(sqlite.Open(cfg.SQLitePath))
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("store ready")
	return a, nil
}

func (a *App) openMongo(ctx context.Context, cfg *config.Config) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)
	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.MongoDB)
	a.RoomRepo = repository.NewRoomRepo(db, a.RoomLocker)
	a.WordRepo = repository.NewWordGroupRepo(db)
	return nil
}

func (a *App) openSQL(dialector gorm.Dialector) error {
	db, err := repository.OpenSQL(dialector)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	a.RoomRepo = repository.NewSQLRoomRepo(db, a.RoomLocker)
	a.WordRepo = repository.NewSQLWordGroupRepo(db)
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("failed to close connection")
		}
	}
	a.closers = nil
}
