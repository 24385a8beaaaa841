// Package commands holds the taskbot command line.
package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskbot/internal/config"
	"taskbot/internal/database"
	"taskbot/internal/session"

	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskbot",
		Short: "Conversational task manager with deadlines and priorities.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addServe(topLevel)
	addMigrate(topLevel)
}

func openDatabase(cfg *config.Config) (*database.DatabasePool, error) {
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        cfg.GetDatabaseLogLevel(),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Printf("✅ Connected to %s database", cfg.Database.Driver)
	return pool, nil
}

// sessionBackend is a session store the server can also health-check and close.
type sessionBackend interface {
	session.Store
	Health(ctx context.Context) error
	Stats() map[string]interface{}
	Close() error
}

func openSessions(cfg *config.Config) (sessionBackend, error) {
	if cfg.Session.Backend == "memory" {
		log.Printf("🧠 Using in-memory dialog sessions (TTL %v)", cfg.Session.TTL)
		return session.NewMemoryStore(cfg.Session.TTL, cfg.Session.CleanupInterval), nil
	}

	store := session.NewRedisStore(&session.RedisConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		TTL:          cfg.Session.TTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Health(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.GetRedisAddr(), err)
	}
	log.Printf("✅ Connected to Redis at %s", cfg.GetRedisAddr())
	return store, nil
}
