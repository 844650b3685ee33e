package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string `toml:"backend"`

	// file
	Dir string `toml:"dir"`

	// redis
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`

	// mongo
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Open connects the configured backend and wraps it with [WithHooks]. An
// empty Backend means file when Dir is set and memory otherwise.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendMemory
		if cfg.Dir != "" {
			backend = BackendFile
		}
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		s, err = NewFileStore(cfg.Dir)
	case BackendRedis:
		s, err = openRedis(ctx, cfg)
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, errs.New(errs.ErrCodeInvalidInput, "mongo_uri is required for the mongo backend")
		}
		s, err = ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return WithHooks(backend, s), nil
}

func openRedis(ctx context.Context, cfg Config) (Store, error) {
	if cfg.RedisAddr == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "redis_addr is required for the redis backend")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.Wrap(errs.ErrCodeStore, err, "ping redis %s", cfg.RedisAddr)
	}
	return NewRedisStore(client, cfg.RedisPrefix), nil
}
