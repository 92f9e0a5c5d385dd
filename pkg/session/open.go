package session

import (
	"context"
	"path/filepath"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string `toml:"backend" yaml:"backend"`
	// Dir is the FileStore directory and the default location of the
	// SQLite database.
	Dir           string `toml:"dir" yaml:"dir"`
	SQLitePath    string `toml:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
	MongoURI      string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database" yaml:"mongo_database"`
}

// Open creates the store described by cfg. An empty backend means memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			dir := cfg.Dir
			if dir == "" {
				fs, err := NewFileStore("")
				if err != nil {
					return nil, err
				}
				dir = fs.Path()
			}
			path = filepath.Join(dir, "sessions.db")
		}
		return OpenSQLite(ctx, path)
	case BackendRedis:
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		return DialRedisStore(ctx, addr, cfg.RedisPassword, cfg.RedisDB)
	case BackendMongo:
		uri, db := cfg.MongoURI, cfg.MongoDatabase
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		if db == "" {
			db = "dynsvg"
		}
		return DialMongoStore(ctx, uri, db)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown session backend %q", cfg.Backend)
	}
}
