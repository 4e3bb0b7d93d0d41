package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"learnsphere/internal/core"
	"learnsphere/internal/util"

	"github.com/bytedance/sonic"
	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
)

const (
	statsRedisKey = "learnsphere:stats"
)

func emptyStats() *core.RequestStats {
	return &core.RequestStats{
		RequestHistory: []core.RequestRecord{},
		Models:         map[string]core.ModelStats{},
	}
}

func decodeStats(data []byte) (*core.RequestStats, error) {
	stats := emptyStats()
	if err := sonic.Unmarshal(data, stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}
	if stats.Models == nil {
		stats.Models = map[string]core.ModelStats{}
	}
	return stats, nil
}

// FileStorage implements persistence using JSON files. A sidecar lock file
// serializes writers across processes (server and CLI share the file).
type FileStorage struct {
	filePath string
	lock     *flock.Flock
}

func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.StatsFilePath
	}
	return &FileStorage{
		filePath: filePath,
		lock:     flock.New(filePath + ".lock"),
	}
}

func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(fs.filePath); dir != "." {
		if err := os.MkdirAll(dir, core.DirPermission); err != nil {
			return err
		}
	}
	if err := fs.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", fs.filePath, err)
	}
	defer func() { _ = fs.lock.Unlock() }()

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, core.FilePermissionReadWrite); err != nil {
		return err
	}
	return os.Rename(tmp, fs.filePath)
}

func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	if _, err := os.Stat(fs.filePath); errors.Is(err, os.ErrNotExist) {
		return emptyStats(), nil
	}

	if err := fs.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", fs.filePath, err)
	}
	defer func() { _ = fs.lock.Unlock() }()

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyStats(), nil
		}
		return nil, err
	}
	return decodeStats(data)
}

func (fs *FileStorage) Close() error {
	return fs.lock.Close()
}

// RedisStorage implements persistence using Redis
type RedisStorage struct {
	client *redis.Client
	ctx    context.Context
	key    string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	Key string
}

func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	key := config.Key
	if key == "" {
		key = statsRedisKey
	}
	return &RedisStorage{client: client, ctx: ctx, key: key}, nil
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return err
	}
	return rs.client.Set(rs.ctx, rs.key, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	val, err := rs.client.Get(rs.ctx, rs.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyStats(), nil
		}
		return nil, err
	}
	return decodeStats(val)
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// Options selects a backend. Redis wins over SQLite, SQLite over the JSON file.
type Options struct {
	RedisURL string
	DBPath   string
	FilePath string
}

// OptionsFromEnv reads REDIS_URL, STATS_DB and STATS_FILE.
func OptionsFromEnv() Options {
	return Options{
		RedisURL: os.Getenv("REDIS_URL"),
		DBPath:   os.Getenv("STATS_DB"),
		FilePath: util.GetEnvWithDefault("STATS_FILE", core.StatsFilePath),
	}
}

// InitStorage initializes storage (returns StorageInterface). A backend that
// cannot be reached falls back to file storage.
func InitStorage(opts Options, logger core.Logger) core.StorageInterface {
	if opts.RedisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{URL: opts.RedisURL, Key: statsRedisKey})
		if err == nil {
			logger.Info("Using Redis storage")
			return redisStorage
		}
		logger.Warn("Failed to initialize Redis storage: %v, falling back", err)
	}

	if opts.DBPath != "" {
		sqliteStorage, err := NewSQLiteStorage(opts.DBPath)
		if err == nil {
			logger.Info("Using SQLite storage at %s", opts.DBPath)
			return sqliteStorage
		}
		logger.Warn("Failed to initialize SQLite storage: %v, falling back", err)
	}

	logger.Info("Using file storage at %s", opts.FilePath)
	return NewFileStorage(opts.FilePath)
}
