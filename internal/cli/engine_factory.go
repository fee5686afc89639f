package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/adapters/file"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
)

const (
	// EnvRedisAddr selects the Redis store when set.
	EnvRedisAddr = "LATTICE_REDIS_ADDR"
	// EnvEncryptionKey holds a hex encoded AES-256 key for stored projects and archives.
	EnvEncryptionKey = "LATTICE_ENCRYPTION_KEY"
)

// EngineOptions selects the stores behind a CLI engine.
type EngineOptions struct {
	Debug bool
	Smoke bool

	// RedisAddr, when set, keeps projects, archives and locks in Redis.
	RedisAddr string
	// StoreDir keeps projects as JSON files when Redis is not used.
	StoreDir string
	// ArchiveDir keeps archives in a directory when Redis is not used.
	ArchiveDir string
	// ProjectTTL expires Redis projects and archives; zero keeps them.
	ProjectTTL time.Duration
	// EncryptionKey, when set, encrypts stored projects and archives with AES-256-GCM.
	EncryptionKey []byte
	// Redact masks credential-like props before projects are stored.
	Redact bool

	Hooks []domain.LifecycleHooks
}

// createLogger configures the application logger on w, usually Stderr.
// Debug enables debug records; json switches to the JSON handler.
func createLogger(w io.Writer, debug, json bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	format := logging.FormatText
	if json {
		format = logging.FormatJSON
	}
	return logging.NewWriter(w, level, format)
}

// createDebugHooks logs every stage transition.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			logger.Debug("Stage enter", "project_id", e.ProjectID, "build_id", e.BuildID, "stage", e.Stage)
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			logger.Debug("Stage leave", "project_id", e.ProjectID, "build_id", e.BuildID, "stage", e.Stage,
				"duration", e.Duration, "err", e.Err)
		},
	}
}

// createEngine initializes a Lattice engine with standard CLI conventions.
// The returned close func releases store connections.
func createEngine(opts EngineOptions, logger *slog.Logger) (*lattice.Engine, func() error, error) {
	engineOpts := []lattice.Option{
		lattice.WithLogger(logger),
		lattice.WithSmokeTest(opts.Smoke),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, lattice.WithLifecycleHooks(createDebugHooks(logger)))
	}
	for _, h := range opts.Hooks {
		engineOpts = append(engineOpts, lattice.WithLifecycleHooks(h))
	}

	var (
		store   ports.ProjectStore = memory.NewStore()
		blobs   ports.BlobStore    = memory.NewBlobStore()
		closeFn                    = func() error { return nil }
	)
	switch {
	case opts.RedisAddr != "":
		redisOpts := []redis.Option{}
		if opts.ProjectTTL > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(opts.ProjectTTL))
		}
		redisStore := redis.New(opts.RedisAddr, "", 0, redisOpts...)
		if err := redisStore.Client().Ping(context.Background()).Err(); err != nil {
			_ = redisStore.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.RedisAddr, err)
		}
		store = redisStore
		blobs = redis.NewBlobStore(redisStore.Client(), redis.DefaultPrefix, opts.ProjectTTL)
		engineOpts = append(engineOpts, lattice.WithLocker(redis.NewLocker(redisStore.Client(), redis.DefaultPrefix)))
		closeFn = redisStore.Close
		logger.Info("Using redis stores", "address", opts.RedisAddr)
	default:
		if opts.StoreDir != "" {
			store = file.New(opts.StoreDir)
		}
		if opts.ArchiveDir != "" {
			blobs = file.NewBlobStore(opts.ArchiveDir)
		}
	}

	var mws []middleware.Middleware
	if opts.Redact {
		mws = append(mws, middleware.NewRedactMiddleware(middleware.DefaultSecretPatterns))
	}
	if len(opts.EncryptionKey) > 0 {
		cfg := middleware.EncryptionConfig{ActiveKey: opts.EncryptionKey}
		encrypted, err := middleware.NewEncryptedBlobStore(blobs, cfg)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		blobs = encrypted
		mws = append(mws, middleware.NewEncryptionMiddleware(cfg))
		logger.Info("Encrypting stored projects and archives")
	}
	engineOpts = append(engineOpts,
		lattice.WithProjectStore(middleware.Chain(store, mws...)),
		lattice.WithBlobStore(blobs),
	)

	return lattice.New(engineOpts...), closeFn, nil
}

// ParseEncryptionKey decodes a hex encoded 32 byte key. An empty string yields no key.
func ParseEncryptionKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: %w", middleware.ErrKeySize)
	}
	return key, nil
}

// ErrCompileFailed is returned when a compile produced a failed result.
var ErrCompileFailed = errors.New("compile failed")
