// Package bootstrap builds the adapters shared by the http and indexer commands.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/objectstore"
	memory "github.com/singsphere/jukebox/internal/infrastructure/repository"
	"github.com/singsphere/jukebox/internal/infrastructure/searchindex"
	"github.com/singsphere/jukebox/internal/persistence/db"
	"github.com/singsphere/jukebox/internal/persistence/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

// recentPlaysPerRoom bounds the in-memory play history used without MongoDB.
const recentPlaysPerRoom = 100

// Check pings one dependency for the readiness endpoint.
type Check = func(ctx context.Context) error

type Dependencies struct {
	Config *configs.Config
	Logger logging.Logger
	Store  *objectstore.S3Store
	Index  domain.SearchIndex
	Audit  domain.PlayAuditRepository
	Checks map[string]Check

	mongo *mongo.Client
}

// Load reads the configuration and starts the logger.
func Load(appName string) (*configs.Config, logging.Logger, error) {
	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewLogger(logging.NewConfig(appName, cfg.Logger))

	return cfg, logger, nil
}

// New connects the object store, the configured search backend and, when
// needed, MongoDB.
func New(ctx context.Context, cfg *configs.Config, logger logging.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		Checks: make(map[string]Check),
	}

	store, err := objectstore.NewS3Store(cfg.S3)
	if err != nil {
		return nil, err
	}
	deps.Store = store
	deps.Checks["s3"] = func(ctx context.Context) error {
		return store.Ping(ctx, cfg.S3.Bucket)
	}

	if cfg.Search.Backend == configs.SearchBackendMongo || cfg.Mongo.AuditEnabled {
		client, err := db.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		deps.mongo = client
		deps.Checks["mongodb"] = func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		}

		logger.Info(logging.MongoDB, logging.Startup, "connected to mongodb", map[logging.ExtraKey]any{
			"database": cfg.Mongo.Database,
		})
	}

	switch cfg.Search.Backend {
	case configs.SearchBackendMongo:
		index := repository.NewSongIndex(deps.mongo.Database(cfg.Mongo.Database))
		if err := index.EnsureIndexes(ctx); err != nil {
			deps.Close(ctx)
			return nil, fmt.Errorf("failed to ensure song index: %w", err)
		}
		deps.Index = index
	default:
		index, err := searchindex.NewOpenSearch(cfg.Search)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.Index = index
		deps.Checks["opensearch"] = index.Ping
	}

	if cfg.Mongo.AuditEnabled {
		audit := repository.NewPlayAuditLogRepository(deps.mongo.Database(cfg.Mongo.Database), cfg.Audit.Retention)
		if err := audit.EnsureIndexes(ctx); err != nil {
			logger.Warn(logging.MongoDB, logging.Audit, "failed to ensure audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		deps.Audit = audit
	} else {
		audit, err := memory.NewPlayAuditLogRepository(recentPlaysPerRoom, cfg.Audit.MaxRooms)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.Audit = audit
	}

	logger.Info(logging.SearchIndex, logging.Startup, "search backend ready", map[logging.ExtraKey]any{
		"backend": cfg.Search.Backend,
		"index":   cfg.Search.Index,
	})

	return deps, nil
}

func (d *Dependencies) Close(ctx context.Context) {
	if d.mongo == nil {
		return
	}
	if err := db.DisconnectMongo(ctx, d.mongo); err != nil {
		d.Logger.Warn(logging.MongoDB, logging.Shutdown, "failed to disconnect mongodb", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
