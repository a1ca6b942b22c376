package infrastructure

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"user-crud-service/internal/adapter/db/mongodb"
	"user-crud-service/internal/adapter/db/postgres"
	"user-crud-service/internal/config"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/logger"
)

// Store is a connected persistence backend with its repository.
type Store struct {
	Driver string
	Repo   user.Repository
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connection pool.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// NewStore connects to the backend selected by DB_DRIVER, verifies it is
// reachable, and ensures indexes or migrations are in place.
func NewStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Store, error) {
	switch cfg.App.DBDriver {
	case config.DriverMongo:
		return newMongoStore(ctx, cfg, l)
	case config.DriverPostgres:
		return newSQLStore(ctx, cfg, pgdriver.Open(cfg.DB.DSN()), l)
	case config.DriverSQLite:
		return newSQLStore(ctx, cfg, sqlite.Open(cfg.DB.SQLitePath), l)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.App.DBDriver)
	}
}

func newMongoStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetMaxPoolSize(cfg.Mongo.MaxPoolSize).
		SetServerSelectionTimeout(cfg.Mongo.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	closeClient := func(ctx context.Context) error {
		if err := client.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect MongoDB: %w", err)
		}
		return nil
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = closeClient(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := mongodb.NewUserRepoMongo(client.Database(cfg.Mongo.Database).Collection(mongodb.CollectionName), l)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = closeClient(context.Background())
		return nil, err
	}

	l.Info("MongoDB connected",
		zap.String("database", cfg.Mongo.Database),
		zap.Uint64("max_pool_size", cfg.Mongo.MaxPoolSize),
	)

	return &Store{
		Driver: config.DriverMongo,
		Repo:   repo,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: closeClient,
	}, nil
}

func newSQLStore(ctx context.Context, cfg *config.Config, dialector gorm.Dialector, l *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	closeDB := func(context.Context) error {
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		return nil
	}

	repo := postgres.NewUserRepoPG(db, l)
	if err := repo.Ping(ctx); err != nil {
		_ = closeDB(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = closeDB(ctx)
		return nil, err
	}

	l.Info("database connected",
		zap.String("driver", cfg.App.DBDriver),
		zap.Int("max_open_conns", cfg.DB.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.DB.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.DB.ConnMaxLifetime),
		zap.Duration("conn_max_idle_time", cfg.DB.ConnMaxIdleTime),
	)

	return &Store{
		Driver: cfg.App.DBDriver,
		Repo:   repo,
		ping:   repo.Ping,
		close:  closeDB,
	}, nil
}
