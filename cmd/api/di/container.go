package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"user-crud-service/cmd/api/infrastructure"
	"user-crud-service/cmd/api/server"
	"user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/router"
	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/internal/config"
	"user-crud-service/internal/usecase/user"
	redisclient "user-crud-service/pkg/redis"
)

// Container holds the resolved application graph
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       *infrastructure.Store
	RedisClient *redisclient.Client
	Server      *server.Server
}

// NewContainer builds the dependency graph and resolves it. Persistence is
// connected and migrated before this returns.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	dc, err := build(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	steps := []any{
		func(store *infrastructure.Store) { c.Store = store },
		func(rdb *redisclient.Client) { c.RedisClient = rdb },
		func(srv *server.Server) { c.Server = srv },
	}
	for _, step := range steps {
		if err := dc.Invoke(step); err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
			return nil, dig.RootCause(err)
		}
	}

	return c, nil
}

func build(ctx context.Context, cfg *config.Config, l *zap.Logger) (*dig.Container, error) {
	dc := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() *zap.Logger { return l },
		func(cfg *config.Config, l *zap.Logger) (*infrastructure.Store, error) {
			return infrastructure.NewStore(ctx, cfg, l)
		},
		func(s *infrastructure.Store) user.Repository { return s.Repo },
		func(s *infrastructure.Store) grpcadapter.Pinger { return s },
		func(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
			return infrastructure.NewRedisClient(ctx, cfg, l)
		},
		infrastructure.NewEmailLocker,
		func(r user.Repository, l *zap.Logger) user.Usecase { return user.New(r, l) },
		handler.NewUserHandler,
		func(h *handler.UserHandler, cfg *config.Config, l *zap.Logger) *gin.Engine {
			mode := gin.DebugMode
			if cfg.Env == "production" {
				mode = gin.ReleaseMode
			}
			return router.SetupRouter(h, router.Options{ServiceName: cfg.Logger.ServiceName, Mode: mode}, l)
		},
		grpcadapter.NewHealthService,
		server.New,
	}

	for _, p := range providers {
		if err := dc.Provide(p); err != nil {
			return nil, err
		}
	}
	return dc, nil
}

// Close closes Redis and the persistence backend
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Store != nil {
		if err := c.Store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
