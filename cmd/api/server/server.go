package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/internal/config"
)

// Server owns the HTTP API and the optional gRPC health endpoint
type Server struct {
	cfg    config.AppConfig
	log    *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server
	Health *grpcadapter.HealthService
}

// New creates a server instance. The gRPC server is only built when
// GRPC_HEALTH_ENABLED is set.
func New(cfg *config.Config, router *gin.Engine, health *grpcadapter.HealthService, l *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg.App,
		log:    l,
		HTTP:   SetupHTTPServer(router, ":"+cfg.App.HTTPPort),
		Health: health,
	}
	if cfg.App.GRPCHealthEnabled {
		s.GRPC = SetupGRPC(health, l)
	}
	return s
}

// Run listens on the configured ports and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}

	httpLis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.HTTP.Addr, err)
	}

	var grpcLis net.Listener
	if s.GRPC != nil {
		grpcLis, err = lc.Listen(ctx, "tcp", ":"+s.cfg.GRPCPort)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen on :%s: %w", s.cfg.GRPCPort, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve serves on the given listeners until ctx is canceled or a server
// fails, then shuts both down within the shutdown timeout.
// grpcLis is ignored when the gRPC server is disabled.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP server running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	if s.GRPC != nil {
		g.Go(func() error {
			s.log.Info("gRPC health server running", zap.String("address", grpcLis.Addr().String()))
			if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			s.Health.Run(gctx, s.cfg.HealthProbeInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("starting graceful shutdown", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		s.log.Error("failed to shutdown HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	if s.GRPC != nil {
		s.Health.Shutdown()

		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.log.Warn("gRPC graceful stop timed out, forcing stop")
			s.GRPC.Stop()
		}
	}

	return errors.Join(errs...)
}
