package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UserServiceName is the health service name reported for the user API.
const UserServiceName = "user.UserService"

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService publishes grpc.health.v1 statuses that follow backend reachability.
type HealthService struct {
	server *health.Server
	pinger Pinger
	log    *zap.Logger
	last   healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthService creates a health service. Status starts as NOT_SERVING
// until the first probe succeeds.
func NewHealthService(pinger Pinger, log *zap.Logger) *HealthService {
	h := &HealthService{
		server: health.NewServer(),
		pinger: pinger,
		log:    log,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *HealthService) Register(s ggrpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings the backend once and updates the published status.
func (h *HealthService) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		if h.last != status {
			h.log.Warn("persistence backend unreachable", zap.Error(err))
		}
	} else if h.last != status {
		h.log.Info("persistence backend reachable")
	}

	h.set(status)
	return status
}

// Run probes immediately and then every interval until ctx is done.
func (h *HealthService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		h.Probe(probeCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthService) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.last = status
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(UserServiceName, status)
}
