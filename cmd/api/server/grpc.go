package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/pkg/logger"
)

// SetupGRPC creates the gRPC server exposing grpc.health.v1
func SetupGRPC(health *grpcadapter.HealthService, l *zap.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logger.RequestIDInterceptor()),
	)
	health.Register(grpcServer)

	l.Debug("gRPC health service registered", zap.String("service", grpcadapter.UserServiceName))
	return grpcServer
}
