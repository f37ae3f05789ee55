// Package grpcapi serves the standard gRPC health service for the reconciler.
package grpcapi

import (
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall "".
const ServiceName = "doorsync.Reconciler"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger logrus.FieldLogger
}

func NewServer(logger logrus.FieldLogger, opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger.WithField("component", "grpc"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)

	// Serving until the first reconcile pass says otherwise.
	s.SetServing(true)
	return s
}

// SetServing updates both the overall and the reconciler status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.WithField("status", status.String()).Debug("health updated")
}

// Serve blocks until lis is closed or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.WithField("addr", lis.Addr().String()).Info("grpc health listening")
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains open RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
