// Package grpc hosts the gRPC health endpoint used by process supervisors.
package grpc

import (
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves the standard gRPC health service on its own listener.
type HealthServer struct {
	listener net.Listener
	server   *gogrpc.Server
	health   *health.Server
	serveErr chan error
}

// ListenHealth binds addr and registers the health service. Every named
// service starts NOT_SERVING until SetServing flips it.
func ListenHealth(addr string, services ...string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on health addr %s: %w", addr, err)
	}
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return &HealthServer{
		listener: listener,
		server:   server,
		health:   healthServer,
		serveErr: make(chan error, 1),
	}, nil
}

// Addr returns the bound listener address.
func (h *HealthServer) Addr() string {
	if h == nil || h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// SetServing updates the status reported for service ("" is the overall status).
func (h *HealthServer) SetServing(service string, serving bool) {
	if h == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
}

// Start serves in the background until Stop is called.
func (h *HealthServer) Start() {
	go func() {
		h.serveErr <- h.server.Serve(h.listener)
	}()
}

// Stop marks every service NOT_SERVING and drains the server.
func (h *HealthServer) Stop() error {
	if h == nil {
		return nil
	}
	h.health.Shutdown()
	h.server.GracefulStop()
	select {
	case err := <-h.serveErr:
		if err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
			return fmt.Errorf("serve health: %w", err)
		}
	default:
	}
	return nil
}
