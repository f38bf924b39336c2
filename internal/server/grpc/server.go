package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"

	jobsv1 "github.com/sbischoff-ai/exobrain/api/jobs/v1"
)

// Server owns the gRPC server instance hosting the job ingress service.
type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// New constructs a gRPC server and registers the job service.
func New(svc *JobService, opts ...grpc.ServerOption) *Server {
	s := &Server{grpc: grpc.NewServer(opts...)}
	jobsv1.RegisterJobOrchestratorServer(s.grpc, svc)
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Serve serves on an existing listener until it fails or the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.lis = lis
	return s.grpc.Serve(lis)
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
