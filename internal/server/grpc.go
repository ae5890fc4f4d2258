package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/alfredjeanlab/appreg/internal/rpc"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the Registry service, reflection, and returns the server ready to serve.
func NewGRPCServer(registryServer *RegistryServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			registryServer.metrics.UnaryInterceptor,
		),
	)

	rpc.RegisterRegistryServer(srv, registryServer)
	reflection.Register(srv)

	return srv
}
