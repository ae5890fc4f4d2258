package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/rpc"
)

// GRPCClient implements RegistryClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.RegistryClient
}

// Compile-time check that GRPCClient implements RegistryClient.
var _ RegistryClient = (*GRPCClient)(nil)

// NewGRPCClient connects to the given gRPC address and returns a client.
// Extra dial options are appended after the insecure transport credentials.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewRegistryClient(conn),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	in, err := rpc.ApplicationToStruct(app)
	if err != nil {
		return nil, err
	}
	out, err := c.client.CreateApplication(ctx, in)
	if err != nil {
		return nil, err
	}
	return rpc.StructToApplication(out)
}

func (c *GRPCClient) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	out, err := c.client.GetApplication(ctx, wrapperspb.String(id))
	if err != nil {
		return nil, err
	}
	return rpc.StructToApplication(out)
}

func (c *GRPCClient) ListApplications(ctx context.Context) ([]*model.Application, error) {
	out, err := c.client.ListApplications(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return rpc.ListToApplications(out)
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	out, err := c.client.Health(ctx, &emptypb.Empty{})
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
