// Package rpc defines the appreg.v1.Registry gRPC service. Messages are
// protobuf well-known types: applications travel as google.protobuf.Struct
// in the same JSON shape the HTTP API serves.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "appreg.v1.Registry"

// Full method names.
const (
	CreateApplicationMethod = "/" + ServiceName + "/CreateApplication"
	GetApplicationMethod    = "/" + ServiceName + "/GetApplication"
	ListApplicationsMethod  = "/" + ServiceName + "/ListApplications"
	HealthMethod            = "/" + ServiceName + "/Health"
)

// RegistryServer is the server API for the Registry service.
type RegistryServer interface {
	CreateApplication(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetApplication(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListApplications(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Health(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterRegistryServer registers srv on s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&RegistryServiceDesc, srv)
}

// RegistryServiceDesc is the grpc.ServiceDesc for the Registry service.
var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateApplication", Handler: createApplicationHandler},
		{MethodName: "GetApplication", Handler: getApplicationHandler},
		{MethodName: "ListApplications", Handler: listApplicationsHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appreg/v1/registry.proto",
}

func createApplicationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).CreateApplication(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateApplicationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).CreateApplication(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getApplicationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).GetApplication(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetApplicationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).GetApplication(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listApplicationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).ListApplications(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListApplicationsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).ListApplications(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// RegistryClient is the client API for the Registry service.
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryClient returns a client that issues calls over cc.
func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func (c *RegistryClient) CreateApplication(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CreateApplicationMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) GetApplication(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetApplicationMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) ListApplications(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListApplicationsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, HealthMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplicationToStruct converts an application to its Struct form.
func ApplicationToStruct(app *model.Application) (*structpb.Struct, error) {
	data, err := json.Marshal(app)
	if err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	return structpb.NewStruct(m)
}

// StructToApplication converts a Struct back to an application.
func StructToApplication(s *structpb.Struct) (*model.Application, error) {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	var app model.Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	app.Normalize()
	return &app, nil
}

// ApplicationsToList converts a slice of applications to a ListValue of
// Structs.
func ApplicationsToList(apps []*model.Application) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(apps))
	for _, app := range apps {
		s, err := ApplicationToStruct(app)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}

// ListToApplications converts a ListValue of Structs to applications.
func ListToApplications(l *structpb.ListValue) ([]*model.Application, error) {
	apps := make([]*model.Application, 0, len(l.GetValues()))
	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("applications[%d]: expected object", i)
		}
		app, err := StructToApplication(s)
		if err != nil {
			return nil, fmt.Errorf("applications[%d]: %w", i, err)
		}
		apps = append(apps, app)
	}
	return apps, nil
}
