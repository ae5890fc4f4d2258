package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/appreg/internal/events"
	"github.com/alfredjeanlab/appreg/internal/idgen"
	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/presence"
	"github.com/alfredjeanlab/appreg/internal/rpc"
	"github.com/alfredjeanlab/appreg/internal/store"
)

// RegistryServer serves the application registry over HTTP and gRPC.
type RegistryServer struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	metrics   *Metrics
	agents    *presence.Tracker
	now       func() time.Time
}

// Compile-time check that RegistryServer implements rpc.RegistryServer.
var _ rpc.RegistryServer = (*RegistryServer)(nil)

// NewRegistryServer returns a new RegistryServer backed by the given store and publisher.
func NewRegistryServer(s store.Store, p events.Publisher) *RegistryServer {
	return &RegistryServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		metrics:   NewMetrics(),
		agents:    presence.New(),
		now:       time.Now,
	}
}

// Metrics returns the server's collectors.
func (s *RegistryServer) Metrics() *Metrics { return s.metrics }

// Agents returns the roster of discovery agents reporting to this registry.
func (s *RegistryServer) Agents() *presence.Tracker { return s.agents }

// publish sends an event to NATS and to SSE clients. Both are best-effort;
// failures are logged but do not block the caller.
func (s *RegistryServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// identity is the subset of an application its id is derived from.
type identity struct {
	Name     string                `json:"name"`
	Endpoint []model.EndpointField `json:"endpoint"`
	Binding  string                `json:"binding"`
}

// ApplicationID returns the content-derived id of app: the MD5 hex digest of
// the canonical JSON encoding of its name, endpoint and binding.
func ApplicationID(app *model.Application) (string, error) {
	endpoint := app.Endpoint
	if endpoint == nil {
		endpoint = []model.EndpointField{}
	}
	return idgen.ContentID(identity{Name: app.Name, Endpoint: endpoint, Binding: app.Binding})
}

// decodeApplication parses a registration body. Absent fields take their
// zero value: empty strings and empty lists.
func decodeApplication(body []byte) (*model.Application, error) {
	if len(body) == 0 {
		return nil, inputError("request body is required")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil || probe == nil {
		return nil, inputError("request body must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var app model.Application
	if err := dec.Decode(&app); err != nil {
		return nil, inputError(fmt.Sprintf("malformed application: %v", err))
	}
	app.Normalize()
	if err := model.ValidateApplication(&app); err != nil {
		return nil, inputError(err.Error())
	}
	return &app, nil
}

// createApplication registers the application encoded in body. The id and
// creation time are assigned here; any id in the body is ignored.
// Registering an existing id replaces the record but keeps its creation time.
func (s *RegistryServer) createApplication(ctx context.Context, body []byte) (*model.Application, error) {
	app, err := decodeApplication(body)
	if err != nil {
		return nil, err
	}
	id, err := ApplicationID(app)
	if err != nil {
		return nil, fmt.Errorf("derive id: %w", err)
	}
	app.ID = id
	app.CreatedAt = s.now().UTC()

	// The store keeps the first CreatedAt for an id and writes it back to app.
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("store application: %w", err)
	}
	s.metrics.Registered.WithLabelValues(app.Category).Inc()
	s.publish(ctx, events.TopicApplicationRegistered, events.ApplicationRegistered{Application: app})
	return app, nil
}

// CreateApplication registers the application carried in the request struct.
func (s *RegistryServer) CreateApplication(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	body, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed application: %v", err)
	}
	app, err := s.createApplication(ctx, body)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			return nil, status.Error(codes.InvalidArgument, ie.Error())
		}
		return nil, status.Errorf(codes.Internal, "failed to create application: %v", err)
	}
	out, err := rpc.ApplicationToStruct(app)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode application: %v", err)
	}
	return out, nil
}

// GetApplication returns the application with the given id.
func (s *RegistryServer) GetApplication(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	app, err := s.store.GetApplication(ctx, in.GetValue())
	if errors.Is(err, store.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "application not found")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get application: %v", err)
	}
	out, err := rpc.ApplicationToStruct(app)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode application: %v", err)
	}
	return out, nil
}

// ListApplications returns every application in registration order.
func (s *RegistryServer) ListApplications(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	apps, err := s.store.ListApplications(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list applications: %v", err)
	}
	out, err := rpc.ApplicationsToList(apps)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode applications: %v", err)
	}
	return out, nil
}

// Health returns the service health status.
func (s *RegistryServer) Health(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("ok"), nil
}
