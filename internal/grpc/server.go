package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

const defaultRecentLimit = 50

type Server struct {
	alerts      repository.AlertRepository
	broadcaster *Broadcaster
	grpcServer  *grpc.Server
}

func NewServer(alerts repository.AlertRepository, broadcaster *Broadcaster) *Server {
	s := &Server{
		alerts:      alerts,
		broadcaster: broadcaster,
		grpcServer:  grpc.NewServer(),
	}
	RegisterAlertServiceServer(s.grpcServer, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// streamFilter is decoded from the request struct. Both fields are optional.
type streamFilter struct {
	minLevel   models.AlertLevel
	sensorType models.SensorType
}

func parseFilter(req *structpb.Struct) (streamFilter, error) {
	var f streamFilter
	fields := req.GetFields()

	if v, ok := fields["min_level"]; ok && v.GetStringValue() != "" {
		level, ok := models.ParseAlertLevel(v.GetStringValue())
		if !ok {
			return f, status.Errorf(codes.InvalidArgument, "unknown min_level %q", v.GetStringValue())
		}
		f.minLevel = level
	}
	if v, ok := fields["type"]; ok && v.GetStringValue() != "" {
		st := models.SensorType(v.GetStringValue())
		if !st.Valid() {
			return f, status.Errorf(codes.InvalidArgument, "unknown sensor type %q", v.GetStringValue())
		}
		f.sensorType = st
	}
	return f, nil
}

func (f streamFilter) match(a *models.Alert) bool {
	if a.Level < f.minLevel {
		return false
	}
	return f.sensorType == "" || a.Type == f.sensorType
}

func (s *Server) StreamAlerts(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	filter, err := parseFilter(req)
	if err != nil {
		return err
	}

	id, ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to alert stream", "subscriber_id", id, "min_level", filter.minLevel)

	for {
		select {
		case <-stream.Context().Done():
			slog.Info("client disconnected from alert stream", "subscriber_id", id)
			return nil
		case a, ok := <-ch:
			if !ok {
				return nil
			}
			if !filter.match(a) {
				continue
			}

			msg, err := AlertToStruct(a)
			if err != nil {
				slog.Error("failed to encode alert", "id", a.ID, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				slog.Error("failed to send alert to stream", "error", err, "subscriber_id", id)
				return err
			}
		}
	}
}

// RecentAlerts returns {"alerts": [...]} newest first. The request accepts
// min_level, type, status and limit.
func (s *Server) RecentAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return nil, err
	}

	opts := repository.AlertFilter{Limit: defaultRecentLimit, MinLevel: &filter.minLevel}
	fields := req.GetFields()
	if v, ok := fields["limit"]; ok && v.GetNumberValue() > 0 {
		opts.Limit = int(v.GetNumberValue())
	}
	if v, ok := fields["status"]; ok && v.GetStringValue() != "" {
		st := models.AlertStatus(v.GetStringValue())
		opts.Status = &st
	}
	if filter.sensorType != "" {
		opts.Type = &filter.sensorType
	}

	alerts, err := s.alerts.ListAlerts(ctx, opts)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list alerts: %v", err)
	}

	list := make([]any, 0, len(alerts))
	for i := range alerts {
		list = append(list, alertFields(&alerts[i]))
	}
	out, err := structpb.NewStruct(map[string]any{"alerts": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode alerts: %v", err)
	}
	return out, nil
}

func alertFields(a *models.Alert) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"type":           string(a.Type),
		"level":          a.Level.String(),
		"value":          a.Value,
		"unit":           a.Unit,
		"location":       a.Location,
		"timestamp":      a.Timestamp.UTC().Format(time.RFC3339),
		"recommendation": a.Recommendation,
		"description":    a.Description,
		"status":         string(a.Status),
	}
}

func AlertToStruct(a *models.Alert) (*structpb.Struct, error) {
	return structpb.NewStruct(alertFields(a))
}

// AlertFromStruct is the inverse of AlertToStruct.
func AlertFromStruct(s *structpb.Struct) (*models.Alert, error) {
	f := s.GetFields()
	level, ok := models.ParseAlertLevel(f["level"].GetStringValue())
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown level %q", f["level"].GetStringValue())
	}
	ts, err := time.Parse(time.RFC3339, f["timestamp"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad timestamp: %v", err)
	}
	return &models.Alert{
		ID:             f["id"].GetStringValue(),
		Type:           models.SensorType(f["type"].GetStringValue()),
		Level:          level,
		Value:          f["value"].GetNumberValue(),
		Unit:           f["unit"].GetStringValue(),
		Location:       f["location"].GetStringValue(),
		Timestamp:      ts,
		Recommendation: f["recommendation"].GetStringValue(),
		Description:    f["description"].GetStringValue(),
		Status:         models.AlertStatus(f["status"].GetStringValue()),
	}, nil
}
