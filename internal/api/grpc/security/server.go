package security

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	service "github.com/oshokin/catpoint/internal/service/security"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	Status(ctx context.Context) (*service.Status, error)
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor domain.Sensor) error
	HandleSensorActivation(ctx context.Context, sensor domain.Sensor, active bool) error
	HandleSensorDeactivation(ctx context.Context, sensor domain.Sensor) error
	ProcessImage(ctx context.Context, frame []byte) error
	AddStatusListener(listener service.StatusListener) error
	RemoveStatusListener(listener service.StatusListener)
}

// Server implements SecurityServiceServer on top of a Service.
type Server struct {
	// service provides the business logic.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(svc Service) *Server {
	return &Server{
		service: svc,
	}
}

// GetStatus returns alarm status, arming status and sensors.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.status(ctx)
}

// SetArmingStatus arms or disarms the system.
func (s *Server) SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	arming, err := domain.ParseArmingStatus(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.SetArmingStatus(ctx, arming); err != nil {
		return nil, toStatusError(ctx, "set arming status", err)
	}

	return s.status(ctx)
}

// ListSensors returns all sensors.
func (s *Server) ListSensors(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	sensors, err := s.service.Sensors(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "list sensors", err)
	}

	return SensorsToProto(sensors), nil
}

// AddSensor registers a sensor.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.AddSensor(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, "add sensor", err)
	}

	return new(emptypb.Empty), nil
}

// RemoveSensor unregisters a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.RemoveSensor(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, "remove sensor", err)
	}

	return new(emptypb.Empty), nil
}

// SetSensorActive applies a sensor activation change with an explicit flag.
func (s *Server) SetSensorActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	if _, ok := req.GetFields()[fieldActive].GetKind().(*structpb.Value_BoolValue); !ok {
		return nil, status.Error(codes.InvalidArgument, "active flag is required")
	}

	if err = s.service.HandleSensorActivation(ctx, sensor, sensor.Active); err != nil {
		return nil, toStatusError(ctx, "change sensor", err)
	}

	return s.status(ctx)
}

// DeactivateSensor marks a sensor inactive based on its stored flag.
func (s *Server) DeactivateSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.HandleSensorDeactivation(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, "deactivate sensor", err)
	}

	return s.status(ctx)
}

// ProcessImage classifies a camera frame.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "frame is required")
	}

	if err := s.service.ProcessImage(ctx, req.GetValue()); err != nil {
		return nil, toStatusError(ctx, "process image", err)
	}

	return s.status(ctx)
}

// WatchStatus streams the current alarm status followed by every change
// until the client goes away. A slow client skips intermediate statuses but
// always receives the latest one.
func (s *Server) WatchStatus(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()

	listener := newStreamListener()
	if err := s.service.AddStatusListener(listener); err != nil {
		return toStatusError(ctx, "watch status", err)
	}

	defer s.service.RemoveStatusListener(listener)

	current, err := s.service.Status(ctx)
	if err != nil {
		return toStatusError(ctx, "read status", err)
	}

	// Anything queued before the read equals current, so repeats are skipped.
	last := current.Alarm
	if err = stream.SendMsg(wrapperspb.String(last.String())); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case alarm := <-listener.updates:
			if alarm == last {
				continue
			}

			last = alarm
			if err = stream.SendMsg(wrapperspb.String(alarm.String())); err != nil {
				return err
			}
		}
	}
}

func (s *Server) status(ctx context.Context) (*structpb.Struct, error) {
	current, err := s.service.Status(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "read status", err)
	}

	return StatusToProto(current), nil
}

// streamListener keeps only the latest alarm status for a watcher, so the
// engine never waits on a slow client.
type streamListener struct {
	updates chan domain.AlarmStatus
}

func newStreamListener() *streamListener {
	return &streamListener{
		updates: make(chan domain.AlarmStatus, 1),
	}
}

// NotifyAlarmStatus implements service.StatusListener by replacing any
// status the watcher has not picked up yet.
func (l *streamListener) NotifyAlarmStatus(_ context.Context, alarm domain.AlarmStatus) {
	for {
		select {
		case l.updates <- alarm:
			return
		default:
		}

		select {
		case <-l.updates:
		default:
		}
	}
}

func sensorFromRequest(req *structpb.Struct) (domain.Sensor, error) {
	if req == nil {
		return domain.Sensor{}, status.Error(codes.InvalidArgument, "request is required")
	}

	sensor, err := SensorFromProto(req)
	if err != nil {
		return domain.Sensor{}, status.Error(codes.InvalidArgument, err.Error())
	}

	return sensor, nil
}

// toStatusError maps engine errors to gRPC codes. Input errors keep their
// message; everything else is logged and reported as Internal.
func toStatusError(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptySensorName),
		errors.Is(err, domain.ErrUnknownSensorType),
		errors.Is(err, domain.ErrUnknownArmingStatus),
		errors.Is(err, service.ErrInvalidArmingStatus),
		errors.Is(err, classifier.ErrEmptyFrame):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.ErrorKV(ctx, "Security operation failed", "operation", operation, "error", err)

		return status.Errorf(codes.Internal, "unable to %s", operation)
	}
}
