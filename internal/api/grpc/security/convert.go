package security

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	service "github.com/oshokin/catpoint/internal/service/security"
)

// Field names shared by requests and responses.
const (
	fieldName         = "name"
	fieldType         = "type"
	fieldActive       = "active"
	fieldAlarmStatus  = "alarm_status"
	fieldArmingStatus = "arming_status"
	fieldSensors      = "sensors"
)

// ErrMalformedMessage is returned when a struct misses a required field.
var ErrMalformedMessage = errors.New("malformed message")

// SensorToProto converts a sensor into a struct with name, type and active fields.
func SensorToProto(sensor domain.Sensor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldName:   structpb.NewStringValue(sensor.Name),
			fieldType:   structpb.NewStringValue(sensor.Type.String()),
			fieldActive: structpb.NewBoolValue(sensor.Active),
		},
	}
}

// SensorFromProto converts a struct back into a sensor. The active field is optional.
func SensorFromProto(in *structpb.Struct) (domain.Sensor, error) {
	fields := in.GetFields()

	name, ok := fields[fieldName].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return domain.Sensor{}, fmt.Errorf("%w: sensor name is missing", ErrMalformedMessage)
	}

	typeName, ok := fields[fieldType].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return domain.Sensor{}, fmt.Errorf("%w: sensor type is missing", ErrMalformedMessage)
	}

	sensorType, err := domain.ParseSensorType(typeName.StringValue)
	if err != nil {
		return domain.Sensor{}, err
	}

	sensor := domain.NewSensor(name.StringValue, sensorType)
	sensor.Active = fields[fieldActive].GetBoolValue()

	return sensor, nil
}

// SensorsToProto converts sensors into a list of structs.
func SensorsToProto(sensors []domain.Sensor) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(sensors))
	for _, sensor := range sensors {
		values = append(values, structpb.NewStructValue(SensorToProto(sensor)))
	}

	return &structpb.ListValue{Values: values}
}

// SensorsFromProto converts a list of structs back into sensors.
func SensorsFromProto(in *structpb.ListValue) ([]domain.Sensor, error) {
	sensors := make([]domain.Sensor, 0, len(in.GetValues()))

	for _, value := range in.GetValues() {
		sensor, err := SensorFromProto(value.GetStructValue())
		if err != nil {
			return nil, err
		}

		sensors = append(sensors, sensor)
	}

	return sensors, nil
}

// StatusToProto converts the full security status into a struct.
func StatusToProto(status *service.Status) *structpb.Struct {
	if status == nil {
		return &structpb.Struct{}
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldAlarmStatus:  structpb.NewStringValue(status.Alarm.String()),
			fieldArmingStatus: structpb.NewStringValue(status.Arming.String()),
			fieldSensors:      structpb.NewListValue(SensorsToProto(status.Sensors)),
		},
	}
}

// StatusFromProto converts a struct back into the security status.
func StatusFromProto(in *structpb.Struct) (*service.Status, error) {
	fields := in.GetFields()

	alarm, err := domain.ParseAlarmStatus(fields[fieldAlarmStatus].GetStringValue())
	if err != nil {
		return nil, err
	}

	arming, err := domain.ParseArmingStatus(fields[fieldArmingStatus].GetStringValue())
	if err != nil {
		return nil, err
	}

	sensors, err := SensorsFromProto(fields[fieldSensors].GetListValue())
	if err != nil {
		return nil, err
	}

	return &service.Status{
		Alarm:   alarm,
		Arming:  arming,
		Sensors: sensors,
	}, nil
}
