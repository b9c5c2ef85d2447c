package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// qosAtLeastOnce is used for every subscription and publication.
	qosAtLeastOnce byte = 1
	// defaultConnectTimeout bounds the initial broker connection.
	defaultConnectTimeout = 10 * time.Second
	// defaultPublishTimeout bounds the wait for a publication to be sent.
	defaultPublishTimeout = 5 * time.Second
	// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
	disconnectQuiesce uint = 250

	payloadOnline  = "online"
	payloadOffline = "offline"
)

var (
	// ErrConnectionFailed is returned when the broker can't be reached.
	ErrConnectionFailed = errors.New("mqtt connection failed")
	// ErrSubscribeFailed is returned when a subscription is refused.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")
)

// Client is the part of pahomqtt.Client the bridge uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Engine is the part of the security engine driven by MQTT messages.
type Engine interface {
	HandleSensorActivation(ctx context.Context, sensor domain.Sensor, active bool) error
	ProcessImage(ctx context.Context, frame []byte) error
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
}

// Dial connects to the broker described by cfg. The availability topic is
// set to "offline" as the last will and to "online" once connected.
func Dial(ctx context.Context, cfg config.MQTTConfig) (pahomqtt.Client, error) {
	topics := Topics{Prefix: cfg.TopicPrefix}

	options := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetWill(topics.Availability(), payloadOffline, qosAtLeastOnce, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			c.Publish(topics.Availability(), qosAtLeastOnce, true, payloadOnline)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "error", err)
		})

	client := pahomqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return client, nil
}

// Bridge feeds MQTT messages into the engine and publishes engine
// notifications back to the broker.
type Bridge struct {
	client Client
	engine Engine
	topics Topics
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(client Client, engine Engine, prefix string) *Bridge {
	return &Bridge{
		client: client,
		engine: engine,
		topics: Topics{Prefix: prefix},
	}
}

// Start subscribes to sensor, camera and arming topics. Messages are
// handled with ctx, so its logger fields show up in every handler line.
func (b *Bridge) Start(ctx context.Context) error {
	ctx = logger.WithName(ctx, "mqtt-bridge")

	subscriptions := map[string]func(context.Context, pahomqtt.Message) error{
		b.topics.SensorSetFilter(): b.handleSensor,
		b.topics.CameraFrame():     b.handleFrame,
		b.topics.ArmingSet():       b.handleArming,
	}

	for topic, handle := range subscriptions {
		callback := func(_ pahomqtt.Client, msg pahomqtt.Message) {
			if err := handle(ctx, msg); err != nil {
				logger.ErrorKV(ctx, "Failed to handle MQTT message", "topic", msg.Topic(), "error", err)
			}
		}

		token := b.client.Subscribe(topic, qosAtLeastOnce, callback)
		if !token.WaitTimeout(defaultPublishTimeout) {
			return fmt.Errorf("%w: %s: timeout", ErrSubscribeFailed, topic)
		}

		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}

		logger.DebugKV(ctx, "Subscribed", "topic", topic)
	}

	logger.InfoKV(ctx, "MQTT bridge started", "prefix", b.topics.Prefix)

	return nil
}

// Stop announces the service as offline and disconnects.
func (b *Bridge) Stop() {
	token := b.client.Publish(b.topics.Availability(), qosAtLeastOnce, true, payloadOffline)
	token.WaitTimeout(defaultPublishTimeout)
	b.client.Disconnect(disconnectQuiesce)
}

// NotifyAlarmStatus publishes the alarm status as a retained message.
func (b *Bridge) NotifyAlarmStatus(ctx context.Context, status domain.AlarmStatus) {
	b.publish(ctx, b.topics.AlarmStatus(), true, status.String())
}

// CatDetected publishes a classification result.
func (b *Bridge) CatDetected(ctx context.Context, detected bool) {
	b.publish(ctx, b.topics.CatDetected(), false, FormatActive(detected))
}

// SensorStatusChanged publishes the stored sensor state as a retained message.
func (b *Bridge) SensorStatusChanged(ctx context.Context, sensor domain.Sensor) {
	b.publish(ctx, b.topics.SensorState(sensor), true, FormatActive(sensor.Active))
}

// publish sends without waiting: listeners run under the engine lock.
// Delivery failures are logged from a separate goroutine.
func (b *Bridge) publish(ctx context.Context, topic string, retained bool, payload string) {
	token := b.client.Publish(topic, qosAtLeastOnce, retained, payload)

	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			logger.WarnKV(ctx, "MQTT publish timed out", "topic", topic)

			return
		}

		if err := token.Error(); err != nil {
			logger.ErrorKV(ctx, "MQTT publish failed", "topic", topic, "error", err)
		}
	}()
}

func (b *Bridge) handleSensor(ctx context.Context, msg pahomqtt.Message) error {
	sensor, err := b.topics.ParseSensorSet(msg.Topic())
	if err != nil {
		return err
	}

	active, err := ParseActive(msg.Payload())
	if err != nil {
		return err
	}

	return b.engine.HandleSensorActivation(ctx, sensor, active)
}

func (b *Bridge) handleFrame(ctx context.Context, msg pahomqtt.Message) error {
	return b.engine.ProcessImage(ctx, msg.Payload())
}

func (b *Bridge) handleArming(ctx context.Context, msg pahomqtt.Message) error {
	status, err := domain.ParseArmingStatus(strings.TrimSpace(string(msg.Payload())))
	if err != nil {
		return err
	}

	return b.engine.SetArmingStatus(ctx, status)
}
