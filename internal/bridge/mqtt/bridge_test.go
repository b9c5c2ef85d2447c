package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

var errTestBroker = errors.New("test broker error")

// doneToken is a pahomqtt.Token that has already completed.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}

// message is a minimal pahomqtt.Message.
type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return qosAtLeastOnce }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient records publications and keeps subscription callbacks.
type fakeClient struct {
	handlers     map[string]pahomqtt.MessageHandler
	published    []published
	subscribeErr error
	disconnected bool
	mu           sync.Mutex
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]pahomqtt.MessageHandler)}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, _ := payload.(string)
	c.published = append(c.published, published{topic: topic, retained: retained, payload: text})

	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	if c.subscribeErr != nil {
		return doneToken{err: c.subscribeErr}
	}

	c.handlers[topic] = callback

	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func (c *fakeClient) deliver(filter, topic, payload string) {
	c.handlers[filter](nil, message{topic: topic, payload: []byte(payload)})
}

type sensorCall struct {
	sensor domain.Sensor
	active bool
}

// fakeEngine records the calls made by the bridge.
type fakeEngine struct {
	sensorCalls []sensorCall
	frames      [][]byte
	arming      []domain.ArmingStatus
}

func (e *fakeEngine) HandleSensorActivation(_ context.Context, sensor domain.Sensor, active bool) error {
	e.sensorCalls = append(e.sensorCalls, sensorCall{sensor: sensor, active: active})

	return nil
}

func (e *fakeEngine) ProcessImage(_ context.Context, frame []byte) error {
	e.frames = append(e.frames, frame)

	return nil
}

func (e *fakeEngine) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	e.arming = append(e.arming, status)

	return nil
}

// TestBridge_Inbound routes sensor, camera and arming messages into the engine.
func TestBridge_Inbound(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	engine := new(fakeEngine)
	bridge := NewBridge(client, engine, "home")

	require.NoError(t, bridge.Start(context.Background()))
	require.Len(t, client.handlers, 3)

	client.deliver("home/sensor/+/+/set", "home/sensor/DOOR/front/set", "open")
	client.deliver("home/sensor/+/+/set", "home/sensor/motion/hall/set", "0")
	// Malformed messages are logged and dropped.
	client.deliver("home/sensor/+/+/set", "home/sensor/SMOKE/attic/set", "1")
	client.deliver("home/sensor/+/+/set", "home/sensor/DOOR/front/set", "maybe")

	client.deliver("home/camera/frame", "home/camera/frame", "jpeg-bytes")
	client.deliver("home/arming/set", "home/arming/set", "armed_away")
	client.deliver("home/arming/set", "home/arming/set", "armed_sometimes")

	require.Equal(t, []sensorCall{
		{sensor: domain.NewSensor("front", domain.Door), active: true},
		{sensor: domain.NewSensor("hall", domain.Motion), active: false},
	}, engine.sensorCalls)
	require.Equal(t, [][]byte{[]byte("jpeg-bytes")}, engine.frames)
	require.Equal(t, []domain.ArmingStatus{domain.ArmedAway}, engine.arming)
}

// TestBridge_Outbound publishes notifications under the prefix.
func TestBridge_Outbound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newFakeClient()
	bridge := NewBridge(client, new(fakeEngine), "home")

	bridge.NotifyAlarmStatus(ctx, domain.Alarm)
	bridge.CatDetected(ctx, true)
	bridge.SensorStatusChanged(ctx, domain.NewSensor("front", domain.Door))
	bridge.Stop()

	require.Equal(t, []published{
		{topic: "home/alarm/status", retained: true, payload: "ALARM"},
		{topic: "home/camera/cat", retained: false, payload: "true"},
		{topic: "home/sensor/DOOR/front/state", retained: true, payload: "false"},
		{topic: "home/availability", retained: true, payload: "offline"},
	}, client.published)
	require.True(t, client.disconnected)
}

// TestBridge_SubscribeError reports refused subscriptions.
func TestBridge_SubscribeError(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.subscribeErr = errTestBroker

	err := NewBridge(client, new(fakeEngine), "home").Start(context.Background())
	require.ErrorIs(t, err, ErrSubscribeFailed)
	require.ErrorIs(t, err, errTestBroker)
}

// TestTopics_ParseSensorSet checks topic parsing edge cases.
func TestTopics_ParseSensorSet(t *testing.T) {
	t.Parallel()

	topics := Topics{Prefix: "catpoint"}
	sensor := domain.NewSensor("back", domain.Window)

	parsed, err := topics.ParseSensorSet(topics.SensorSet(sensor))
	require.NoError(t, err)
	require.Equal(t, sensor, parsed)

	for _, topic := range []string{
		"other/sensor/DOOR/front/set",
		"catpoint/sensor/DOOR/front/state",
		"catpoint/sensor/DOOR//set",
		"catpoint/sensor/DOOR/set",
	} {
		_, err = topics.ParseSensorSet(topic)
		require.ErrorIs(t, err, ErrInvalidTopic, topic)
	}
}

// TestParseActive covers the accepted payload spellings.
func TestParseActive(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"1", "TRUE", " on ", "open", "motion"} {
		active, err := ParseActive([]byte(payload))
		require.NoError(t, err)
		require.True(t, active, payload)
	}

	for _, payload := range []string{"0", "false", "OFF", "closed", "clear"} {
		active, err := ParseActive([]byte(payload))
		require.NoError(t, err)
		require.False(t, active, payload)
	}

	_, err := ParseActive([]byte("ajar"))
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.Equal(t, "true", FormatActive(true))
}
