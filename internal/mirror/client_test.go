package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

type doneToken struct {
	mqtt.Token
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

// stallToken never completes until release is closed.
type stallToken struct {
	mqtt.Token
	release chan struct{}
}

func (t stallToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}
func (t stallToken) Error() error { return nil }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeBroker struct {
	mqtt.Client
	connected bool
	err       error
	stall     chan struct{}

	mu       sync.Mutex
	messages []published
}

func (f *fakeBroker) IsConnected() bool { return f.connected }

func (f *fakeBroker) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	f.messages = append(f.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	f.mu.Unlock()

	if f.stall != nil {
		return stallToken{release: f.stall}
	}
	return doneToken{err: f.err}
}

func (f *fakeBroker) Disconnect(uint) { f.connected = false }

func (f *fakeBroker) waitMessages(t *testing.T, n int) []published {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.messages) >= n {
			out := append([]published(nil), f.messages...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d messages", n)
	return nil
}

func newTestClient(t *testing.T, broker *fakeBroker, options ...func(*Client)) *Client {
	t.Helper()
	config := DefaultConfig()
	config.Enabled = true
	config.Broker = "tcp://localhost:1883"

	c, err := NewClient(config, "relay-01", options...)
	if err != nil {
		t.Fatal(err)
	}
	c.client = broker
	c.setConnected(broker.connected)
	return c
}

func testCycle() scan.Cycle {
	samples := [2]spectrum.ScanSample{
		{Band: spectrum.LowBand, Level: -60.3, Heading: 123.4},
		{Band: spectrum.HighBand, Level: -72.1, Heading: 123.4},
	}
	return scan.Cycle{
		Number:  7,
		Samples: samples,
		Packets: [2]spectrum.TelemetryPacket{spectrum.NewPacket(samples[0]), spectrum.NewPacket(samples[1])},
	}
}

func TestClient_Record(t *testing.T) {
	broker := &fakeBroker{connected: true}
	c := newTestClient(t, broker)
	defer c.Disconnect()

	if err := c.Record(context.Background(), testCycle()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	messages := broker.waitMessages(t, 2)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	m := messages[1]
	if m.topic != "relay/relay-01/samples" {
		t.Errorf("Expected topic relay/relay-01/samples, got %s", m.topic)
	}
	if m.qos != 0 {
		t.Errorf("Expected QoS 0, got %d", m.qos)
	}

	var msg Message
	if err := json.Unmarshal(m.payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.DeviceID != "relay-01" || msg.Cycle != 7 || msg.Band != spectrum.HighBand || msg.Level != -72.1 {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if len(msg.Packet) != spectrum.PacketSize || msg.Packet[0] != 58 {
		t.Errorf("Expected relayed packet bytes, got % X", msg.Packet)
	}
}

func TestClient_RecordWhileDisconnected(t *testing.T) {
	broker := &fakeBroker{}
	c := newTestClient(t, broker)

	if err := c.Record(context.Background(), testCycle()); err != nil {
		t.Fatalf("Expected disconnected record to be skipped, got %v", err)
	}
	if len(broker.messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(broker.messages))
	}
}

func TestClient_PublishError(t *testing.T) {
	broker := &fakeBroker{connected: true, err: errors.New("not authorized")}
	c := newTestClient(t, broker)

	if err := c.publish([]byte("{}")); err == nil {
		t.Error("Expected publish error")
	}
	if err := c.Record(context.Background(), testCycle()); err != nil {
		t.Errorf("Publish errors should not reach the scan loop, got %v", err)
	}
	c.Disconnect()
}

func TestClient_RecordDoesNotWaitForBroker(t *testing.T) {
	broker := &fakeBroker{connected: true, stall: make(chan struct{})}
	c := newTestClient(t, broker, WithQueueSize(4))

	start := time.Now()
	var dropped int
	for i := 0; i < 5; i++ {
		err := c.Record(context.Background(), testCycle())
		switch {
		case errors.Is(err, ErrQueueFull):
			dropped++
		case err != nil:
			t.Fatalf("Record failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected Record to return without waiting for the broker, took %s", elapsed)
	}
	if dropped == 0 {
		t.Error("Expected samples to be dropped once the queue is full")
	}

	close(broker.stall)
	c.Disconnect()
	if err := c.Record(context.Background(), testCycle()); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped after disconnect, got %v", err)
	}
}

func TestClient_ConnectAfterDisconnect(t *testing.T) {
	broker := &fakeBroker{connected: true}
	c := newTestClient(t, broker)

	c.Disconnect()
	if c.IsConnected() {
		t.Error("Expected disconnected state")
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("Disabled mirror should not need a broker: %v", err)
	}
	c.Enabled = true
	if err := c.Validate(); err == nil {
		t.Error("Expected error for missing broker")
	}
	c.Broker = "tcp://ground:1883"
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
