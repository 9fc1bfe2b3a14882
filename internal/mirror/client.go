// Package mirror republishes relayed scan samples to an MQTT broker for ground monitoring.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roman-kulish/rf-relay/internal/clock"
	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

var (
	ErrStopped   = errors.New("mirror client stopped")
	ErrQueueFull = errors.New("mirror queue full")
)

const (
	qosAtMostOnce    = 0
	defaultQueueSize = 32 // samples
)

type Config struct {
	Enabled        bool           `yaml:"enabled" json:"enabled"`
	Broker         string         `yaml:"broker" json:"broker"` // e.g. tcp://ground:1883
	ClientID       string         `yaml:"clientID" json:"clientID"`
	TopicPrefix    string         `yaml:"topicPrefix" json:"topicPrefix"`
	PublishTimeout clock.Duration `yaml:"publishTimeout" json:"publishTimeout"`
}

func DefaultConfig() Config {
	return Config{
		ClientID:       "rf-relay",
		TopicPrefix:    "relay",
		PublishTimeout: clock.Duration(time.Second),
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("mirror.Config: broker is required")
	}
	if c.ClientID == "" {
		return errors.New("mirror.Config: client ID is required")
	}
	if c.TopicPrefix == "" {
		return errors.New("mirror.Config: topic prefix is required")
	}
	if c.PublishTimeout <= 0 {
		return errors.New("mirror.Config: publish timeout must be positive")
	}
	return nil
}

// Message is the JSON document published for each sample.
type Message struct {
	DeviceID string `json:"device_id"`
	Cycle    uint64 `json:"cycle"`
	spectrum.ScanSample
	Packet []byte `json:"packet"`
}

// Client publishes every recorded cycle. It implements scan.Recorder.
type Client struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	device  string
	logger  *slog.Logger

	mu        sync.RWMutex
	connected bool

	queue     chan []byte
	startOnce sync.Once
	done      chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ scan.Recorder = (*Client)(nil)

func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger.With("component", "mirror")
	}
}

// WithQueueSize sets how many samples may wait for the broker before new ones are dropped.
func WithQueueSize(n int) func(*Client) {
	return func(c *Client) {
		if n > 0 {
			c.queue = make(chan []byte, n)
		}
	}
}

func NewClient(config Config, deviceID string, options ...func(*Client)) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		topic:   fmt.Sprintf("%s/%s/samples", config.TopicPrefix, deviceID),
		timeout: config.PublishTimeout.Std(),
		device:  deviceID,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:   make(chan []byte, defaultQueueSize),
		done:    make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect starts connecting to the broker and waits for the first connection,
// respecting ctx and Disconnect. Reconnects after that happen in the background.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Record queues each sample of the cycle for publishing and returns without waiting
// for the broker. Cycles recorded while the broker is unreachable are dropped, and so
// are samples that do not fit in the queue.
func (c *Client) Record(_ context.Context, cycle scan.Cycle) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if !c.IsConnected() {
		c.logger.Debug("mqtt not connected, skipping cycle", "cycle", cycle.Number)
		return nil
	}
	c.startOnce.Do(func() { go c.publishLoop() })

	for i, sample := range cycle.Samples {
		packet, _ := cycle.Packets[i].MarshalBinary()
		data, err := json.Marshal(Message{
			DeviceID:   c.device,
			Cycle:      cycle.Number,
			ScanSample: sample,
			Packet:     packet,
		})
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}

		select {
		case c.queue <- data:
		default:
			return fmt.Errorf("%w: dropping %s band sample of cycle %d", ErrQueueFull, sample.Band, cycle.Number)
		}
	}
	return nil
}

func (c *Client) publishLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			return
		case data := <-c.queue:
			if err := c.publish(data); err != nil {
				c.logger.Warn("publishing sample", "topic", c.topic, "error", err)
			}
		}
	}
}

func (c *Client) publish(data []byte) error {
	token := c.client.Publish(c.topic, qosAtMostOnce, false, data)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish timeout for topic %s", c.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish sample: %w", err)
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client. It is safe to call multiple times.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.startOnce.Do(func() { close(c.done) })
	<-c.done

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
