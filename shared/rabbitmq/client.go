package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection and topology configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	// DeadLetterExchange receives messages the consumer rejects without
	// requeue. Empty disables dead lettering.
	DeadLetterExchange string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublisherConfirms  bool
}

// URI returns the AMQP connection string
func (c *Config) URI() string {
	vhost := strings.TrimPrefix(c.VHost, "/")
	if c.VHost == "/" || c.VHost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// DeadLetterQueue names the queue bound to the dead letter exchange
func (c *Config) DeadLetterQueue() string {
	return c.QueueName + ".dead"
}

var (
	// ErrNotConnected is returned when the client has no open channel
	ErrNotConnected = errors.New("not connected to RabbitMQ")
	// ErrPublishNacked is returned when the broker refuses a confirmed publish
	ErrPublishNacked = errors.New("message was nacked by the broker")
	// ErrClientClosed is returned when a reconnect finishes after Close
	ErrClientClosed = errors.New("RabbitMQ client closed")
)

const defaultReconnectInterval = 5 * time.Second

// Message is a single outbound message
type Message struct {
	Body        []byte
	ContentType string
	MessageID   string
	Headers     map[string]interface{}
}

// Client holds one connection and one channel. The channel is shared by
// publishers and consumers and guarded by mu. When the broker drops the
// channel the client reconnects in the background until Close is called.
type Client struct {
	mu          sync.Mutex
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	isConnected bool
	closed      bool
	done        chan struct{}
	redial      func() error
}

// NewClient connects, declares the topology and returns a ready client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
	client.redial = client.connect

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

func (c *Client) dial() (*amqp.Connection, error) {
	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := amqp.DialConfig(c.config.URI(), amqpConfig)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		c.logger.Warn("RabbitMQ not reachable yet",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func (c *Client) connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if c.config.PublisherConfirms {
		if err := channel.Confirm(false); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable publisher confirms: %w", err)
		}
	}

	if err := declareTopology(channel, c.config); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare topology: %w", err)
	}

	closeChan := channel.NotifyClose(make(chan *amqp.Error, 1))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.channel = channel
	c.isConnected = true
	c.mu.Unlock()

	go c.watchClose(closeChan)

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
		slog.Bool("publisher_confirms", c.config.PublisherConfirms),
		slog.String("dead_letter_exchange", c.config.DeadLetterExchange),
	)

	return nil
}

// watchClose marks the client disconnected once the broker closes the channel
// and starts reconnecting. A nil close means Close was called.
func (c *Client) watchClose(closeChan <-chan *amqp.Error) {
	amqpErr, ok := <-closeChan
	if !ok || amqpErr == nil {
		return
	}

	c.mu.Lock()
	c.isConnected = false
	stale := c.conn
	c.mu.Unlock()

	c.logger.Error("RabbitMQ channel closed",
		slog.String("reason", amqpErr.Reason),
		slog.Int("code", amqpErr.Code),
	)

	// a channel level exception leaves the connection open
	if stale != nil && !stale.IsClosed() {
		_ = stale.Close()
	}

	c.reconnect()
}

// reconnect retries redial every RetryInterval until it succeeds or the
// client is closed
func (c *Client) reconnect() {
	interval := c.config.RetryInterval
	if interval <= 0 {
		interval = defaultReconnectInterval
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(interval):
		}

		err := c.redial()
		if err == nil {
			c.logger.Info("RabbitMQ reconnected", slog.Int("attempt", attempt))
			return
		}
		if errors.Is(err, ErrClientClosed) {
			return
		}

		c.logger.Warn("RabbitMQ reconnect failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}
}

// declareTopology declares the exchange, the queue and its binding, plus the
// dead letter exchange and queue when configured
func declareTopology(ch *amqp.Channel, cfg *Config) error {
	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", cfg.ExchangeName, err)
	}

	var queueArgs amqp.Table
	if cfg.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(cfg.DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter exchange %q: %w", cfg.DeadLetterExchange, err)
		}
		if _, err := ch.QueueDeclare(cfg.DeadLetterQueue(), true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter queue: %w", err)
		}
		if err := ch.QueueBind(cfg.DeadLetterQueue(), "", cfg.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind dead letter queue: %w", err)
		}
		queueArgs = amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, cfg.QueueDurable, cfg.QueueAutoDelete, cfg.QueueExclusive, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.QueueName, err)
	}

	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Publish sends a persistent message to the configured exchange. With
// publisher confirms enabled it blocks until the broker acks or nacks the
// message, or ctx is done.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	c.mu.Lock()
	if !c.isConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}

	confirmation, err := c.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		c.config.ExchangeName,
		c.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			MessageId:    msg.MessageID,
			Headers:      amqp.Table(msg.Headers),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	// nil when confirms are disabled
	if confirmation != nil {
		acked, err := confirmation.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to wait for publish confirmation: %w", err)
		}
		if !acked {
			return ErrPublishNacked
		}
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("message_id", msg.MessageID),
		slog.Int("body_size", len(msg.Body)),
	)

	return nil
}

// Consume starts a manual-ack consumer on the queue
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return nil, ErrNotConnected
	}

	messages, err := c.channel.Consume(c.config.QueueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	return messages, nil
}

// Qos sets the prefetch count for consumers on the client's channel
func (c *Client) Qos(prefetchCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return ErrNotConnected
	}
	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// HealthCheck reports ErrNotConnected once the channel is gone
func (c *Client) HealthCheck(context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close closes the channel and the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = false
	if !c.closed && c.done != nil {
		close(c.done)
	}
	c.closed = true

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.logger.Warn("Failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection", slog.Any("error", err))
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}
