package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"souzoku/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second

	// circuitRequeueDelay spaces out redeliveries while replies cannot be sent
	circuitRequeueDelay = time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// RequestHandler turns one request into its reply. It must always return a
// reply; failures go in SimulationReply.Error.
type RequestHandler func(ctx context.Context, req *SimulationRequest) *SimulationReply

type Options struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
	Logger   *log.Logger
}

type Client struct {
	url          string
	exchangeName string
	queueName    string
	prefetch     int
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
	requeueDelay time.Duration

	// publishFn replaces the channel publish in tests
	publishFn func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error
}

func NewClient(opts Options) (*Client, error) {
	c := newClient(opts)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	prefetch := opts.Prefetch
	if prefetch < 1 {
		prefetch = 1
	}
	return &Client{
		url:          opts.URL,
		exchangeName: opts.Exchange,
		queueName:    opts.Queue,
		prefetch:     prefetch,
		logger:       logger.WithComponent(log.ComponentAMQP),
		state:        StateClosed,
		requeueDelay: circuitRequeueDelay,
	}
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := channel.Qos(c.prefetch, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("set QoS: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	// Declare exchange
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = ch.QueueBind(
		queue,    // queue name
		queue,    // routing key
		exchange, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// reconnect dials until it succeeds or ctx is done, backing off between attempts.
func (c *Client) reconnect(ctx context.Context) error {
	c.closeConnection()
	for attempt := 0; ; attempt++ {
		err := c.connect()
		if err == nil {
			c.recordSuccess()
			c.logger.Info("AMQP connection established", "attempt", attempt+1)
			return nil
		}
		c.recordFailure()
		delay := exponentialBackoff(attempt)
		c.logger.Warn("AMQP connection failed, retrying",
			log.FieldError, err.Error(), "attempt", attempt+1, "retry_in", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Connect establishes the connection, retrying until ctx is done.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	c := newClient(opts)
	if err := c.reconnect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.channel
}

// publish sends msg through the circuit breaker.
func (c *Client) publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	if c.publishFn != nil {
		err = c.publishFn(ctx, exchange, key, msg)
	} else if ch := c.currentChannel(); ch == nil {
		err = amqp091.ErrClosed
	} else {
		err = ch.PublishWithContext(ctx, exchange, key, false, false, msg)
	}

	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// PublishRequest routes a simulation request to the work queue.
func (c *Client) PublishRequest(ctx context.Context, req *SimulationRequest, replyTo string) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.publish(ctx, c.exchangeName, c.queueName, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: req.RequestID,
		ReplyTo:       replyTo,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

// PublishReply sends reply to the requester's queue via the default exchange.
func (c *Client) PublishReply(ctx context.Context, replyTo, correlationID string, reply *SimulationReply) error {
	body, err := reply.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	return c.publish(ctx, "", replyTo, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

// RequestSimulation publishes req and waits for the matching reply on a
// private, exclusive queue.
func (c *Client) RequestSimulation(ctx context.Context, req *SimulationRequest) (*SimulationReply, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, amqp091.ErrClosed
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open reply channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}
	replies, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	if err := c.PublishRequest(ctx, req, q.Name); err != nil {
		return nil, err
	}
	return awaitReply(ctx, replies, req.RequestID)
}

// awaitReply returns the first reply carrying correlationID, skipping any
// stale replies left on the queue.
func awaitReply(ctx context.Context, replies <-chan amqp091.Delivery, correlationID string) (*SimulationReply, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, amqp091.ErrClosed
			}
			if d.CorrelationId != correlationID {
				continue
			}
			return SimulationReplyFromJSON(d.Body)
		}
	}
}

// ConsumeRequests handles requests until ctx is done, reconnecting when the
// broker goes away.
func (c *Client) ConsumeRequests(ctx context.Context, handler RequestHandler) error {
	for {
		ch := c.currentChannel()
		if ch == nil {
			if err := c.reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}

		msgs, err := ch.Consume(
			c.queueName, // queue
			"",          // consumer
			false,       // auto-ack
			false,       // exclusive
			false,       // no-local
			false,       // no-wait
			nil,         // args
		)
		if err != nil {
			c.logger.Warn("Failed to start consumer", log.FieldError, err.Error())
			if !isConnectionError(err) {
				return fmt.Errorf("start consumer: %w", err)
			}
			c.closeConnection()
			continue
		}

		c.logger.Info("Consuming simulation requests", "queue", c.queueName, "prefetch", c.prefetch)
		if done := c.drain(ctx, msgs, handler); done {
			return nil
		}
		c.logger.Warn("Delivery channel closed, reconnecting")
		c.closeConnection()
	}
}

// drain processes deliveries until ctx is done (true) or msgs closes (false).
func (c *Client) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler RequestHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case d, ok := <-msgs:
			if !ok {
				return false
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler RequestHandler) {
	req, err := SimulationRequestFromJSON(d.Body)
	if err != nil {
		c.logger.Error("Malformed simulation request", log.FieldError, err.Error())
		_ = d.Nack(false, false)
		return
	}

	reply := handler(ctx, req)
	if d.ReplyTo == "" {
		c.logger.Debug("Request has no reply queue, dropping reply", log.FieldRequestID, req.RequestID)
		_ = d.Ack(false)
		return
	}

	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID = req.RequestID
	}
	if err := c.PublishReply(ctx, d.ReplyTo, correlationID, reply); err != nil {
		c.logger.Error("Failed to publish reply",
			log.FieldError, err.Error(), log.FieldRequestID, req.RequestID)
		if errors.Is(err, ErrCircuitOpen) {
			c.pause(ctx, c.requeueDelay)
		}
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// pause waits for d or until ctx is done.
func (c *Client) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConnection()
	return nil
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("Circuit breaker opened", "failures", failures)
		}
	}
}

// isCircuitOpen reports whether calls should be refused. After openTimeout
// the breaker goes half-open: the caller that moves it there gets through,
// and every other caller is refused until that call records its outcome.
func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateClosed:
		return false
	case StateHalfOpen:
		return true
	}
	c.mu.Lock()
	elapsed := time.Since(c.lastFailure)
	c.mu.Unlock()
	if elapsed >= openTimeout {
		return !atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
	}
	return true
}

// exponentialBackoff doubles from one second up to a thirty second cap.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"eof",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
