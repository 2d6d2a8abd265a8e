// Package daemonclient calls a running agentmux daemon over its TCP transport.
package daemonclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	_initialInterval = 250 * time.Millisecond
	_maxInterval     = 5 * time.Second
	_authTimeout     = 5 * time.Second
	_eventBuffer     = 256

	_methodAuth = "auth"
)

var (
	// ErrNotConnected is returned by calls made while the client is reconnecting.
	ErrNotConnected = errors.New("not connected to daemon")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("client closed")
)

// Event is a notification pushed by the daemon.
type Event struct {
	Method string
	Params json.RawMessage
}

// Client is a connection to the daemon that survives restarts of the daemon.
type Client interface {
	// Call sends a request and waits for its result. A call in flight when the connection
	// drops fails with ErrRequestCanceled.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	// Events delivers daemon notifications. Events are dropped while the channel is full.
	// It is closed once the client stops.
	Events() <-chan Event
	Close() error
}

// Options configure a Client.
type Options struct {
	Address string
	// Token is sent with an auth call after every connect when non-empty.
	Token  string
	Logger *zap.SugaredLogger
	// Dial defaults to a net.Dialer.
	Dial func(ctx context.Context, address string) (net.Conn, error)
}

type request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type result struct {
	value json.RawMessage
	err   error
}

type call struct {
	method string
	reply  chan result
}

type client struct {
	opts   Options
	logger *zap.SugaredLogger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	conn    net.Conn
	pending map[uint64]*call
	closed  bool
}

// Dial connects and authenticates once, then keeps the connection alive in the background.
func Dial(ctx context.Context, opts Options) (Client, error) {
	c := newClient(opts)
	conn, reader, err := c.connect(ctx)
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.conn = conn
	go c.run(conn, reader)
	return c, nil
}

func newClient(opts Options) *client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Dial == nil {
		var d net.Dialer
		opts.Dial = func(ctx context.Context, address string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", address)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		opts:    opts,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		events:  make(chan Event, _eventBuffer),
		pending: make(map[uint64]*call),
	}
}

func (c *client) Events() <-chan Event {
	return c.events
}

func (c *client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := mapper.RawParams(params)
	if err != nil {
		return nil, err
	}
	id := c.nextID.Add(1)
	line, err := json.Marshal(request{ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, err
	}

	pending := &call{method: method, reply: make(chan result, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[id] = pending
	c.mu.Unlock()

	if err := c.write(conn, line); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case res := <-pending.reply:
		return res.value, res.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *client) write(conn net.Conn, line []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := conn.Write(append(line, '\n'))
	return err
}

func (c *client) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Close stops reconnecting, closes the connection and fails every pending call.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	<-c.done
	return err
}

// connect dials the daemon and authenticates when a token is configured.
func (c *client) connect(ctx context.Context) (net.Conn, *bufio.Reader, error) {
	conn, err := c.opts.Dial(ctx, c.opts.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing daemon at %s: %w", c.opts.Address, err)
	}
	reader := bufio.NewReader(conn)
	if c.opts.Token == "" {
		return conn, reader, nil
	}

	if err := c.authenticate(conn, reader); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, reader, nil
}

func (c *client) authenticate(conn net.Conn, reader *bufio.Reader) error {
	id := c.nextID.Add(1)
	line, err := json.Marshal(request{
		ID:     id,
		Method: _methodAuth,
		Params: mustMarshal(map[string]string{"token": c.opts.Token}),
	})
	if err != nil {
		return err
	}

	conn.SetDeadline(time.Now().Add(_authTimeout))
	defer conn.SetDeadline(time.Time{})

	if err := c.write(conn, line); err != nil {
		return err
	}
	for {
		reply, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("reading auth reply: %w", err)
		}
		msg := gjson.ParseBytes(reply)
		if msg.Get("id").Uint() != id {
			continue
		}
		if e := msg.Get("error"); e.Exists() {
			// A wrong token does not get better by retrying.
			return backoff.Permanent(&errors.RPCError{Method: _methodAuth, Message: e.Get("message").String()})
		}
		return nil
	}
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// run reads from conn until it drops, then reconnects until the client is closed.
func (c *client) run(conn net.Conn, reader *bufio.Reader) {
	defer close(c.done)
	defer close(c.events)

	for {
		c.read(reader)
		c.drop(conn)
		if c.ctx.Err() != nil {
			return
		}

		var err error
		conn, reader, err = c.reconnect()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Errorf("giving up on daemon connection: %s", err)
			}
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
		c.logger.Infof("reconnected to daemon at %s", c.opts.Address)
	}
}

type connection struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *client) reconnect() (net.Conn, *bufio.Reader, error) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(_initialInterval),
		backoff.WithMaxInterval(_maxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	cn, err := backoff.RetryNotifyWithData(func() (connection, error) {
		conn, reader, err := c.connect(c.ctx)
		return connection{conn: conn, reader: reader}, err
	}, backoff.WithContext(b, c.ctx), func(err error, next time.Duration) {
		c.logger.Debugf("daemon unreachable, retrying in %s: %s", next, err)
	})
	return cn.conn, cn.reader, err
}

func (c *client) read(reader *bufio.Reader) {
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			c.handle(line)
		}
		if err != nil {
			return
		}
	}
}

func (c *client) handle(line []byte) {
	msg := gjson.ParseBytes(line)
	if !msg.IsObject() {
		return
	}

	id := msg.Get("id")
	if !id.Exists() {
		if method := msg.Get("method"); method.Exists() {
			c.publish(Event{Method: method.String(), Params: json.RawMessage(msg.Get("params").Raw)})
		}
		return
	}

	c.mu.Lock()
	pending, ok := c.pending[id.Uint()]
	delete(c.pending, id.Uint())
	c.mu.Unlock()
	if !ok {
		return
	}

	if e := msg.Get("error"); e.Exists() {
		pending.reply <- result{err: &errors.RPCError{Method: pending.method, Message: e.Get("message").String()}}
		return
	}
	pending.reply <- result{value: json.RawMessage(msg.Get("result").Raw)}
}

func (c *client) publish(e Event) {
	select {
	case c.events <- e:
	default:
		c.logger.Debugf("dropping %s event, buffer full", e.Method)
	}
}

// drop forgets conn and cancels every call waiting on it.
func (c *client) drop(conn net.Conn) {
	conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	for id, pending := range c.pending {
		pending.reply <- result{err: errors.ErrRequestCanceled}
		delete(c.pending, id)
	}
}
