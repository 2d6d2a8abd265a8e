package jsonrpcfx

import (
	"bufio"
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/daemonlog"
	muxerrors "github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/internal/eventhub"
	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"github.com/tidwall/gjson"
	"go.lsp.dev/jsonrpc2"
	"golang.org/x/sync/semaphore"
)

const (
	_methodAuth      = "auth"
	_outboundBuffer  = 256
	_rateLimitAuth   = "auth"
	_eventAuthFailed = "auth_failed"
	_eventClosed     = "connection_closed"
)

// connectionContext holds the bookkeeping of one connection.
// Plain fields are touched only by the read loop; atomics are shared with RPC workers.
type connectionContext struct {
	peer           string
	connectedAt    time.Time
	authenticated  bool
	authAttempts   uint64
	rpcCount       uint64
	invalidJSON    uint64
	unauthRequests uint64

	rpcErrors atomic.Uint64
	inflight  atomic.Int64
}

type connection struct {
	m      *module
	conn   net.Conn
	router Router
	state  connectionContext

	out     chan []byte
	limiter *semaphore.Weighted
	workers sync.WaitGroup

	stopForward context.CancelFunc
	forwardDone chan struct{}
}

func newConnection(m *module, conn net.Conn, peer string, router Router) *connection {
	return &connection{
		m:      m,
		conn:   conn,
		router: router,
		state: connectionContext{
			peer:        peer,
			connectedAt: m.clock.Now(),
		},
		out:     make(chan []byte, _outboundBuffer),
		limiter: semaphore.NewWeighted(int64(m.MaxInFlight)),
	}
}

// run drives the connection until the stream ends, a write fails, or ctx is canceled.
func (c *connection) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = context.WithValue(ctx, entity.ConnectionContextKey, c.router.UUID())

	// Unblocks the reader on shutdown and on write failure.
	stopClose := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stopClose()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx, cancel)
	}()

	if c.m.Token == "" {
		c.state.authenticated = true
		c.startForwarding(ctx)
	}

	c.readLoop(ctx)

	cancel()
	if c.stopForward != nil {
		c.stopForward()
		<-c.forwardDone
	}
	<-writerDone
	c.logClosed()
	c.workers.Wait()
}

func (c *connection) readLoop(ctx context.Context) {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			c.handleLine(ctx, line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				c.m.logger.Debugf("reading from %s: %s", c.state.peer, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *connection) writeLoop(ctx context.Context, fail context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-c.out:
			if _, err := c.conn.Write(append(line, '\n')); err != nil {
				fail()
				return
			}
		}
	}
}

// send queues one outbound line. It reports false once the connection is closing.
func (c *connection) send(ctx context.Context, line []byte) bool {
	select {
	case c.out <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *connection) handleLine(ctx context.Context, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	if !gjson.ValidBytes(line) {
		c.state.invalidJSON++
		c.m.stats.Counter("invalid_json").Inc(1)
		return
	}

	fields := gjson.GetManyBytes(line, "id", "method", "params")
	id, hasID := wireID(fields[0])
	method := ""
	if fields[1].Type == gjson.String {
		method = fields[1].Str
	}
	params := json.RawMessage("null")
	if fields[2].Exists() {
		params = json.RawMessage(fields[2].Raw)
	}

	if !c.state.authenticated {
		c.authenticate(ctx, id, hasID, method, params)
		return
	}

	c.state.rpcCount++
	c.m.stats.Counter("rpc").Inc(1)
	c.dispatch(ctx, id, hasID, method, params)
}

func (c *connection) authenticate(ctx context.Context, id uint64, hasID bool, method string, params json.RawMessage) {
	if method != _methodAuth {
		c.state.unauthRequests++
		c.replyError(ctx, id, hasID, muxerrors.ErrUnauthorized.Error())
		return
	}

	c.state.authAttempts++
	provided, _ := mapper.AuthToken(params)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(c.m.Token)) != 1 {
		c.m.stats.Counter("auth_failures").Inc(1)
		c.replyError(ctx, id, hasID, muxerrors.ErrInvalidToken.Error())
		if c.m.auditLog != nil {
			c.m.auditLog.LogRateLimited(_rateLimitAuth, daemonlog.LevelError, _eventAuthFailed, "peer", c.state.peer)
		}
		return
	}

	c.state.authenticated = true
	if hasID {
		c.send(ctx, mapper.ResultEnvelope(id, entity.OK{OK: true}))
	}
	// The reply is queued before subscribing, so no event can precede it on the wire.
	c.startForwarding(ctx)
}

// dispatch runs the call on a worker once a permit is free. Calls queued when the connection closes are dropped.
func (c *connection) dispatch(ctx context.Context, id uint64, hasID bool, method string, params json.RawMessage) {
	req, err := newRequest(id, hasID, method, params)
	if err != nil {
		c.countRPCError(method, err)
		c.replyError(ctx, id, hasID, mapper.ToWireMessage(method, err))
		return
	}

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return
		}
		c.state.inflight.Add(1)
		defer func() {
			c.state.inflight.Add(-1)
			c.limiter.Release(1)
		}()

		replied := false
		reply := func(_ context.Context, result interface{}, err error) error {
			replied = true
			if err != nil {
				c.countRPCError(method, err)
				c.replyError(ctx, id, hasID, mapper.ToWireMessage(method, err))
				return nil
			}
			if hasID {
				c.send(ctx, mapper.ResultEnvelope(id, result))
			}
			return nil
		}

		herr := c.router.HandleReq(ctx, reply, req)
		if !replied {
			reply(ctx, nil, herr)
		}
	}()
}

func (c *connection) countRPCError(method string, err error) {
	kind := mapper.ErrorKind(err)
	c.state.rpcErrors.Add(1)
	c.m.stats.Tagged(map[string]string{"kind": kind}).Counter("rpc_errors").Inc(1)

	switch kind {
	case mapper.ErrorKindInternal, mapper.ErrorKindInstall:
		c.m.logger.Warnf("%s from %s failed: %s", method, c.state.peer, err)
	default:
		c.m.logger.Debugf("%s from %s failed (%s): %s", method, c.state.peer, kind, err)
	}
}

func (c *connection) replyError(ctx context.Context, id uint64, hasID bool, message string) {
	if !hasID {
		return
	}
	c.send(ctx, mapper.ErrorEnvelope(id, message))
}

func (c *connection) startForwarding(ctx context.Context) {
	if c.m.hub == nil || c.stopForward != nil {
		return
	}
	fctx, stop := context.WithCancel(ctx)
	c.stopForward = stop
	c.forwardDone = make(chan struct{})

	sub := c.m.hub.Subscribe()
	go func() {
		defer close(c.forwardDone)
		c.forward(fctx, sub)
	}()
}

// forward runs forwardEvents for sub and reports what the subscriber missed once it ends.
func (c *connection) forward(ctx context.Context, sub eventhub.Subscription) {
	defer sub.Close()
	forwardEvents(ctx, sub.Events(), func(line []byte) bool { return c.send(ctx, line) })
	if lagged := sub.Lagged(); lagged > 0 {
		c.m.logger.Infof("connection from %s missed %d events while its buffer was full", c.state.peer, lagged)
	}
}

// forwardEvents writes each event as a notification line until the channel closes or send fails.
// Events a slow subscriber missed are already gone from the channel; forwarding just continues.
func forwardEvents(ctx context.Context, events <-chan entity.DaemonEvent, send func([]byte) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			line, err := mapper.EventToNotification(event)
			if err != nil {
				continue
			}
			if !send(line) {
				return
			}
		}
	}
}

func (c *connection) logClosed() {
	if c.m.auditLog == nil {
		return
	}
	s := &c.state
	duration := c.m.clock.Since(s.connectedAt).Milliseconds()
	c.m.auditLog.Log(daemonlog.LevelInfo, _eventClosed,
		"peer", s.peer,
		"authenticated", strconv.FormatBool(s.authenticated),
		"duration_ms", strconv.FormatInt(duration, 10),
		"rpc_count", strconv.FormatUint(s.rpcCount, 10),
		"rpc_errors", strconv.FormatUint(s.rpcErrors.Load(), 10),
		"inflight_rpcs", strconv.FormatInt(s.inflight.Load(), 10),
		"auth_attempts", strconv.FormatUint(s.authAttempts, 10),
		"invalid_json", strconv.FormatUint(s.invalidJSON, 10),
		"unauth_requests", strconv.FormatUint(s.unauthRequests, 10),
	)
}

// wireID accepts only non-negative integer ids. Any other id is treated as absent.
func wireID(v gjson.Result) (uint64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	id, err := strconv.ParseUint(v.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// newRequest builds the jsonrpc2 view of a line. The wire id travels with the replier,
// so the call id here only distinguishes calls from notifications.
func newRequest(id uint64, hasID bool, method string, params json.RawMessage) (jsonrpc2.Request, error) {
	if !hasID {
		return jsonrpc2.NewNotification(method, params)
	}
	return jsonrpc2.NewCall(jsonrpc2.NewStringID(strconv.FormatUint(id, 10)), method, params)
}
