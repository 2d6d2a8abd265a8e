// Package jsonrpcfx serves the daemon's line-delimited JSON-RPC transport over TCP.
package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/agentmux/agentmux/src/agentmux/internal/clock"
	"github.com/agentmux/agentmux/src/agentmux/internal/daemonlog"
	"github.com/agentmux/agentmux/src/agentmux/internal/eventhub"
	"github.com/agentmux/agentmux/src/agentmux/internal/serverinfofile"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	_configKeyAddress     = "daemon.address"
	_configKeyToken       = "daemon.token"
	_configKeyMaxInFlight = "daemon.maxInFlightRPC"

	_outputKeyAddress = serverinfofile.KeyAddress
	_outputKeyPID     = serverinfofile.KeyPID

	_defaultMaxInFlight = 32
)

// Module is an fx module to handle JSON-RPC requests.
var Module = fx.Provide(New)

// JSONRPCModule represents a module to manage JSON-RPC requests.
type JSONRPCModule interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	// ServeConn runs one client connection until it is closed or ctx is canceled.
	ServeConn(ctx context.Context, conn net.Conn) error
	RegisterConnectionManager(connectionManager ConnectionManager) error
	// Addr returns the bound listen address, or nil before OnStart.
	Addr() net.Addr
	// ConnectionCount returns the number of open client connections.
	ConnectionCount() int
}

// Router serves as the interface through which handling of requests will be implemented.
type Router interface {
	HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error
	UUID() uuid.UUID
}

// ConnectionManager will manage each active connection and its corresponding Router throughout the lifecycle of a connection.
type ConnectionManager interface {
	NewConnection(ctx context.Context, peer string) (router Router, err error)
	RemoveConnection(ctx context.Context, id uuid.UUID)
}

type module struct {
	Address     string `json:"address"`
	Token       string `json:"token"`
	MaxInFlight int    `json:"maxInFlightRPC"`

	connectionMgr  ConnectionManager
	ln             net.Listener
	logger         *zap.SugaredLogger
	serverInfoFile serverinfofile.ServerInfoFile
	hub            eventhub.Hub
	auditLog       daemonlog.Logger
	clock          clock.Clock
	stats          tally.Scope

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Params define values to be used by JsonRpcHandler.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	ServerInfoFile serverinfofile.ServerInfoFile
	Hub            eventhub.Hub
	AuditLog       daemonlog.Logger
	Clock          clock.Clock
	Stats          tally.Scope
}

// New creates a new server to handle JSON-RPC requests on the given port and host.
func New(p Params) (JSONRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := newModule(p)
	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})

	return m, nil
}

func newModule(p Params) *module {
	m := &module{
		logger:         p.Logger,
		serverInfoFile: p.ServerInfoFile,
		hub:            p.Hub,
		auditLog:       p.AuditLog,
		clock:          p.Clock,
		stats:          p.Stats,
		conns:          make(map[net.Conn]struct{}),
		MaxInFlight:    _defaultMaxInFlight,
	}
	if m.logger == nil {
		m.logger = zap.NewNop().Sugar()
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.stats == nil {
		m.stats = tally.NoopScope
	}
	m.stats = m.stats.SubScope("daemon")
	return m
}

// OnStart binds the listener, publishes its address and begins accepting connections.
func (m *module) OnStart(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}
	return m.start()
}

// OnStop closes the listener and every open connection, then waits for them to finish.
func (m *module) OnStop(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel == nil {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	err := m.ln.Close()
	for conn := range m.conns {
		conn.Close()
	}
	g := m.group
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// RegisterConnectionManager sets the connection manager, which keeps track of current active connections and provides a Router implementation.
func (m *module) RegisterConnectionManager(connectionMgr ConnectionManager) error {
	if m.connectionMgr != nil {
		return errors.New("cannot register a duplicate connection manager")
	}
	m.connectionMgr = connectionMgr
	return nil
}

func (m *module) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

func (m *module) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// ServeConn is called when a new connection is accepted. Requests received via the connection are routed to the handler, and answered via the connection's outbound queue.
func (m *module) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	if m.connectionMgr == nil {
		m.logger.Errorf("cannot serve connection, no connection manager set")
		return errors.New("cannot serve connection, no connection manager set")
	}

	peer := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		peer = addr.String()
	}

	handler, err := m.connectionMgr.NewConnection(ctx, peer)
	if err != nil {
		return err
	}
	m.logger.Infof("client %s connected from %s", handler.UUID(), peer)
	m.stats.Counter("connections_opened").Inc(1)

	c := newConnection(m, conn, peer, handler)
	c.run(ctx)

	// Cleanup after connection.
	m.connectionMgr.RemoveConnection(context.WithoutCancel(ctx), handler.UUID())
	m.logger.Infof("client %s from %s disconnected", handler.UUID(), peer)
	return nil
}

// setup should be called after creation of a new handler to set initial values.
func (m *module) setup() error {
	if m.Address == "" {
		return errors.New("setup called before address is set")
	}

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", m.Address, err)
	}

	m.mu.Lock()
	m.ln = ln
	m.mu.Unlock()
	return nil
}

// start publishes the bound address and begins serving connections.
func (m *module) start() error {
	addr := m.ln.Addr().String()
	if m.serverInfoFile != nil {
		if err := m.serverInfoFile.UpdateField(_outputKeyAddress, addr); err != nil {
			m.ln.Close()
			return err
		}
		if err := m.serverInfoFile.UpdateField(_outputKeyPID, strconv.Itoa(os.Getpid())); err != nil {
			m.ln.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.group = g
	m.mu.Unlock()

	m.logger.Infof("started JSON-RPC inbound on %s (auth required: %t)", addr, m.Token != "")
	g.Go(func() error {
		return m.acceptLoop(gctx, g)
	})
	return nil
}

func (m *module) acceptLoop(ctx context.Context, g *errgroup.Group) error {
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			m.logger.Errorf("failed to accept connection: %s", err)
			return err
		}

		if !m.track(conn) {
			conn.Close()
			return nil
		}
		g.Go(func() error {
			defer m.untrack(conn)
			if err := m.ServeConn(ctx, conn); err != nil {
				m.logger.Warnf("connection ended with error: %s", err)
			}
			return nil
		})
	}
}

func (m *module) track(conn net.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.conns[conn] = struct{}{}
	m.stats.Gauge("connections").Update(float64(len(m.conns)))
	return true
}

func (m *module) untrack(conn net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, conn)
	m.stats.Gauge("connections").Update(float64(len(m.conns)))
}

// processConfig will parse the configuration for any values required by this module.
func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyAddress)
	if err := val.Populate(&m.Address); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyAddress, err)
	}

	if m.Address == "" {
		// yaml is missing either the key or value
		return fmt.Errorf("missing field %q in config", _configKeyAddress)
	}

	if err := cfg.Get(_configKeyToken).Populate(&m.Token); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyToken, err)
	}

	if v := cfg.Get(_configKeyMaxInFlight); v.HasValue() {
		if err := v.Populate(&m.MaxInFlight); err != nil {
			return fmt.Errorf("getting config field %q: %w", _configKeyMaxInFlight, err)
		}
	}
	if m.MaxInFlight <= 0 {
		return fmt.Errorf("field %q must be positive", _configKeyMaxInFlight)
	}

	return nil
}
