// Package workspace connects workspaces to their agent sessions and relays calls to them.
package workspace

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/controller/terminal"
	"github.com/agentmux/agentmux/src/agentmux/entity"
	appserver "github.com/agentmux/agentmux/src/agentmux/gateway/app-server"
	"github.com/agentmux/agentmux/src/agentmux/internal/clock"
	"github.com/agentmux/agentmux/src/agentmux/internal/core"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"github.com/agentmux/agentmux/src/agentmux/repository/session"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Controller is the workspace API behind the daemon methods.
type Controller interface {
	// Connect spawns the agent of entry and returns once its handshake completed.
	// Connecting a workspace that is already live at the same path returns the live session.
	Connect(ctx context.Context, entry entity.WorkspaceEntry) (entity.ConnectResult, error)
	// Disconnect closes the session and terminals of a workspace. Unknown workspaces are ignored.
	Disconnect(ctx context.Context, workspaceID string) error
	// List returns every workspace connected since the daemon started, ordered by id.
	List(ctx context.Context) []entity.WorkspaceInfo
	// SendRequest relays a request and returns the agent's full response message.
	SendRequest(ctx context.Context, req entity.RelayRequest) (json.RawMessage, error)
	SendNotification(ctx context.Context, req entity.RelayRequest) error
	RespondToServerRequest(ctx context.Context, resp entity.ServerResponse) error
	// Info describes the daemon. Connections is left for the transport to fill in.
	Info(ctx context.Context) entity.DaemonInfo
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Clock     clock.Clock
	Sessions  session.Repository
	Gateway   appserver.Gateway
	Terminals terminal.Controller
}

type controller struct {
	logger    *zap.SugaredLogger
	stats     tally.Scope
	sessions  session.Repository
	gateway   appserver.Gateway
	terminals terminal.Controller
	startedAt time.Time

	connects singleflight.Group
	watchers sync.WaitGroup

	mu    sync.Mutex
	known map[string]entity.WorkspaceEntry
}

// New constructs the workspace controller. Every session is closed when the application stops.
func New(p Params) Controller {
	c := &controller{
		logger:    p.Logger,
		stats:     p.Stats,
		sessions:  p.Sessions,
		gateway:   p.Gateway,
		terminals: p.Terminals,
		known:     make(map[string]entity.WorkspaceEntry),
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.stats == nil {
		c.stats = tally.NoopScope
	}
	c.stats = c.stats.SubScope("workspaces")

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	c.startedAt = clk.Now()

	p.Lifecycle.Append(fx.StopHook(c.closeAll))
	return c
}

func (c *controller) Connect(ctx context.Context, entry entity.WorkspaceEntry) (entity.ConnectResult, error) {
	s, err := c.existing(ctx, entry.ID)
	if err != nil {
		return entity.ConnectResult{}, err
	}
	if s != nil {
		return live(s, entry)
	}

	v, err, _ := c.connects.Do(entry.ID, func() (any, error) {
		if s, err := c.existing(ctx, entry.ID); s != nil || err != nil {
			return s, err
		}

		s, err := c.gateway.Spawn(ctx, entry)
		if err != nil {
			c.stats.Counter("connect_failures").Inc(1)
			return nil, err
		}
		if err := c.sessions.Add(ctx, s); err != nil {
			return nil, multierr.Append(err, s.Close())
		}

		c.mu.Lock()
		c.known[entry.ID] = entry
		c.mu.Unlock()

		c.watchers.Add(1)
		go c.watch(s)

		c.stats.Counter("connects").Inc(1)
		c.logger.Infof("workspace %s connected at %s (%s) by %s", entry.ID, entry.Path, s.Version(), caller(ctx))
		return s, nil
	})
	if err != nil {
		return entity.ConnectResult{}, err
	}
	return live(v.(entity.AgentSession), entry)
}

// caller names the daemon connection a request came from.
func caller(ctx context.Context) string {
	id, err := mapper.ContextToConnectionUUID(ctx)
	if err != nil {
		return "the daemon"
	}
	return "connection " + id.String()
}

// existing returns the live session of workspaceID, or nil when the workspace is not connected.
func (c *controller) existing(ctx context.Context, workspaceID string) (entity.AgentSession, error) {
	s, err := c.sessions.Get(ctx, workspaceID)
	if _, missing := errors.NotFoundWorkspace(err); missing {
		return nil, nil
	}
	return s, err
}

// relayTarget returns the session a relayed call goes to.
func (c *controller) relayTarget(ctx context.Context, workspaceID, method string) (entity.AgentSession, error) {
	s, err := c.sessions.Get(ctx, workspaceID)
	if id, missing := errors.NotFoundWorkspace(err); missing {
		c.logger.Debugf("dropping %s for workspace %s: not connected", method, id)
	}
	return s, err
}

// live reports the session as the result of connecting entry, unless it serves another path.
func live(s entity.AgentSession, entry entity.WorkspaceEntry) (entity.ConnectResult, error) {
	if s.Entry().Path != entry.Path {
		return entity.ConnectResult{}, errors.ErrWorkspaceExists
	}
	return entity.ConnectResult{WorkspaceID: entry.ID, Version: s.Version()}, nil
}

// watch forgets a session whose agent exited on its own.
func (c *controller) watch(s entity.AgentSession) {
	defer c.watchers.Done()
	<-s.Done()

	id := s.Entry().ID
	if !c.sessions.DeleteIf(context.Background(), s) {
		return
	}
	c.logger.Warnf("agent session of workspace %s ended", id)
	if err := c.terminals.CloseWorkspace(context.Background(), id); err != nil {
		c.logger.Warnf("failed to close terminals of workspace %s: %s", id, err)
	}
	if err := s.Close(); err != nil {
		c.logger.Debugf("closing ended session of workspace %s: %s", id, err)
	}
}

func (c *controller) Disconnect(ctx context.Context, workspaceID string) error {
	s, ok := c.sessions.Delete(ctx, workspaceID)
	if !ok {
		return nil
	}
	c.stats.Counter("disconnects").Inc(1)
	c.logger.Infof("workspace %s disconnected by %s", workspaceID, caller(ctx))
	return multierr.Append(
		s.Close(),
		c.terminals.CloseWorkspace(ctx, workspaceID),
	)
}

func (c *controller) List(ctx context.Context) []entity.WorkspaceInfo {
	live := make(map[string]entity.AgentSession)
	for _, s := range c.sessions.List(ctx) {
		live[s.Entry().ID] = s
	}

	c.mu.Lock()
	infos := make([]entity.WorkspaceInfo, 0, len(c.known))
	for id, entry := range c.known {
		info := entity.WorkspaceInfo{ID: id, Name: entry.Name, Path: entry.Path}
		if s, ok := live[id]; ok {
			info.Connected = true
			info.Version = s.Version()
		}
		infos = append(infos, info)
	}
	c.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (c *controller) SendRequest(ctx context.Context, req entity.RelayRequest) (json.RawMessage, error) {
	s, err := c.relayTarget(ctx, req.WorkspaceID, req.Method)
	if err != nil {
		return nil, err
	}
	return s.SendRequest(ctx, req.Method, req.Params)
}

func (c *controller) SendNotification(ctx context.Context, req entity.RelayRequest) error {
	s, err := c.relayTarget(ctx, req.WorkspaceID, req.Method)
	if err != nil {
		return err
	}
	return s.SendNotification(ctx, req.Method, req.Params)
}

func (c *controller) RespondToServerRequest(ctx context.Context, resp entity.ServerResponse) error {
	s, err := c.relayTarget(ctx, resp.WorkspaceID, "server request response")
	if err != nil {
		return err
	}
	return s.SendResponse(ctx, resp.RequestID, resp.Result)
}

func (c *controller) Info(ctx context.Context) entity.DaemonInfo {
	return entity.DaemonInfo{
		Version:    core.Version,
		PID:        os.Getpid(),
		StartedAt:  c.startedAt.UTC().Format(time.RFC3339),
		Workspaces: c.sessions.SessionCount(ctx),
	}
}

func (c *controller) closeAll(ctx context.Context) error {
	var err error
	for _, s := range c.sessions.List(ctx) {
		if _, ok := c.sessions.Delete(ctx, s.Entry().ID); ok {
			err = multierr.Append(err, s.Close())
		}
	}

	done := make(chan struct{})
	go func() {
		c.watchers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}
