package appserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/internal/process"
	"github.com/agentmux/agentmux/src/agentmux/internal/protocol"
	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"github.com/uber-go/tally/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Diagnostic event methods emitted on behalf of a session.
const (
	MethodConnected    = "codex/connected"
	MethodDisconnected = "codex/disconnected"
	MethodStderr       = "codex/stderr"
	MethodParseError   = "codex/parseError"
)

const (
	_errWrite = "writing to agent stdin: %w"

	// _backgroundBuffer bounds each background channel; overflow is dropped.
	_backgroundBuffer = 64
	// _terminateGrace is how long Close waits after the graceful signal before killing.
	_terminateGrace = 2 * time.Second
)

type outboundRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type outboundNotification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type outboundResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
}

// pipes are the child's standard streams as seen from the session.
type pipes struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// session owns one agent child process.
type session struct {
	entry   entity.WorkspaceEntry
	version string
	sink    entity.EventSink
	logger  *zap.SugaredLogger
	stats   tally.Scope
	// stderrLog receives every stderr line; may be nil.
	stderrLog io.WriteCloser

	cmd *exec.Cmd
	pipes

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan json.RawMessage
	closed    bool

	backgroundMu sync.Mutex
	background   map[string]chan json.RawMessage

	nextID    atomic.Uint64
	connected atomic.Bool
	forceKill atomic.Bool

	readers   sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type sessionParams struct {
	Entry     entity.WorkspaceEntry
	Version   string
	Sink      entity.EventSink
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	StderrLog io.WriteCloser
	// Cmd is the started child; nil for sessions over plain pipes.
	Cmd   *exec.Cmd
	Pipes pipes
}

func newSession(p sessionParams) *session {
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	if p.Stats == nil {
		p.Stats = tally.NoopScope
	}
	if p.Sink == nil {
		p.Sink = entity.EventSinkFunc(func(entity.DaemonEvent) {})
	}
	return &session{
		entry:      p.Entry,
		version:    p.Version,
		sink:       p.Sink,
		logger:     p.Logger.With("workspaceId", p.Entry.ID),
		stats:      p.Stats,
		stderrLog:  p.StderrLog,
		cmd:        p.Cmd,
		pipes:      p.Pipes,
		pending:    make(map[uint64]chan json.RawMessage),
		background: make(map[string]chan json.RawMessage),
		done:       make(chan struct{}),
	}
}

// start launches the stdout and stderr readers and the exit watcher.
func (s *session) start() {
	s.readers.Add(2)
	go func() {
		defer s.readers.Done()
		s.readStdout()
	}()
	go func() {
		defer s.readers.Done()
		s.readStderr()
	}()
	go s.watchExit()
}

func (s *session) Entry() entity.WorkspaceEntry { return s.entry }

func (s *session) Version() string { return s.version }

func (s *session) Done() <-chan struct{} { return s.done }

func (s *session) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := mapper.RawParams(params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}

	id := s.nextID.Add(1)
	reply := make(chan json.RawMessage, 1)

	s.pendingMu.Lock()
	if s.closed {
		s.pendingMu.Unlock()
		return nil, errors.ErrSessionClosed
	}
	s.pending[id] = reply
	s.pendingMu.Unlock()

	if err := s.write(outboundRequest{ID: id, Method: method, Params: raw}); err != nil {
		s.dropPending(id)
		return nil, err
	}
	s.stats.Counter("requests").Inc(1)

	select {
	case resp, ok := <-reply:
		if !ok {
			s.stats.Counter("canceled").Inc(1)
			return nil, errors.ErrRequestCanceled
		}
		return resp, nil
	case <-ctx.Done():
		s.dropPending(id)
		s.stats.Counter("canceled").Inc(1)
		return nil, ctx.Err()
	}
}

func (s *session) SendNotification(ctx context.Context, method string, params any) error {
	raw, err := mapper.RawParams(params)
	if err != nil {
		return err
	}
	return s.write(outboundNotification{Method: method, Params: raw})
}

func (s *session) SendResponse(ctx context.Context, id json.RawMessage, result any) error {
	raw, err := mapper.RawParams(result)
	if err != nil {
		return err
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return s.write(outboundResponse{ID: id, Result: raw})
}

func (s *session) RegisterBackground(threadID string) <-chan json.RawMessage {
	ch := make(chan json.RawMessage, _backgroundBuffer)

	s.backgroundMu.Lock()
	defer s.backgroundMu.Unlock()
	if prev, ok := s.background[threadID]; ok {
		close(prev)
	}
	if s.isClosed() {
		close(ch)
		return ch
	}
	s.background[threadID] = ch
	return ch
}

func (s *session) UnregisterBackground(threadID string) {
	s.backgroundMu.Lock()
	defer s.backgroundMu.Unlock()
	if ch, ok := s.background[threadID]; ok {
		delete(s.background, threadID)
		close(ch)
	}
}

// Close cancels pending requests, closes background channels, terminates the process tree
// and waits for the readers. It is safe to call more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.cancelAll()

		var err error
		if cerr := s.stdin.Close(); cerr != nil && !errors.Is(cerr, io.ErrClosedPipe) {
			err = multierr.Append(err, cerr)
		}
		err = multierr.Append(err, s.terminate())

		// Closing the read ends unblocks readers held open by orphaned descendants.
		s.stdout.Close()
		s.stderr.Close()
		<-s.done

		if s.stderrLog != nil {
			err = multierr.Append(err, s.stderrLog.Close())
		}
		s.closeErr = err
	})
	return s.closeErr
}

// abort closes the session, killing the process tree without a grace period.
func (s *session) abort() error {
	s.forceKill.Store(true)
	return s.Close()
}

func (s *session) terminate() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
	}

	pid := s.cmd.Process.Pid
	if s.forceKill.Load() {
		return process.Kill(pid)
	}
	if err := process.Signal(pid); err != nil {
		s.logger.Warnf("failed to signal agent process %d: %s", pid, err)
	}

	timer := time.NewTimer(_terminateGrace)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return process.Kill(pid)
	}
}

// write serializes v as one line on stdin.
func (s *session) write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializing agent message: %w", err)
	}
	line = append(line, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return errors.ErrSessionClosed
	}
	if _, err := s.stdin.Write(line); err != nil {
		return fmt.Errorf(_errWrite, err)
	}
	return nil
}

func (s *session) isClosed() bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.closed
}

func (s *session) dropPending(id uint64) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// resolve hands a response to its waiting request. Late responses are ignored.
func (s *session) resolve(id uint64, msg json.RawMessage) {
	s.pendingMu.Lock()
	reply, ok := s.pending[id]
	delete(s.pending, id)
	s.pendingMu.Unlock()

	if !ok {
		s.logger.Debugf("dropping response %d without a pending request", id)
		return
	}
	reply <- msg
}

// cancelAll marks the session closed and releases every waiter.
func (s *session) cancelAll() {
	s.pendingMu.Lock()
	s.closed = true
	pending := s.pending
	s.pending = make(map[uint64]chan json.RawMessage)
	s.pendingMu.Unlock()

	for _, reply := range pending {
		close(reply)
	}

	s.backgroundMu.Lock()
	for threadID, ch := range s.background {
		delete(s.background, threadID)
		close(ch)
	}
	s.backgroundMu.Unlock()
}

func (s *session) readStdout() {
	reader := bufio.NewReader(s.stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			s.handleLine(line)
		}
		if err != nil {
			if err != io.EOF && !s.isClosed() {
				s.logger.Warnf("reading agent stdout: %s", err)
			}
			return
		}
	}
}

func (s *session) handleLine(line []byte) {
	msg := protocol.Classify(line)
	switch msg.Kind {
	case protocol.KindInvalid:
		s.stats.Counter("parse_errors").Inc(1)
		s.emitDiagnostic(MethodParseError, map[string]string{
			"error": msg.ParseError,
			"raw":   string(withoutNewline(line)),
		})
	case protocol.KindResponse:
		s.resolve(msg.ID, msg.Raw)
	case protocol.KindNotification, protocol.KindServerRequest:
		if msg.ThreadID != "" && s.routeBackground(msg.ThreadID, msg.Raw) {
			return
		}
		s.emit(msg.Raw)
	}
}

// withoutNewline strips the line terminator, leaving any other whitespace in place.
func withoutNewline(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

// routeBackground delivers msg to the consumer registered for threadID, if any.
// It never blocks: a full channel drops the message.
func (s *session) routeBackground(threadID string, msg json.RawMessage) bool {
	s.backgroundMu.Lock()
	defer s.backgroundMu.Unlock()
	ch, ok := s.background[threadID]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
		s.stats.Counter("background_dropped").Inc(1)
		s.logger.Warnf("background consumer of thread %s is full, dropping message", threadID)
	}
	return true
}

func (s *session) readStderr() {
	reader := bufio.NewReader(s.stderr)
	logFailed := false
	for {
		line, err := reader.ReadBytes('\n')
		if text := bytes.TrimRight(line, "\r\n"); len(bytes.TrimSpace(text)) > 0 {
			if s.stderrLog != nil {
				if _, werr := s.stderrLog.Write(line); werr != nil && !logFailed {
					logFailed = true
					s.logger.Warnf("failed to write agent output log of workspace %s: %s", s.entry.ID, werr)
				}
			}
			s.emitDiagnostic(MethodStderr, map[string]string{"message": string(text)})
		}
		if err != nil {
			return
		}
	}
}

// watchExit reaps the child once both readers are done, then reports the disconnect.
func (s *session) watchExit() {
	s.readers.Wait()
	if s.cmd != nil {
		if err := s.cmd.Wait(); err != nil && !s.isClosed() {
			s.logger.Warnf("agent process of workspace %s exited: %s", s.entry.ID, err)
		}
	}
	s.cancelAll()
	if s.connected.Load() {
		s.emitDiagnostic(MethodDisconnected, map[string]string{"workspaceId": s.entry.ID})
	}
	close(s.done)
}

func (s *session) emit(msg json.RawMessage) {
	s.sink.Emit(entity.ProcessEvent{WorkspaceID: s.entry.ID, Message: msg})
}

func (s *session) emitDiagnostic(method string, params any) {
	msg, err := json.Marshal(outboundNotificationValue{Method: method, Params: params})
	if err != nil {
		s.logger.Errorf("encoding %s event: %s", method, err)
		return
	}
	s.emit(msg)
}

type outboundNotificationValue struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}
