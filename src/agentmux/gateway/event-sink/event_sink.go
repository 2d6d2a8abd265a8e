// Package eventsink provides the EventSink that sessions and terminals publish to.
package eventsink

import (
	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/eventhub"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Params define the dependencies of the application event sink.
type Params struct {
	fx.In

	Hub    eventhub.Hub
	Logger *zap.SugaredLogger
}

// New returns the sink that broadcasts every event to daemon connections and traces it in the log.
func New(p Params) entity.EventSink {
	return Multi(p.Hub, NewLogSink(p.Logger))
}

// Multi returns a sink that emits each event to every non-nil sink in order.
func Multi(sinks ...entity.EventSink) entity.EventSink {
	var all []entity.EventSink
	for _, s := range sinks {
		if s != nil {
			all = append(all, s)
		}
	}
	if len(all) == 1 {
		return all[0]
	}
	return multiSink(all)
}

type multiSink []entity.EventSink

func (m multiSink) Emit(event entity.DaemonEvent) {
	for _, s := range m {
		s.Emit(event)
	}
}

// NewLogSink returns a sink that writes a debug record per event. Terminal output is not logged.
func NewLogSink(logger *zap.SugaredLogger) entity.EventSink {
	if logger == nil {
		return nil
	}
	return &logSink{logger: logger}
}

type logSink struct {
	logger *zap.SugaredLogger
}

func (l *logSink) Emit(event entity.DaemonEvent) {
	switch e := event.(type) {
	case entity.ProcessEvent:
		fields := gjson.GetManyBytes(e.Message, "method", "id")
		l.logger.Debugw("process event",
			"workspaceId", e.WorkspaceID,
			"method", fields[0].String(),
			"id", fields[1].Raw,
		)
	case entity.TerminalExit:
		l.logger.Infow("terminal exited",
			"workspaceId", e.WorkspaceID,
			"terminalId", e.TerminalID,
			"exitCode", e.ExitCode,
		)
	}
}
