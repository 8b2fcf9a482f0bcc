// Package orchestrator drives one module invocation to completion: it
// wires a Supervisor's Object events to the Asset Store and forwards
// Info/Log/Error events to a UI sink.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/corvidrecon/corvid/internal/isolation"
	"github.com/corvidrecon/corvid/internal/registry"
	"github.com/corvidrecon/corvid/internal/store"
)

// UI receives non-Object events for rendering. The CLI's plain-text
// printer (internal/term) and RunWithUI's overlapped-redraw bridge
// (asyncUI in this package) both implement it; tests can supply a
// recording stub.
type UI interface {
	Info(msg string)
	Log(msg string)
}

// Orchestrator wires a Store to module invocations.
type Orchestrator struct {
	Store store.Store
	Log   *logrus.Logger
}

// New builds an Orchestrator over the given store, logging through log
// (following the teacher's injected-logger pattern; a nil logger is
// replaced with a silent one so callers never need a nil check).
func New(s store.Store, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
		log.SetOutput(nilWriter{})
	}
	return &Orchestrator{Store: s, Log: log}
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run spawns mod with arg and drives it to completion, rendering
// Info/Log events through ui (which may be nil to discard them).
func (o *Orchestrator) Run(ctx context.Context, mod *registry.Module, arg []byte, ui UI) error {
	return isolation.SpawnModule(mod, arg, o.handle(ctx, mod, ui))
}

// handle builds the per-event reply logic shared by Run and RunWithUI,
// split out so it can be exercised directly in tests without spawning a
// real child process.
func (o *Orchestrator) handle(ctx context.Context, mod *registry.Module, ui UI) isolation.Handler {
	return func(ev isolation.Event) (isolation.Reply, error) {
		switch ev.Kind {
		case isolation.EventObject:
			wasNew, id, err := o.Store.InsertObject(ctx, ev.Object)
			if err != nil {
				o.Log.WithError(err).WithField("module", mod.Canonical()).Warn("rejected object from module")
				return isolation.ErrReply(err.Error()), nil
			}
			o.Log.WithFields(logrus.Fields{
				"module": mod.Canonical(),
				"kind":   ev.Object.Kind,
				"id":     id,
				"new":    wasNew,
			}).Debug("inserted object")
			return isolation.OkReply(id), nil
		case isolation.EventInfo:
			if ui != nil {
				ui.Info(ev.Info)
			}
			return isolation.Reply{}, nil
		case isolation.EventLog:
			if ui != nil {
				ui.Log(ev.Log)
			}
			return isolation.Reply{}, nil
		case isolation.EventError:
			o.Log.WithField("module", mod.Canonical()).Error(ev.Error)
			return isolation.Reply{}, nil
		default:
			return isolation.Reply{}, fmt.Errorf("orchestrator: unexpected event kind %q", ev.Kind)
		}
	}
}
