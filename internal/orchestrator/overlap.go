package orchestrator

import (
	"context"

	"github.com/corvidrecon/corvid/internal/isolation"
	"github.com/corvidrecon/corvid/internal/registry"
)

// asyncUI forwards Info/Log calls onto a bounded channel drained by a
// dedicated goroutine, so a slow terminal redraw cannot stall the
// protocol loop calling it.
type asyncUI struct {
	events chan isolation.Event
}

func (u *asyncUI) Info(msg string) { u.events <- isolation.InfoEvent(msg) }
func (u *asyncUI) Log(msg string)  { u.events <- isolation.LogEvent(msg) }

// RunWithUI is Run's overlapped-redraw variant: event handling runs on
// the calling goroutine as before, but rendering Info/Log events through
// ui happens on a second goroutine. The channel is bounded at one
// in-flight event: one producer (this loop), one consumer (the redraw
// goroutine), capacity one so a reply is always answered before the next
// event is read.
func (o *Orchestrator) RunWithUI(ctx context.Context, mod *registry.Module, arg []byte, ui UI) error {
	if ui == nil {
		return o.Run(ctx, mod, arg, nil)
	}

	bridge := &asyncUI{events: make(chan isolation.Event, 1)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range bridge.events {
			switch ev.Kind {
			case isolation.EventInfo:
				ui.Info(ev.Info)
			case isolation.EventLog:
				ui.Log(ev.Log)
			}
		}
	}()
	defer func() {
		close(bridge.events)
		<-done
	}()

	return isolation.SpawnModule(mod, arg, o.handle(ctx, mod, bridge))
}
