// Package isolation implements the parent/child wire protocol: newline-
// delimited JSON, one value per line, carrying a Start frame,
// Object/Info/Log/Error/Done/StdinRequest events, and Ok/Err replies.
// Grounded line-for-line on original_source/src/engine/isolation.rs.
package isolation

import (
	"encoding/json"
	"fmt"

	"github.com/corvidrecon/corvid/internal/asset"
	"github.com/corvidrecon/corvid/internal/registry"
)

// EventKind discriminates the Event tagged variant.
type EventKind string

const (
	EventObject       EventKind = "Object"
	EventInfo         EventKind = "Info"
	EventLog          EventKind = "Log"
	EventError        EventKind = "Error"
	EventDone         EventKind = "Done"
	EventStdinRequest EventKind = "StdinRequest"
)

// Event is the child→parent frame. Done and StdinRequest carry no
// payload and are serialized as bare JSON strings ("Done",
// "StdinRequest"), matching serde's default rendering of a Rust unit enum
// variant.
type Event struct {
	Kind   EventKind
	Object asset.Object
	Info   string
	Log    string
	Error  string
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventDone:
		return json.Marshal("Done")
	case EventStdinRequest:
		return json.Marshal("StdinRequest")
	case EventObject:
		return json.Marshal(map[string]asset.Object{"Object": e.Object})
	case EventInfo:
		return json.Marshal(map[string]string{"Info": e.Info})
	case EventLog:
		return json.Marshal(map[string]string{"Log": e.Log})
	case EventError:
		return json.Marshal(map[string]string{"Error": e.Error})
	default:
		return nil, fmt.Errorf("isolation: unknown event kind %q", e.Kind)
	}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		switch bare {
		case "Done":
			e.Kind = EventDone
		case "StdinRequest":
			e.Kind = EventStdinRequest
		default:
			return fmt.Errorf("isolation: unexpected bare event tag %q", bare)
		}
		return nil
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("isolation: malformed event: %w", err)
	}
	if len(wire) != 1 {
		return fmt.Errorf("isolation: event must have exactly one tag, got %d", len(wire))
	}
	for tag, raw := range wire {
		switch EventKind(tag) {
		case EventObject:
			var obj asset.Object
			if err := json.Unmarshal(raw, &obj); err != nil {
				return err
			}
			e.Kind, e.Object = EventObject, obj
		case EventInfo:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			e.Kind, e.Info = EventInfo, s
		case EventLog:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			e.Kind, e.Log = EventLog, s
		case EventError:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			e.Kind, e.Error = EventError, s
		default:
			return fmt.Errorf("isolation: unknown event tag %q", tag)
		}
	}
	return nil
}

// DoneEvent, ErrorEvent, ObjectEvent, InfoEvent, LogEvent, and
// StdinRequestEvent are small constructors so callers don't build Event
// literals by hand.
func DoneEvent() Event                 { return Event{Kind: EventDone} }
func ErrorEvent(msg string) Event      { return Event{Kind: EventError, Error: msg} }
func ObjectEvent(o asset.Object) Event { return Event{Kind: EventObject, Object: o} }
func InfoEvent(msg string) Event       { return Event{Kind: EventInfo, Info: msg} }
func LogEvent(msg string) Event        { return Event{Kind: EventLog, Log: msg} }
func StdinRequestEvent() Event         { return Event{Kind: EventStdinRequest} }

// Reply is the parent's response to an Object event: a tagged
// {Ok: id} | {Err: msg} result.
type Reply struct {
	OK      bool
	ID      int64
	Message string
}

func OkReply(id int64) Reply    { return Reply{OK: true, ID: id} }
func ErrReply(msg string) Reply { return Reply{OK: false, Message: msg} }

func (r Reply) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(map[string]int64{"Ok": r.ID})
	}
	return json.Marshal(map[string]string{"Err": r.Message})
}

func (r *Reply) UnmarshalJSON(data []byte) error {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("isolation: malformed reply: %w", err)
	}
	if raw, ok := wire["Ok"]; ok {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		r.OK, r.ID = true, id
		return nil
	}
	if raw, ok := wire["Err"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		r.OK, r.Message = false, msg
		return nil
	}
	return fmt.Errorf("isolation: reply must be Ok or Err")
}

// Line is the parent's reply to a StdinRequest event: a bare JSON string
// holding the next line from the parent's own stdin, or JSON null when
// the parent has none to forward.
type Line struct {
	Value   string
	Present bool
}

func LineValue(s string) Line { return Line{Value: s, Present: true} }
func NoLine() Line            { return Line{} }

func (l Line) MarshalJSON() ([]byte, error) {
	if !l.Present {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

func (l *Line) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Line{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("isolation: malformed line reply: %w", err)
	}
	*l = Line{Value: s, Present: true}
	return nil
}

// StartCommand is the single parent→child frame sent once at the start of
// an invocation.
type StartCommand struct {
	Module *registry.Module `json:"module"`
	Arg    json.RawMessage  `json:"arg"`
}
