package script

import (
	"sync"

	"github.com/corvidrecon/corvid/internal/isolation"
)

// state is shared by every binding registered against one Lua
// interpreter instance. It serializes access to the Reporter (a script
// runs single-threaded, but bindings may be called reentrantly through
// pcall) and latches the first binding error, which Run reports in place
// of success. The latch does not block later binding calls: they still
// send their frames to the Reporter. Grounded on
// original_source/src/engine/ctx.rs's State.set_error/latch_error.
type state struct {
	mu       sync.Mutex
	reporter isolation.Reporter
	latched  error
}

func newState(reporter isolation.Reporter) *state {
	return &state{reporter: reporter}
}

// setError latches the first error reported by a binding and returns it,
// so callers can `return nil, s.setError(err)` in one line.
func (s *state) setError(err error) error {
	s.mu.Lock()
	if s.latched == nil {
		s.latched = err
	}
	s.mu.Unlock()
	return err
}

// failed reports whether a prior binding call already latched an error.
func (s *state) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched != nil
}

// sendObject submits an Object event to the parent and waits for its
// reply, serialized against concurrent use of the same Reporter.
func (s *state) sendObject(ev isolation.Event) (isolation.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reporter.Send(ev); err != nil {
		return isolation.Reply{}, err
	}
	return s.reporter.RecvReply()
}

// send submits a non-Object event (Info/Log) with no reply expected.
func (s *state) send(ev isolation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reporter.Send(ev)
}

// readLine requests a line from the parent's own stdin, serialized
// against concurrent use of the same Reporter.
func (s *state) readLine() (isolation.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reporter.Send(isolation.StdinRequestEvent()); err != nil {
		return isolation.Line{}, err
	}
	return s.reporter.RecvLine()
}
