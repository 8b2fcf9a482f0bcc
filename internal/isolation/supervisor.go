package isolation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/corvidrecon/corvid/internal/registry"
)

// Supervisor is the parent side of the isolation channel: it re-execs the
// current binary under a "sandbox" subcommand, and speaks newline-delimited
// JSON over the child's stdin/stdout, grounded on
// original_source/src/engine/isolation.rs's Supervisor.
type Supervisor struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	parentStdin *bufio.Scanner
}

// Setup spawns "<self> sandbox <author/name>" with piped stdin/stdout.
func Setup(mod *registry.Module) (*Supervisor, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("isolation: failed to find current executable: %w", err)
	}

	cmd := exec.Command(exe, "sandbox", mod.Canonical())
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("isolation: failed to open child stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("isolation: failed to open child stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("isolation: failed to spawn child process: %w", err)
	}

	return &Supervisor{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// SendStart writes the single StartCommand frame.
func (s *Supervisor) SendStart(mod *registry.Module, arg json.RawMessage) error {
	return s.send(StartCommand{Module: mod, Arg: arg})
}

// Send writes one JSON value followed by a newline to the child's stdin.
func (s *Supervisor) Send(v interface{}) error {
	return s.send(v)
}

func (s *Supervisor) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("isolation: failed to encode frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.stdin.Write(data); err != nil {
		return fmt.Errorf("isolation: failed to write to child stdin: %w", err)
	}
	return nil
}

// Recv reads and decodes the next Event line from the child's stdout.
func (s *Supervisor) Recv() (Event, error) {
	line, err := s.stdout.ReadString('\n')
	if err != nil && line == "" {
		return Event{}, fmt.Errorf("isolation: failed to read from child stdout: %w", err)
	}
	var event Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return Event{}, fmt.Errorf("isolation: failed to decode event: %w", err)
	}
	return event, nil
}

// nextStdinLine answers one StdinRequest event: it lazily wraps the
// parent process's own os.Stdin in a scanner and returns its next line,
// or ok=false once that stream is exhausted.
func (s *Supervisor) nextStdinLine() (line string, ok bool) {
	if s.parentStdin == nil {
		s.parentStdin = bufio.NewScanner(os.Stdin)
	}
	if !s.parentStdin.Scan() {
		return "", false
	}
	return s.parentStdin.Text(), true
}

// Wait closes the supervisor's end of stdin and waits for the child to
// exit, failing if it exits non-zero.
func (s *Supervisor) Wait() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("isolation: child signaled error: %w", err)
	}
	return nil
}

// Handler is invoked by SpawnModule for each event the child emits. For
// an Object event, it must insert the object and return the reply to
// relay back to the child; for any other event, reply is ignored.
type Handler func(Event) (reply Reply, err error)

// SpawnModule runs one module invocation end to end: spawn the child,
// send the Start frame, and loop replying to Object events until the
// child reports Done or Error. Mirrors
// original_source/src/engine/isolation.rs's spawn_module, collapsed from
// its channel-based concurrency into direct calls since the orchestrator
// already guarantees single-module-at-a-time execution.
func SpawnModule(mod *registry.Module, arg json.RawMessage, handle Handler) error {
	sup, err := Setup(mod)
	if err != nil {
		return err
	}
	if err := sup.SendStart(mod, arg); err != nil {
		return err
	}

	for {
		event, err := sup.Recv()
		if err != nil {
			return err
		}

		switch event.Kind {
		case EventDone:
			return sup.Wait()
		case EventError:
			_, _ = handle(event)
			// Drain the child even on a reported error, matching
			// spawn_module's break-then-wait sequencing.
			_ = sup.Wait()
			return fmt.Errorf("isolation: module reported error: %s", event.Error)
		case EventObject:
			reply, herr := handle(event)
			if herr != nil {
				reply = ErrReply(herr.Error())
			}
			if err := sup.Send(reply); err != nil {
				return err
			}
		case EventStdinRequest:
			line, ok := sup.nextStdinLine()
			var reply Line
			if ok {
				reply = LineValue(line)
			} else {
				reply = NoLine()
			}
			if err := sup.Send(reply); err != nil {
				return err
			}
		default:
			if _, err := handle(event); err != nil {
				return err
			}
		}
	}
}
