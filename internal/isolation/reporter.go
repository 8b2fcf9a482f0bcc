package isolation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/corvidrecon/corvid/internal/registry"
)

// Reporter is the child-process handle a script execution uses to emit
// events and receive the parent's response: an Ok/Err reply to an Object
// event, or a bare line (or none) in answer to a StdinRequest event.
// Defined here (rather than in package script) so the script runtime can
// depend on it without isolation depending back on script.
type Reporter interface {
	Send(Event) error
	RecvReply() (Reply, error)
	RecvLine() (Line, error)
}

// ScriptRunner executes a module's script body against a Reporter. The
// concrete implementation lives in package script; isolation only needs
// the narrow interface to drive the child-process loop.
type ScriptRunner interface {
	Run(reporter Reporter, mod *registry.Module, arg json.RawMessage) error
}

// StdioReporter is the concrete Reporter for the sandboxed child process:
// it speaks newline-delimited JSON over os.Stdin/os.Stdout, grounded on
// original_source/src/engine/isolation.rs's StdioReporter.
type StdioReporter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdioReporter wraps the given stdin/stdout streams.
func NewStdioReporter(stdin io.Reader, stdout io.Writer) *StdioReporter {
	return &StdioReporter{in: bufio.NewReader(stdin), out: stdout}
}

// RecvStart reads and decodes the single Start frame the supervisor sends
// at the beginning of the child's life.
func (r *StdioReporter) RecvStart() (StartCommand, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return StartCommand{}, fmt.Errorf("isolation: failed to read start frame: %w", err)
	}
	var start StartCommand
	if err := json.Unmarshal([]byte(line), &start); err != nil {
		return StartCommand{}, fmt.Errorf("isolation: failed to decode start frame: %w", err)
	}
	return start, nil
}

func (r *StdioReporter) Send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("isolation: failed to encode event: %w", err)
	}
	data = append(data, '\n')
	_, err = r.out.Write(data)
	return err
}

func (r *StdioReporter) RecvReply() (Reply, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return Reply{}, fmt.Errorf("isolation: failed to read reply: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal([]byte(line), &reply); err != nil {
		return Reply{}, fmt.Errorf("isolation: failed to decode reply: %w", err)
	}
	return reply, nil
}

func (r *StdioReporter) RecvLine() (Line, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return Line{}, fmt.Errorf("isolation: failed to read line reply: %w", err)
	}
	var l Line
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return Line{}, fmt.Errorf("isolation: failed to decode line reply: %w", err)
	}
	return l, nil
}

// RunChild drives the child-process side of one module invocation: read
// the Start frame, run the module's script via runner, and emit a
// terminal Done or Error event. Mirrors
// original_source/src/engine/isolation.rs's run_worker.
func RunChild(stdin io.Reader, stdout io.Writer, runner ScriptRunner) error {
	reporter := NewStdioReporter(stdin, stdout)

	start, err := reporter.RecvStart()
	if err != nil {
		return err
	}

	runErr := runner.Run(reporter, start.Module, start.Arg)
	if runErr != nil {
		return reporter.Send(ErrorEvent(runErr.Error()))
	}
	return reporter.Send(DoneEvent())
}
