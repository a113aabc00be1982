package generator

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/monitoring"
)

// Bridge drives an external event generator (typically a Pythia steering
// program) that writes HepMC2 ASCII events to stdout. The process is started
// on the first event and read one event per call.
type Bridge struct {
	command string
	args    []string
	cmd     *exec.Cmd
	reader  *HepMCAscii
}

// NewBridge returns a bridge for the given command. The command must be
// resolvable on PATH or be a path to an executable.
func NewBridge(command string, args ...string) (*Bridge, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("bridge command is empty")
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("bridge command not found: %w", err)
	}
	return &Bridge{command: command, args: args, reader: NewHepMCAscii()}, nil
}

// Command returns the command line the bridge runs.
func (b *Bridge) Command() string {
	return strings.Join(append([]string{b.command}, b.args...), " ")
}

// SetVerbose forwards the verbosity to the embedded reader.
func (b *Bridge) SetVerbose(level int) { b.reader.SetVerbose(level) }

func (b *Bridge) start() error {
	cmd := exec.Command(b.command, b.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("bridge stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start bridge %q: %w", b.command, err)
	}
	monitoring.Logf("bridge: started %s (pid %d)", b.Command(), cmd.Process.Pid)
	b.cmd = cmd
	// the pipe is closed by cmd.Wait, not by the reader
	b.reader.attach(stdout, nil)
	return nil
}

// GeneratePrimaryVertex implements Generator.
func (b *Bridge) GeneratePrimaryVertex(evt *event.Event) error {
	if b.cmd == nil {
		if err := b.start(); err != nil {
			return err
		}
	}
	if err := b.reader.GeneratePrimaryVertex(evt); err != nil {
		return fmt.Errorf("bridge %s: %w", b.command, err)
	}
	return nil
}

// Close stops the external process. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.reader.Close()
	cmd := b.cmd
	b.cmd = nil
	if cmd == nil {
		return nil
	}
	if cmd.ProcessState == nil {
		// the generator may still be producing events; stop it
		_ = cmd.Process.Kill()
	}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("bridge wait: %w", err)
	}
	return nil
}
