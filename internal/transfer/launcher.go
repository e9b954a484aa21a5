package transfer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Launcher starts helper processes wired to three pipes.
type Launcher struct {
	newPipe pipeFactory
}

// NewLauncher returns a Launcher using the host's pipe primitive.
func NewLauncher() *Launcher {
	return &Launcher{newPipe: createPipe}
}

// child is a running helper and the manager's ends of its pipes.
type child struct {
	cmd *exec.Cmd
	pid int

	input     *os.File // helper stdin, write end
	primary   *os.File // helper stderr, read end
	secondary *os.File // helper stdout, read end

	exited   chan struct{}
	exitCode int
	waitErr  error
}

// spawn starts program with c's arguments. On failure every handle created
// so far is closed before returning.
func (l *Launcher) spawn(program string, c Command) (*child, error) {
	var pipes pipeSet
	defer func() { _ = pipes.closeAll() }()

	inR, inW, err := pipes.open(l.newPipe)
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := prepareInput(inW); err != nil {
		return nil, fmt.Errorf("configure stdin pipe: %w", err)
	}
	outR, outW, err := pipes.open(l.newPipe)
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	errR, errW, err := pipes.open(l.newPipe)
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd := exec.Command(program, c.Argv()...)
	cmd.Dir = c.Dir
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcAttr(cmd, program, c)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	ch := &child{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		input:     pipes.release(inW),
		secondary: pipes.release(outR),
		primary:   pipes.release(errR),
		exited:    make(chan struct{}),
	}
	// The child's ends are closed by the deferred closeAll; the helper holds its own copies.
	go ch.wait()
	return ch, nil
}

// wait reaps the helper. It is the only writer of exitCode and waitErr,
// which are read after exited is closed.
func (c *child) wait() {
	defer close(c.exited)
	err := c.cmd.Wait()
	c.waitErr = err
	c.exitCode = 0
	if err == nil {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			c.exitCode = -1
			return
		}
		c.exitCode = exitErr.ExitCode()
		return
	}
	c.exitCode = -1
}

// alive reports whether the helper is still running.
func (c *child) alive() bool {
	select {
	case <-c.exited:
		return false
	default:
		return true
	}
}

// waitExit blocks for at most d and reports whether the helper exited.
func (c *child) waitExit(d time.Duration) bool {
	if d <= 0 {
		return !c.alive()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.exited:
		return true
	case <-timer.C:
		return false
	}
}

// terminate force-kills the helper's process group, falling back to the
// process alone.
func (c *child) terminate() error {
	if !c.alive() {
		return nil
	}
	if err := killProcessGroup(c.pid); err != nil {
		if kerr := c.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			return errors.Join(err, kerr)
		}
	}
	return nil
}

func (c *child) closeInput() error {
	if c.input == nil {
		return nil
	}
	err := c.input.Close()
	c.input = nil
	return err
}

func (c *child) closeOutputs() error {
	var errs []error
	for _, f := range []**os.File{&c.primary, &c.secondary} {
		if *f == nil {
			continue
		}
		if err := (*f).Close(); err != nil {
			errs = append(errs, err)
		}
		*f = nil
	}
	return errors.Join(errs...)
}
