// Package shell is the interactive operator console. It reads commands with
// readline, runs them against a remote stack and prints the asynchronous
// notifications the operator has to see.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/logic/events"
	"github.com/cjeanneret/remocam/internal/remote"
)

const prompt = "remocam> "

// LineReader reads one line of operator input. It returns io.EOF when the
// input is closed and readline.ErrInterrupt on Ctrl-C.
type LineReader interface {
	Readline() (string, error)
}

// Shell is the console.
type Shell struct {
	r   *remote.Remote
	in  LineReader
	out io.Writer
	dir string
	log *debug.Logger

	setPrompt func(string)
	close     func() error
	closeOnce sync.Once
	cmds      map[string]command
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// New opens a readline console on the terminal. Files the console writes
// (thumbnails, live view frames) go to dir.
func New(r *remote.Remote, dir string, log *debug.Logger) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline: %w", err)
	}
	s := NewWithReader(r, rl, rl.Stdout(), dir, log)
	s.setPrompt = rl.SetPrompt
	s.close = rl.Close
	log.SetOutput(rl.Stderr())
	return s, nil
}

// NewWithReader builds a console on any line source.
func NewWithReader(r *remote.Remote, in LineReader, out io.Writer, dir string, log *debug.Logger) *Shell {
	s := &Shell{
		r:   r,
		in:  in,
		out: &lockedWriter{w: out},
		dir: dir,
		log: log,
	}
	s.cmds = s.commands()
	return s
}

// Stdout returns the console output.
func (s *Shell) Stdout() io.Writer { return s.out }

// Prompt asks one question. Ctrl-C and Ctrl-D both end the answer stream
// with io.EOF.
func (s *Shell) Prompt(label string) (string, error) {
	if s.setPrompt != nil {
		s.setPrompt(label + ": ")
		defer s.setPrompt(prompt)
	} else {
		fmt.Fprintf(s.out, "%s: ", label)
	}
	line, err := s.in.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var _ capture.Input = (*Shell)(nil)

// Observe prints the events the operator must act on. Register it on the
// dispatcher.
func (s *Shell) Observe(e events.Event) {
	switch {
	case e.Kind == events.KindDownloadComplete:
		fmt.Fprintf(s.out, "\ndownloaded %s\n", e.Filename)
	case e.Kind == events.KindContentsTransfer && e.Filename != "":
		fmt.Fprintf(s.out, "\ntransfer %s: %s\n", e.Status, e.Filename)
	case e.Err != nil:
		fmt.Fprintf(s.out, "\nproperty refresh failed: %v\n", e.Err)
	}
	switch e.Guidance.Action {
	case events.ActionNotify, events.ActionRetry:
		fmt.Fprintf(s.out, "\n! %s\n", e.Guidance.Message)
	case events.ActionReturnToMenu:
		fmt.Fprintf(s.out, "\n! %s (back to the main menu)\n", e.Guidance.Message)
	}
}

// Run reads and executes commands until quit, end of input or ctx is done.
// With auto exit configured, the first completed download also ends it.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.stopReading()
	go func() {
		select {
		case <-s.r.Dispatcher.Done():
			fmt.Fprintln(s.out, "\ndownload complete, leaving")
			cancel()
			s.stopReading()
		case <-ctx.Done():
		}
	}()
	fmt.Fprintln(s.out, `type "help" for the command list`)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.in.Readline()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		quit, err := s.Exec(ctx, line)
		if err != nil {
			s.report(err)
		}
		if quit {
			return nil
		}
	}
}

// stopReading closes the line source, which unblocks a pending Readline.
func (s *Shell) stopReading() {
	s.closeOnce.Do(func() {
		if s.close != nil {
			_ = s.close()
			return
		}
		if c, ok := s.in.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// Exec runs one command line. quit is set by the quit command.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.help()
		return false, nil
	}
	cmd, ok := s.cmds[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	s.log.Trace("shell: %s", line)
	return false, cmd.run(ctx, fields[1:])
}

func (s *Shell) report(err error) {
	var serr *capture.SequenceError
	switch {
	case errors.Is(err, capture.ErrCancelled):
		fmt.Fprintln(s.out, "cancelled")
	case errors.As(err, &serr):
		fmt.Fprintf(s.out, "%s failed at step %d (%s, %s): %v\n",
			serr.Sequence, serr.Step, serr.StepName, serr.Outcome, serr.Err)
	default:
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *Shell) help() {
	names := make([]string, 0, len(s.cmds))
	for n := range s.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := s.cmds[n]
		fmt.Fprintf(s.out, "  %-28s %s\n", strings.TrimSpace(n+" "+c.usage), c.help)
	}
	fmt.Fprintf(s.out, "  %-28s %s\n", "quit", "leave the console")
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
