package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/cjeanneret/remocam/internal/hw/camera"
	"github.com/cjeanneret/remocam/internal/hw/gpio"
	"github.com/cjeanneret/remocam/internal/journal"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/logic/property"
	"github.com/cjeanneret/remocam/internal/shell"
	"github.com/cjeanneret/remocam/internal/web"
)

// downloadTimeout bounds the wait for the transferred file after a shot.
const downloadTimeout = 30 * time.Second

var _ camera.Camera = (*capture.Sequencer)(nil)

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// connected opens the stack, connects and hands it to fn. The session is
// closed and the device released whatever fn returns.
func (a *app) connected(ctx context.Context, saveDir string, fn func(s *stack) error) (err error) {
	s, err := a.openStack(ctx, saveDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Connect(ctx); err != nil {
		return err
	}
	return fn(s)
}

func runCapture(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("capture", a.stderr)
	dir := fs.String("dir", "", "download directory (default: device.save_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	return a.connected(ctx, *dir, func(s *stack) error {
		a.log.Section("Capture")
		if err := s.Seq.HalfFullRelease(ctx); err != nil {
			return err
		}
		if !a.cfg.Device.ReleaseAfterDownload {
			fmt.Fprintln(a.stdout, "shot taken")
			return nil
		}

		select {
		case path := <-s.Dispatcher.Downloads():
			fmt.Fprintf(a.stdout, "downloaded %s\n", path)
			return nil
		case <-time.After(downloadTimeout):
			return fmt.Errorf("no download within %s", downloadTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func propFlags(name string, a *app, withValue bool) (*flag.FlagSet, *string, *string) {
	fs := newFlagSet(name, a.stderr)
	prop := fs.String("prop", "", "property name or code, e.g. FNumber or 0x0100")
	var value *string
	if withValue {
		value = fs.String("value", "", "value as printed by get, e.g. F8.0")
	}
	return fs, prop, value
}

func runGet(ctx context.Context, a *app, args []string) error {
	fs, prop, _ := propFlags("get", a, false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prop == "" {
		return errUsage
	}
	code, err := property.Resolve(*prop)
	if err != nil {
		return err
	}

	return a.connected(ctx, "", func(s *stack) error {
		v, err := s.Seq.GetValue(ctx, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s = %s\n", code, v)
		return nil
	})
}

func runSet(ctx context.Context, a *app, args []string) error {
	fs, prop, value := propFlags("set", a, true)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prop == "" || *value == "" {
		return errUsage
	}
	code, err := property.Resolve(*prop)
	if err != nil {
		return err
	}
	v, err := property.Parse(code, *value)
	if err != nil {
		return err
	}

	return a.connected(ctx, "", func(s *stack) error {
		if err := s.Seq.SetValue(ctx, code, v.Raw()); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s <- %s\n", code, v)
		return nil
	})
}

// startTrigger runs the hardware button while ctx is live. It returns a
// stop function that waits for the trigger and releases the GPIO.
func (a *app) startTrigger(ctx context.Context, cam camera.Camera) (func(), error) {
	t := a.cfg.Trigger
	if !t.Enabled {
		return func() {}, nil
	}
	a.log.Value("Mock GPIO", t.MockGPIO)
	drv, err := gpio.NewDriver(t.MockGPIO, a.log)
	if err != nil {
		return nil, err
	}
	trig, err := camera.NewTrigger(drv, cam, camera.TriggerConfig{
		InputPin: t.InputPin,
		BusyPin:  t.BusyPin,
		Poll:     a.cfg.TriggerPoll(),
		Debounce: a.cfg.TriggerDebounce(),
	}, a.log)
	if err != nil {
		drv.Close()
		return nil, err
	}

	tctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := trig.Run(tctx); err != nil {
			a.log.Warn("trigger: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
		a.log.Info("trigger: %d shots, %d failed", trig.Shots(), trig.Failed())
		if err := drv.Close(); err != nil {
			a.log.Warn("closing GPIO driver failed: %v", err)
		}
	}, nil
}

func runShell(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	s, err := a.openStack(ctx, "")
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			a.log.Warn("close: %v", err)
		}
	}()

	sh, err := shell.New(s.Remote, s.saveDir, a.log)
	if err != nil {
		return err
	}
	s.Dispatcher.Subscribe(sh.Observe)

	stop, err := a.startTrigger(ctx, s.Seq)
	if err != nil {
		return err
	}
	defer stop()

	if err := s.Connect(ctx); err != nil {
		fmt.Fprintf(sh.Stdout(), "connect failed: %v (use \"connect\" to retry)\n", err)
	}
	return sh.Run(ctx)
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve", a.stderr)
	defPort := a.cfg.Web.Port
	if defPort == 0 {
		defPort = 8080
	}
	webPort := &webPortFlag{defaultPort: defPort}
	fs.Var(webPort, "web", "web server port; -web= for the configured port (8080 when unset)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	return a.connected(ctx, "", func(s *stack) error {
		ctx, cancel := s.UntilDone(ctx)
		defer cancel()

		broadcaster := web.NewStatusBroadcaster()
		a.log.SetOutput(io.MultiWriter(a.stderr, web.BroadcastWriter(broadcaster)))
		defer a.log.SetOutput(a.stderr)
		s.Dispatcher.Subscribe(broadcaster.Observe)

		stop, err := a.startTrigger(ctx, s.Seq)
		if err != nil {
			return err
		}
		defer stop()

		srv, err := web.NewServer(fmt.Sprintf(":%d", webPort.port()), broadcaster, s.Remote, s.Seq, a.log)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	})
}

func runJournal(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("journal", a.stderr)
	kind := fs.String("kind", "", "only print records of this event kind")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	n, err := journal.Dump(fs.Arg(0), *kind, a.stdout)
	if err != nil {
		return err
	}
	a.log.Info("%d records", n)
	return nil
}
