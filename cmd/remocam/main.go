package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/remocam/internal/config"
	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	_ "github.com/cjeanneret/remocam/internal/hw/sdk/sim" // registers the "sim" transport
	"github.com/cjeanneret/remocam/internal/hw/session"
	"github.com/cjeanneret/remocam/internal/journal"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/remote"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var defaultConfigPath = filepath.Join("configs", "default.yaml")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// app is what every subcommand gets: the loaded configuration, the logger
// and the output streams.
type app struct {
	cfg    *config.Config
	log    *debug.Logger
	stdout io.Writer
	stderr io.Writer
}

type subcommand struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var subcommands = map[string]subcommand{
	"capture": {"capture [-dir d]", runCapture},
	"get":     {"get -prop name", runGet},
	"set":     {"set -prop name -value v", runSet},
	"shell":   {"shell", runShell},
	"serve":   {"serve [-web port]", runServe},
	"journal": {"journal [-kind k] <file>", runJournal},
}

var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("remocam", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to config file (default "+defaultConfigPath+" when present)")
	verbose := fs.Bool("verbose", false, "raise the debug level to verbose")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if fs.NArg() == 0 {
		usage(fs, stderr)
		return exitUsage
	}
	name := fs.Arg(0)
	sub, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(fs, stderr)
		return exitUsage
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config failed: %v\n", err)
		return exitFailure
	}
	level := cfg.DebugLevel
	if *verbose && level < debug.LevelVerbose {
		level = debug.LevelVerbose
	}
	log := debug.New(level, stderr)
	log.Section("Initialization")
	log.Value("Config path", *cfgPath)
	log.Value("Debug level", level)
	log.Value("Transport", cfg.Device.Transport)

	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr}
	if err := sub.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "usage: remocam [-config path] [-verbose] %s\n", sub.usage)
			return exitUsage
		}
		fmt.Fprintf(stderr, "%s failed: %v\n", name, err)
		return exitFailure
	}
	return exitOK
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: remocam [-config path] [-verbose] <command> [args]")
	fs.PrintDefaults()
	fmt.Fprintln(w, "commands:")
	for _, n := range []string{"capture", "get", "set", "shell", "serve", "journal"} {
		fmt.Fprintf(w, "  %s\n", subcommands[n].usage)
	}
}

// loadConfig reads path. Without a path, configs/default.yaml is used when
// it exists and the built-in defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// timingsFromConfig maps the configured delays. Zero entries keep the
// device defaults.
func timingsFromConfig(t config.TimingsConfig) capture.Timings {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return capture.Timings{
		ReleaseHold:       ms(t.ReleaseHoldMs),
		HalfPressHold:     ms(t.HalfPressHoldMs),
		AFLockSettle:      ms(t.AFLockSettleMs),
		AFReleaseSettle:   ms(t.AFReleaseSettleMs),
		PrioritySettle:    ms(t.PrioritySettleMs),
		HalfPressSettle:   ms(t.HalfPressSettleMs),
		FullPressHold:     ms(t.FullPressHoldMs),
		ReleaseSettle:     ms(t.ReleaseSettleMs),
		ContinuousSettle:  ms(t.ContinuousSettleMs),
		ContinuousHold:    ms(t.ContinuousHoldMs),
		WBStepSettle:      ms(t.WBStepSettleMs),
		WBModeSettle:      ms(t.WBModeSettleMs),
		WBToggle:          ms(t.WBToggleMs),
		WBStandbyPoll:     ms(t.WBStandbyPollMs),
		WBStandbyAttempts: t.WBStandbyAttempts,
		WBCaptureSettle:   ms(t.WBCaptureSettleMs),
		PositionSettle:    ms(t.PositionSettleMs),
		FocusAreaSettle:   ms(t.FocusAreaSettleMs),
		FormatPoll:        ms(t.FormatPollMs),
		GetSettle:         ms(t.GetSettleMs),
		SetSettle:         ms(t.SetSettleMs),
		WaitPoll:          ms(t.WaitPollMs),
		WaitAttempts:      t.WaitAttempts,
	}
}

func sessionMode(s string) sdk.Mode {
	if s == "transfer" {
		return sdk.ModeContentsTransfer
	}
	return sdk.ModeRemote
}

// stack owns a started remote stack and its journal.
type stack struct {
	*remote.Remote
	journal *journal.Journal
	saveDir string
	stop    context.CancelFunc
	log     *debug.Logger
}

// openStack opens the transport and starts the dispatcher. saveDir
// overrides the configured download directory when not empty.
func (a *app) openStack(ctx context.Context, saveDir string) (*stack, error) {
	cfg := a.cfg
	a.log.Step(1, "Opening transport")
	tr, err := sdk.Open(cfg.Device.Transport)
	if err != nil {
		return nil, err
	}
	if saveDir == "" {
		saveDir = cfg.Device.SaveDir
	}
	if saveDir == "" {
		if saveDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	a.log.Value("Save dir", saveDir)

	r := remote.New(tr, remote.Options{
		Mode:           sessionMode(cfg.Device.Mode),
		Save:           session.SaveInfo{Path: saveDir, Prefix: cfg.Device.SavePrefix, StartIndex: cfg.StartIndex()},
		ConnectTimeout: cfg.ConnectTimeout(),
		QueueSize:      cfg.Dispatcher.QueueSize,
		AutoExit:       cfg.Device.ReleaseAfterDownload,
		Timings:        timingsFromConfig(cfg.Timings),
	}, a.log)

	s := &stack{Remote: r, saveDir: saveDir, log: a.log}
	if cfg.Journal.Path != "" {
		a.log.Step(2, "Opening journal")
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = j
		r.Dispatcher.Subscribe(j.Observe)
	}

	dctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	r.Start(dctx)
	return s, nil
}

// Close disconnects, releases the device and closes the journal.
func (s *stack) Close() error {
	err := s.Remote.Close(context.Background())
	s.stop()
	if s.journal != nil {
		if jerr := s.journal.Err(); jerr != nil {
			s.log.Warn("journal: %v", jerr)
		}
		if cerr := s.journal.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// webPortFlag implements flag.Value for -web: -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w == nil || w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int {
	if w.val == 0 {
		return w.defaultPort
	}
	return w.val
}
