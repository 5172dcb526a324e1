// Package remote assembles one remote-control stack around a transport:
// the session, the property cache, the event dispatcher, the command
// sequencer and the content browser.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/hw/session"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/logic/content"
	"github.com/cjeanneret/remocam/internal/logic/events"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

const defaultConnectTimeout = 3 * time.Second

// ErrNotStarted is returned by Connect before Start.
var ErrNotStarted = errors.New("remote: dispatcher not started")

// Options configures a Remote.
type Options struct {
	Mode           sdk.Mode
	Save           session.SaveInfo
	ConnectTimeout time.Duration
	QueueSize      int
	// AutoExit closes Done at the first completed download.
	AutoExit bool
	Timings  capture.Timings
}

// Remote is the wired stack. The exported components are ready to use
// once Connect returned.
type Remote struct {
	Session    *session.Manager
	Cache      *property.Cache
	Dispatcher *events.Dispatcher
	Seq        *capture.Sequencer
	Content    *content.Browser

	opts Options
	log  *debug.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New wires a stack on tr. Nothing talks to the device before Connect.
func New(tr sdk.Transport, opts Options, log *debug.Logger) *Remote {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	sess := session.NewManager(tr, opts.Save, log)
	cache := property.NewCache(sess)
	return &Remote{
		Session:    sess,
		Cache:      cache,
		Dispatcher: events.New(events.Options{QueueSize: opts.QueueSize, AutoExit: opts.AutoExit}, cache, sess, log),
		Seq:        capture.New(sess, cache, sess, opts.Timings, log),
		Content:    content.NewBrowser(sess, log),
		opts:       opts,
		log:        log,
	}
}

// Mode returns the configured session mode.
func (r *Remote) Mode() sdk.Mode { return r.opts.Mode }

// Start runs the dispatcher until ctx is done or Close is called.
func (r *Remote) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.stopped = make(chan struct{})
	go func() {
		defer close(r.stopped)
		_ = r.Dispatcher.Run(ctx)
	}()
}

func (r *Remote) started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Connect opens a session in the configured mode and waits for the device
// to acknowledge it. A session that is not acknowledged in time is
// released.
func (r *Remote) Connect(ctx context.Context) error {
	return r.ConnectMode(ctx, r.opts.Mode)
}

// ConnectMode is Connect with an explicit mode.
func (r *Remote) ConnectMode(ctx context.Context, mode sdk.Mode) error {
	if !r.started() {
		return ErrNotStarted
	}
	r.log.Section("Connect")
	if err := r.Session.Connect(mode, r.Dispatcher.Callbacks()); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()
	if err := r.Session.WaitConnected(wctx); err != nil {
		r.log.Warn("no connect acknowledgement: %v", err)
		if rerr := r.Session.Release(); rerr != nil && !errors.Is(rerr, session.ErrReleased) {
			r.log.Warn("release after failed connect: %v", rerr)
		}
		return fmt.Errorf("wait for connection: %w", err)
	}
	r.log.Info("connected (session %s, %s)", r.Session.ID(), mode)
	return nil
}

// Disconnect closes the session, waits for the device to confirm and
// releases the handle. The handle is released even when the confirmation
// does not arrive in time.
func (r *Remote) Disconnect(ctx context.Context) error {
	if err := r.Session.Disconnect(); err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			return r.release()
		}
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()
	if err := r.Session.WaitDisconnected(wctx); err != nil {
		r.log.Warn("no disconnect confirmation: %v", err)
	}
	return r.release()
}

func (r *Remote) release() error {
	err := r.Session.Release()
	if errors.Is(err, session.ErrReleased) {
		return nil
	}
	return err
}

// UntilDone returns a context that is also cancelled when the dispatcher
// reports the auto exit download.
func (r *Remote) UntilDone(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-r.Dispatcher.Done():
			r.log.Info("download complete, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Close disconnects if needed and stops the dispatcher.
func (r *Remote) Close(ctx context.Context) error {
	var err error
	if r.Session.Handle() != 0 {
		err = r.Disconnect(ctx)
	}

	r.mu.Lock()
	cancel, stopped := r.cancel, r.stopped
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-stopped
	}
	return err
}
