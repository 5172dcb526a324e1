package camera

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/gpio"
)

// TriggerConfig wires a push button and an optional busy LED.
//
// The button goes from InputPin to GND and reads LOW while pressed. BusyPin
// is driven HIGH while a shot runs; 0 disables it.
type TriggerConfig struct {
	InputPin int
	BusyPin  int
	Poll     time.Duration
	Debounce time.Duration
}

// Trigger turns button presses into shots.
type Trigger struct {
	gpio gpio.Driver
	cam  Camera
	cfg  TriggerConfig
	log  *debug.Logger

	shots  atomic.Int64
	failed atomic.Int64
}

// NewTrigger configures the pins and returns a trigger ready to Run.
func NewTrigger(g gpio.Driver, cam Camera, cfg TriggerConfig, log *debug.Logger) (*Trigger, error) {
	if cfg.InputPin <= 0 {
		return nil, errors.New("trigger: input pin is required")
	}
	if cfg.BusyPin == cfg.InputPin {
		return nil, errors.New("trigger: busy pin must differ from the input pin")
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 20 * time.Millisecond
	}

	if err := g.SetupPin(cfg.InputPin, gpio.InputPullUp); err != nil {
		return nil, fmt.Errorf("trigger: setup input pin %d: %w", cfg.InputPin, err)
	}
	if cfg.BusyPin > 0 {
		if err := g.SetupPin(cfg.BusyPin, gpio.Output); err != nil {
			return nil, fmt.Errorf("trigger: setup busy pin %d: %w", cfg.BusyPin, err)
		}
		// LED off until the first shot
		if err := g.WritePin(cfg.BusyPin, gpio.Low); err != nil {
			return nil, err
		}
	}

	return &Trigger{gpio: g, cam: cam, cfg: cfg, log: log}, nil
}

// Shots returns the number of shots fired, failed ones included.
func (t *Trigger) Shots() int64 { return t.shots.Load() }

// Failed returns the number of shots whose Shoot returned an error.
func (t *Trigger) Failed() int64 { return t.failed.Load() }

// Run samples the button until ctx is done. A press fires once, after it
// has held for the debounce time; the button must go back up before the
// next shot.
func (t *Trigger) Run(ctx context.Context) error {
	t.log.Info("Trigger: watching pin %d (busy LED %d)", t.cfg.InputPin, t.cfg.BusyPin)

	ticker := time.NewTicker(t.cfg.Poll)
	defer ticker.Stop()

	var (
		downSince time.Time
		fired     bool
	)
	for {
		select {
		case <-ctx.Done():
			t.log.Verbose("Trigger: stopped")
			return nil
		case <-ticker.C:
		}

		level, err := t.gpio.ReadPin(t.cfg.InputPin)
		if err != nil {
			return fmt.Errorf("trigger: read pin %d: %w", t.cfg.InputPin, err)
		}
		if level == gpio.High {
			downSince = time.Time{}
			fired = false
			continue
		}
		if downSince.IsZero() {
			downSince = time.Now()
		}
		if fired || time.Since(downSince) < t.cfg.Debounce {
			continue
		}
		fired = true
		t.fire(ctx)
	}
}

func (t *Trigger) fire(ctx context.Context) {
	n := t.shots.Add(1)
	t.log.Live("Trigger: shot %d", n)

	t.busy(gpio.High)
	defer t.busy(gpio.Low)

	if err := t.cam.Shoot(ctx); err != nil {
		t.failed.Add(1)
		t.log.Warn("Trigger: shot %d failed: %v", n, err)
	}
}

func (t *Trigger) busy(l gpio.Level) {
	if t.cfg.BusyPin <= 0 {
		return
	}
	if err := t.gpio.WritePin(t.cfg.BusyPin, l); err != nil {
		t.log.Warn("Trigger: busy LED: %v", err)
	}
}
