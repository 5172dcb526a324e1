package gpio

import (
	"sync"

	"github.com/cjeanneret/remocam/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
	// InputPullUp is an input with the internal pull-up enabled, for a
	// button wired to ground.
	InputPullUp
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool, log *debug.Logger) (Driver, error) {
	if mock {
		log.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(log), nil
	}
	return NewRPiRealDriver(log)
}

// MockDriver keeps pin levels in memory. Inputs idle HIGH, as a pulled-up
// button does; Set drives them from tests or a simulator.
type MockDriver struct {
	log *debug.Logger

	mu     sync.Mutex
	levels map[int]Level
	writes []Write
}

// Write is one recorded output change.
type Write struct {
	Pin   int
	Level Level
}

// NewMockDriver creates a mock driver.
func NewMockDriver(log *debug.Logger) *MockDriver {
	return &MockDriver{log: log, levels: make(map[int]Level)}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	m.log.GPIO("SetupPin", pin, mode)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[pin]; !ok && mode != Output {
		m.levels[pin] = High
	}
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.log.GPIO("WritePin", pin, level)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
	m.writes = append(m.writes, Write{Pin: pin, Level: level})
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.levels[pin]
	if !ok {
		l = High
	}
	return l, nil
}

// Set forces the level seen on an input pin.
func (m *MockDriver) Set(pin int, level Level) {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
}

// Writes returns the output changes so far.
func (m *MockDriver) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

func (m *MockDriver) Close() error {
	m.log.Trace("GPIO Close (mock)")
	return nil
}
