package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 << 10

// DeviceConfig describes how to reach the camera and where transferred
// files land.
type DeviceConfig struct {
	Transport            string `yaml:"transport"`              // registered transport name, e.g. "sim"
	Mode                 string `yaml:"mode"`                   // "remote" or "transfer"
	SaveDir              string `yaml:"save_dir"`               // download directory (default: working directory)
	SavePrefix           string `yaml:"save_prefix"`            // file name prefix given to the camera
	SaveStartIndex       *int   `yaml:"save_start_index"`       // first file number, -1 = let the camera decide
	ConnectTimeoutMs     int    `yaml:"connect_timeout_ms"`     // wait for the connect acknowledgement (ms)
	ReleaseAfterDownload bool   `yaml:"release_after_download"` // end the capture command at the first download
}

// TimingsConfig holds the sequence delays in ms. Zero keeps the value the
// camera body needs.
type TimingsConfig struct {
	ReleaseHoldMs      int `yaml:"release_hold_ms"`
	HalfPressHoldMs    int `yaml:"half_press_hold_ms"`
	AFLockSettleMs     int `yaml:"af_lock_settle_ms"`
	AFReleaseSettleMs  int `yaml:"af_release_settle_ms"`
	PrioritySettleMs   int `yaml:"priority_settle_ms"`
	HalfPressSettleMs  int `yaml:"half_press_settle_ms"`
	FullPressHoldMs    int `yaml:"full_press_hold_ms"`
	ReleaseSettleMs    int `yaml:"release_settle_ms"`
	ContinuousSettleMs int `yaml:"continuous_settle_ms"`
	ContinuousHoldMs   int `yaml:"continuous_hold_ms"`
	WBStepSettleMs     int `yaml:"wb_step_settle_ms"`
	WBModeSettleMs     int `yaml:"wb_mode_settle_ms"`
	WBToggleMs         int `yaml:"wb_toggle_ms"`
	WBStandbyPollMs    int `yaml:"wb_standby_poll_ms"`
	WBStandbyAttempts  int `yaml:"wb_standby_attempts"`
	WBCaptureSettleMs  int `yaml:"wb_capture_settle_ms"`
	PositionSettleMs   int `yaml:"position_settle_ms"`
	FocusAreaSettleMs  int `yaml:"focus_area_settle_ms"`
	FormatPollMs       int `yaml:"format_poll_ms"`
	GetSettleMs        int `yaml:"get_settle_ms"`
	SetSettleMs        int `yaml:"set_settle_ms"`
	WaitPollMs         int `yaml:"wait_poll_ms"`
	WaitAttempts       int `yaml:"wait_attempts"`
}

// DispatcherConfig sizes the callback queue.
type DispatcherConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// JournalConfig enables the CBOR event journal.
type JournalConfig struct {
	Path string `yaml:"path"` // empty = disabled
}

// TriggerConfig describes the optional hardware shutter button.
type TriggerConfig struct {
	Enabled    bool `yaml:"enabled"`
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	InputPin   int  `yaml:"input_pin"`   // button to GND, active LOW (BCM)
	BusyPin    int  `yaml:"busy_pin"`    // LED lit while a shot runs (BCM), 0 = none
	PollMs     int  `yaml:"poll_ms"`     // button sampling period
	DebounceMs int  `yaml:"debounce_ms"` // press must hold this long
}

// WebConfig enables the status web surface.
type WebConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// Config aggregates all application configuration.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Timings    TimingsConfig    `yaml:"timings"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Journal    JournalConfig    `yaml:"journal"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Web        WebConfig        `yaml:"web"`
	DebugLevel int              `yaml:"debug_level"` // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// ValidateConfigPath rejects paths that are not a .yaml file directly inside
// a "configs" directory, and any path that climbs out with "..".
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file %q must be in a configs directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	_ = cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() error {
	if c.Device.Transport == "" {
		c.Device.Transport = "sim"
	}
	switch c.Device.Mode {
	case "":
		c.Device.Mode = "remote"
	case "remote", "transfer":
	default:
		return fmt.Errorf("device.mode must be remote or transfer, got %q", c.Device.Mode)
	}
	if c.Device.SaveStartIndex == nil {
		auto := -1
		c.Device.SaveStartIndex = &auto
	} else if *c.Device.SaveStartIndex < -1 {
		return fmt.Errorf("device.save_start_index must be >= -1, got %d", *c.Device.SaveStartIndex)
	}
	if c.Device.ConnectTimeoutMs <= 0 {
		c.Device.ConnectTimeoutMs = 3000
	}

	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = 64
	}

	if c.Trigger.PollMs <= 0 {
		c.Trigger.PollMs = 20
	}
	if c.Trigger.DebounceMs <= 0 {
		c.Trigger.DebounceMs = 50
	}
	if c.Trigger.Enabled && c.Trigger.InputPin <= 0 {
		return fmt.Errorf("trigger.input_pin is required when the trigger is enabled")
	}
	if c.Trigger.Enabled && c.Trigger.BusyPin == c.Trigger.InputPin {
		return fmt.Errorf("trigger.busy_pin must differ from trigger.input_pin")
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 0-65535, got %d", c.Web.Port)
	}
	if c.DebugLevel < 0 || c.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.DebugLevel)
	}
	return nil
}

// ConnectTimeout returns the wait for the connect acknowledgement.
func (c *Config) ConnectTimeout() time.Duration {
	return ms(c.Device.ConnectTimeoutMs)
}

// StartIndex returns the first file number, -1 for automatic.
func (c *Config) StartIndex() int {
	if c.Device.SaveStartIndex == nil {
		return -1
	}
	return *c.Device.SaveStartIndex
}

// TriggerPoll returns the button sampling period.
func (c *Config) TriggerPoll() time.Duration {
	return ms(c.Trigger.PollMs)
}

// TriggerDebounce returns how long a press must hold.
func (c *Config) TriggerDebounce() time.Duration {
	return ms(c.Trigger.DebounceMs)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
