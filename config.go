package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DEFAULT_CONFIG_PATH = "alerter.toml"

//---------------- Config Structs ----------------

// Config represents the overall alerter.toml file.
type Config struct {
	Display DisplayConfig `toml:"display"`
	Fonts   FontsConfig   `toml:"fonts"`
	Poll    PollConfig    `toml:"poll"`
	Icons   IconsConfig   `toml:"icons"`
	Text    TextConfig    `toml:"text"`
	HTTP    HTTPConfig    `toml:"http"`
	Input   InputConfig   `toml:"input"`
}

// DisplayConfig controls the canvas and where frames go after a swap.
type DisplayConfig struct {
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	FrameIntervalMs int    `toml:"frame_interval_ms"`
	Backend         string `toml:"backend"` // image, term or spi
	SPIPort         string `toml:"spi_port"`
	SPIKHz          int    `toml:"spi_khz"`
	LatchPin        string `toml:"latch_pin"`
}

// FontsConfig holds optional TTF/OTF faces. Empty paths use the built-in 7x13 face.
type FontsConfig struct {
	Clock       string  `toml:"clock"`
	ClockSize   float64 `toml:"clock_size"`
	Message     string  `toml:"message"`
	MessageSize float64 `toml:"message_size"`
	Alert       string  `toml:"alert"`
	AlertSize   float64 `toml:"alert_size"`
}

// PollConfig controls the status poller.
type PollConfig struct {
	StatusEndpoint     string `toml:"status_endpoint"`
	SleepEndpoint      string `toml:"sleep_endpoint"`
	IntervalSeconds    int    `toml:"interval_seconds"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"` // 0 = no timeout
	PingHost           string `toml:"ping_host"`
	PingAttempts       int    `toml:"ping_attempts"`
	PingTimeoutMs      int    `toml:"ping_timeout_ms"`
	PingPrivileged     bool   `toml:"ping_privileged"`
}

// IconsConfig controls the decorative icon intro.
type IconsConfig struct {
	Catalog     string  `toml:"catalog"` // yaml file, empty = built-in catalog
	Dir         string  `toml:"dir"`
	Probability float64 `toml:"probability"`
	Brightness  float64 `toml:"brightness"`
	Seed        int64   `toml:"seed"` // 0 = seeded from the clock
}

// TextConfig holds the fixed strings shown on the marquee.
type TextConfig struct {
	Sleeping   string `toml:"sleeping"`
	NoInternet string `toml:"no_internet"`
	Loading    string `toml:"loading"`
}

// HTTPConfig controls the preview server.
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// InputConfig names the evdev device whose key presses trigger an icon.
type InputConfig struct {
	Device string `toml:"device"`
}

func defaultConfig() Config {
	return Config{
		Display: DisplayConfig{
			Width:           MATRIX_WIDTH,
			Height:          MATRIX_HEIGHT,
			FrameIntervalMs: 25,
			Backend:         "image",
			SPIPort:         "SPI0.0",
			SPIKHz:          8000,
		},
		Fonts: FontsConfig{
			ClockSize:   13,
			MessageSize: 13,
			AlertSize:   13,
		},
		Poll: PollConfig{
			StatusEndpoint:  "http://lemon.com/api/messages",
			SleepEndpoint:   "https://sleep.fig14.com/am-i-sleeping",
			IntervalSeconds: 30,
			PingHost:        "8.8.8.8",
			PingAttempts:    2,
			PingTimeoutMs:   5000,
			PingPrivileged:  true,
		},
		Icons: IconsConfig{
			Dir:         "icons",
			Probability: 0.05,
			Brightness:  0.5,
		},
		Text: TextConfig{
			Sleeping:   "Daddy is sleeping zzZzZzZZzZZzz...",
			NoInternet: "Internet is Down!",
			Loading:    "Loading...",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  ":8081",
		},
	}
}

// loadConfig reads alerter.toml on top of the defaults. A missing file at the
// default path is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = DEFAULT_CONFIG_PATH
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == DEFAULT_CONFIG_PATH {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Validate returns every problem found, joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display.width and display.height must be > 0"))
	}
	if c.Display.FrameIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("display.frame_interval_ms must be > 0"))
	}
	switch c.Display.Backend {
	case "image", "term":
	case "spi":
		if c.Display.SPIPort == "" {
			errs = append(errs, fmt.Errorf("display.spi_port must be set for the spi backend"))
		}
		if c.Display.SPIKHz <= 0 {
			errs = append(errs, fmt.Errorf("display.spi_khz must be > 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("display.backend must be one of image, term, spi (got %q)", c.Display.Backend))
	}

	for name, endpoint := range map[string]string{
		"poll.status_endpoint": c.Poll.StatusEndpoint,
		"poll.sleep_endpoint":  c.Poll.SleepEndpoint,
	} {
		u, err := url.ParseRequestURI(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%s must be a valid http or https URL", name))
		}
	}
	if c.Poll.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval_seconds must be > 0"))
	}
	if c.Poll.HTTPTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("poll.http_timeout_seconds must be >= 0 (0 = no timeout)"))
	}
	if c.Poll.PingAttempts < 1 {
		errs = append(errs, fmt.Errorf("poll.ping_attempts must be >= 1"))
	}
	if c.Poll.PingTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("poll.ping_timeout_ms must be > 0"))
	}
	if c.Poll.PingHost == "" {
		errs = append(errs, fmt.Errorf("poll.ping_host must not be empty"))
	}

	if c.Icons.Probability < 0 || c.Icons.Probability > 1 {
		errs = append(errs, fmt.Errorf("icons.probability must be within [0, 1]"))
	}
	if c.Icons.Brightness < 0 {
		errs = append(errs, fmt.Errorf("icons.brightness must be >= 0"))
	}

	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		errs = append(errs, fmt.Errorf("http.listen must be set when http.enabled is true"))
	}

	return errors.Join(errs...)
}

func (c PollConfig) interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c PollConfig) pingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutMs) * time.Millisecond
}

func (c PollConfig) httpTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c DisplayConfig) frameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}
