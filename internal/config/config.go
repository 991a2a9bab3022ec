package config

import (
	"flag"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/thatsimonsguy/irrigation-controller/internal/logging"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const envPrefix = "IRRIGATION"

type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`
}

type GPIO struct {
	StatusLED   *int `mapstructure:"status_led"`
	Zone1LED    *int `mapstructure:"zone1_led"`
	Zone2LED    *int `mapstructure:"zone2_led"`
	Zone3LED    *int `mapstructure:"zone3_led"`
	ResetButton *int `mapstructure:"reset_button"`

	ActiveHigh      bool `mapstructure:"active_high"`
	ResetActiveHigh bool `mapstructure:"reset_active_high"`
}

type Config struct {
	ConfigFile string        `mapstructure:"-"`
	DBPath     string        `mapstructure:"-"`
	LogFile    string        `mapstructure:"-"`
	LogLevel   zerolog.Level `mapstructure:"-"`
	SafeMode   bool          `mapstructure:"-"`

	Server                Server `mapstructure:"server"`
	HTTPTimeoutSeconds    int    `mapstructure:"http_timeout_seconds"`
	PollIntervalSeconds   int    `mapstructure:"poll_interval_seconds"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	TickIntervalSeconds   int    `mapstructure:"tick_interval_seconds"`
	CycleIntervalMS       int    `mapstructure:"cycle_interval_ms"`
	WifiInterface         string `mapstructure:"wifi_interface"`
	APIPort               int    `mapstructure:"api_port"`

	GPIO GPIO `mapstructure:"gpio"`

	DDAgentAddr   string   `mapstructure:"dd_agent_addr"`
	DDNamespace   string   `mapstructure:"dd_namespace"`
	DDTags        []string `mapstructure:"dd_tags"`
	EnableDatadog bool     `mapstructure:"enable_datadog"`
	NtfyTopic     string   `mapstructure:"ntfy_topic"`
	ConsoleLog    bool     `mapstructure:"console_log"`

	BootScriptPath  string `mapstructure:"boot_script_path"`
	OSServicePath   string `mapstructure:"os_service_path"`
	MainServicePath string `mapstructure:"main_service_path"`
}

var defaults = map[string]interface{}{
	"server.path":             "/",
	"http_timeout_seconds":    10,
	"poll_interval_seconds":   30,
	"connect_timeout_seconds": 30,
	"tick_interval_seconds":   35,
	"cycle_interval_ms":       50,
	"wifi_interface":          "wlan0",
	"api_port":                8090,
	"gpio.active_high":        true,
	"gpio.reset_active_high":  false,
	"dd_agent_addr":           "127.0.0.1:8125",
	"dd_namespace":            "irrigation.",
	"boot_script_path":        "/usr/local/bin/irrigation-pins.sh",
	"os_service_path":         "/etc/systemd/system/irrigation-pins.service",
	"main_service_path":       "/etc/systemd/system/irrigation-controller.service",
}

// keys without defaults that may still come from the environment
var envOnlyKeys = []string{
	"server.host", "server.port",
	"gpio.status_led", "gpio.zone1_led", "gpio.zone2_led", "gpio.zone3_led", "gpio.reset_button",
	"dd_tags", "enable_datadog", "ntfy_topic", "console_log",
}

// Load parses command-line flags, reads the config file and panics on
// anything invalid.
func Load() Config {
	var configFile, dbPath, logFile, logLevel string
	var safeMode bool

	flag.StringVar(&configFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&dbPath, "db", "data/irrigation.db", "Path to the SQLite database file")
	flag.StringVar(&logFile, "log-file", "/var/log/irrigation-controller.log", "Path to the log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&safeMode, "safe-mode", false, "Never drive GPIO pins")
	flag.Parse()

	cfg, err := Read(configFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	cfg.DBPath = dbPath
	cfg.LogFile = logFile
	cfg.LogLevel = logging.ParseLevel(logLevel)
	cfg.SafeMode = safeMode

	cfg.validate()
	return cfg
}

// Read loads path with environment overrides applied. It does not validate.
func Read(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return cfg, nil
}

func (cfg *Config) validate() {
	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
		problems      []string
	)

	v := reflect.ValueOf(cfg.GPIO)
	t := reflect.TypeOf(cfg.GPIO)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() != reflect.Ptr {
			continue
		}
		fieldName := t.Field(i).Tag.Get("mapstructure")

		if field.IsNil() {
			missingFields = append(missingFields, "gpio."+fieldName)
			continue
		}

		pin := int(field.Elem().Int())
		if pin <= 0 {
			problems = append(problems, fmt.Sprintf("gpio.%s must be a positive pin number", fieldName))
			continue
		}
		if other, exists := usedPins[pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("gpio.%s and gpio.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[pin] = fieldName
		}
	}

	if len(missingFields) > 0 {
		panic("Missing required GPIO config fields: " + strings.Join(missingFields, ", "))
	}
	if len(conflicts) > 0 {
		panic("Conflicting GPIO pins: " + strings.Join(conflicts, ", "))
	}

	if cfg.Server.Host == "" {
		problems = append(problems, "server.host is required")
	}
	if cfg.Server.Port <= 0 {
		problems = append(problems, "server.port must be positive")
	}
	positive := map[string]int{
		"http_timeout_seconds":    cfg.HTTPTimeoutSeconds,
		"poll_interval_seconds":   cfg.PollIntervalSeconds,
		"connect_timeout_seconds": cfg.ConnectTimeoutSeconds,
		"tick_interval_seconds":   cfg.TickIntervalSeconds,
		"cycle_interval_ms":       cfg.CycleIntervalMS,
		"api_port":                cfg.APIPort,
	}
	names := make([]string, 0, len(positive))
	for name := range positive {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if positive[name] <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}
	// a Tick restamps lastUpdate, so ticks closer than the timeout would never expire it
	if cfg.TickIntervalSeconds <= cfg.ConnectTimeoutSeconds {
		problems = append(problems, "tick_interval_seconds must be greater than connect_timeout_seconds")
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, ", "))
	}
}

func (cfg Config) PollInterval() time.Duration {
	return time.Duration(cfg.PollIntervalSeconds) * time.Second
}

func (cfg Config) ConnectTimeout() time.Duration {
	return time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
}

func (cfg Config) TickInterval() time.Duration {
	return time.Duration(cfg.TickIntervalSeconds) * time.Second
}

func (cfg Config) CycleInterval() time.Duration {
	return time.Duration(cfg.CycleIntervalMS) * time.Millisecond
}

func (cfg Config) HTTPTimeout() time.Duration {
	return time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
}

// Pin resolves a configured pin number with the board's polarity.
func (g GPIO) Pin(n *int) model.GPIOPin {
	if n == nil {
		return model.GPIOPin{}
	}
	return model.GPIOPin{Number: *n, ActiveHigh: g.ActiveHigh}
}

// ResetPin is the reset button input, which has its own polarity.
func (g GPIO) ResetPin() model.GPIOPin {
	if g.ResetButton == nil {
		return model.GPIOPin{}
	}
	return model.GPIOPin{Number: *g.ResetButton, ActiveHigh: g.ResetActiveHigh}
}

// OutputPins resolves the status LED and the three zone LEDs.
func (g GPIO) OutputPins() (model.GPIOPin, [3]model.GPIOPin) {
	return g.Pin(g.StatusLED), [3]model.GPIOPin{g.Pin(g.Zone1LED), g.Pin(g.Zone2LED), g.Pin(g.Zone3LED)}
}
