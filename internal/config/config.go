// Package config loads the monitor's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atikulmunna/loomwatch/internal/parser"
	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/spf13/viper"
)

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

const (
	LayoutCompact  = "compact"
	LayoutExtended = "extended"
)

const (
	defaultMaxLogsCompact  = 5
	defaultMaxLogsExtended = 12
)

func init() {
	// Report validation errors under the YAML key names.
	ozzo.ErrorTag = "mapstructure"
}

type Config struct {
	LogFiles         map[string]string `mapstructure:"log_files"`
	DockerContainers map[string]string `mapstructure:"docker_containers"`
	Parsers          map[string]string `mapstructure:"parsers"`
	Services         []string          `mapstructure:"services"`

	Dashboard   Dashboard   `mapstructure:"dashboard"`
	Tail        Tail        `mapstructure:"tail"`
	Stream      Stream      `mapstructure:"stream"`
	Coordinator Coordinator `mapstructure:"coordinator"`
	HTTP        HTTP        `mapstructure:"http"`
	Log         Log         `mapstructure:"log"`
}

type Dashboard struct {
	MaxErrors  int           `mapstructure:"max_errors"`
	MaxLogs    int           `mapstructure:"max_logs"`
	Layout     string        `mapstructure:"layout"`
	Refresh    time.Duration `mapstructure:"refresh"`
	TopPaths   int           `mapstructure:"top_paths"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type Tail struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type Stream struct {
	Command []string `mapstructure:"command"`
}

// Coordinator points at the service exposing worker statistics. An empty URL
// disables polling.
type Coordinator struct {
	URL          string        `mapstructure:"url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// HTTP configures the optional status server. Empty Listen disables it.
type HTTP struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dashboard.max_errors", 10)
	v.SetDefault("dashboard.layout", LayoutCompact)
	v.SetDefault("dashboard.refresh", time.Second)
	v.SetDefault("dashboard.top_paths", 5)
	v.SetDefault("dashboard.stale_after", time.Duration(0))
	v.SetDefault("tail.poll_interval", 500*time.Millisecond)
	v.SetDefault("stream.command", []string{"docker", "logs", "-f", "--tail", "0", "{source}"})
	v.SetDefault("coordinator.url", "")
	v.SetDefault("coordinator.poll_interval", time.Second)
	v.SetDefault("coordinator.timeout", 2*time.Second)
	v.SetDefault("http.listen", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "loomwatch.log")
}

// Load reads path, applies defaults and LOOMWATCH_* environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("LOOMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	// Viper lowercases map keys; match them.
	for i, name := range cfg.Services {
		cfg.Services[i] = strings.ToLower(name)
	}

	// The recent-log ring follows the layout unless set explicitly.
	if cfg.Dashboard.MaxLogs == 0 {
		cfg.Dashboard.MaxLogs = defaultMaxLogsCompact
		if cfg.Dashboard.Layout == LayoutExtended {
			cfg.Dashboard.MaxLogs = defaultMaxLogsExtended
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return ozzo.ValidateStruct(&c,
		ozzo.Field(&c.Parsers, ozzo.By(validKinds)),
		ozzo.Field(&c.Dashboard),
		ozzo.Field(&c.Tail),
		ozzo.Field(&c.Stream),
		ozzo.Field(&c.Coordinator),
		ozzo.Field(&c.HTTP),
		ozzo.Field(&c.Log),
	)
}

func (d Dashboard) Validate() error {
	return ozzo.ValidateStruct(&d,
		ozzo.Field(&d.MaxErrors, ozzo.Required, ozzo.Min(1)),
		ozzo.Field(&d.MaxLogs, ozzo.Required, ozzo.Min(1)),
		ozzo.Field(&d.Layout, ozzo.Required, ozzo.In(LayoutCompact, LayoutExtended)),
		ozzo.Field(&d.Refresh, ozzo.Required, ozzo.Min(100*time.Millisecond)),
		ozzo.Field(&d.TopPaths, ozzo.Required, ozzo.Min(1)),
		ozzo.Field(&d.StaleAfter, ozzo.Min(time.Duration(0))),
	)
}

func (t Tail) Validate() error {
	return ozzo.ValidateStruct(&t,
		ozzo.Field(&t.PollInterval, ozzo.Required, ozzo.Min(10*time.Millisecond)),
	)
}

func (s Stream) Validate() error {
	return ozzo.ValidateStruct(&s,
		ozzo.Field(&s.Command, ozzo.Required),
	)
}

func (c Coordinator) Validate() error {
	return ozzo.ValidateStruct(&c,
		ozzo.Field(&c.URL, is.URL),
		ozzo.Field(&c.PollInterval, ozzo.Required, ozzo.Min(100*time.Millisecond)),
		ozzo.Field(&c.Timeout, ozzo.Required, ozzo.Min(100*time.Millisecond)),
	)
}

func (h HTTP) Validate() error {
	return ozzo.ValidateStruct(&h,
		ozzo.Field(&h.Listen, ozzo.By(func(value interface{}) error {
			addr, _ := value.(string)
			if addr == "" {
				return nil
			}
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return errors.New("must be host:port")
			}
			return nil
		})),
	)
}

func (l Log) Validate() error {
	return ozzo.ValidateStruct(&l,
		ozzo.Field(&l.Level, ozzo.Required, ozzo.In("trace", "debug", "info", "warn", "error")),
	)
}

func validKinds(value interface{}) error {
	overrides, _ := value.(map[string]string)
	for service, kind := range overrides {
		if _, err := parser.New(parser.Kind(kind)); err != nil {
			return fmt.Errorf("%s: %v", service, err)
		}
	}
	return nil
}

// ParserKind returns the grammar for a service: the configured override, or
// the built-in default for its name.
func (c *Config) ParserKind(service string) parser.Kind {
	if kind, ok := c.Parsers[service]; ok {
		return parser.Kind(kind)
	}
	return parser.DefaultKind(service)
}

// Watched lists the services shown in the status panel. Without an explicit
// services list, every configured source is shown in name order.
func (c *Config) Watched() []string {
	if len(c.Services) > 0 {
		return append([]string(nil), c.Services...)
	}
	seen := make(map[string]struct{}, len(c.LogFiles)+len(c.DockerContainers))
	for name := range c.LogFiles {
		seen[name] = struct{}{}
	}
	for name := range c.DockerContainers {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
