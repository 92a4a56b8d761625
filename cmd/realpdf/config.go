package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/porticus-lab/go-realpdf"
)

// Config is the YAML configuration accepted by -config. Command line flags
// override it.
type Config struct {
	Browser   BrowserConfig `yaml:"browser"`
	Output    OutputConfig  `yaml:"output"`
	Container string        `yaml:"container"`
	BaseURL   string        `yaml:"base_url"`
	LogLevel  string        `yaml:"log_level"` // debug | info | warn | error
}

// BrowserConfig controls the Chrome instance.
type BrowserConfig struct {
	Path         string         `yaml:"path"`
	NoSandbox    bool           `yaml:"no_sandbox"`
	AutoDownload bool           `yaml:"auto_download"`
	Timeout      time.Duration  `yaml:"timeout"`
	Viewport     ViewportConfig `yaml:"viewport"`
}

// ViewportConfig sizes the browser window.
type ViewportConfig struct {
	Width  int64   `yaml:"width"`
	Height int64   `yaml:"height"`
	Paper  string  `yaml:"paper"` // a3 | a4 | a5 | letter | legal
	Scale  float64 `yaml:"scale"`
}

// OutputConfig controls the generated PDF.
type OutputConfig struct {
	Text        string `yaml:"text"` // transparent | visible
	Optimize    bool   `yaml:"optimize"`
	Concurrency int    `yaml:"concurrency"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Output.Text == "" {
		c.Output.Text = "transparent"
	}
	if c.Output.Concurrency <= 0 {
		c.Output.Concurrency = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

var papers = map[string]realpdf.PaperSize{
	"a3":     realpdf.A3,
	"a4":     realpdf.A4,
	"a5":     realpdf.A5,
	"letter": realpdf.Letter,
	"legal":  realpdf.Legal,
}

// validate checks the enumerated fields.
func (c *Config) validate() error {
	switch c.Output.Text {
	case "transparent", "visible":
	default:
		return fmt.Errorf("output.text: unknown mode %q", c.Output.Text)
	}
	if p := c.Browser.Viewport.Paper; p != "" {
		if _, ok := papers[p]; !ok {
			return fmt.Errorf("browser.viewport.paper: unknown size %q", p)
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (c *Config) level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// options maps the configuration onto converter options.
func (c *Config) options(logger *slog.Logger) []realpdf.Option {
	opts := []realpdf.Option{
		realpdf.WithLogger(logger),
		realpdf.WithTimeout(c.Browser.Timeout),
		realpdf.WithConcurrency(c.Output.Concurrency),
	}
	if c.Browser.Path != "" {
		opts = append(opts, realpdf.WithChromePath(c.Browser.Path))
	}
	if c.Browser.NoSandbox {
		opts = append(opts, realpdf.WithNoSandbox())
	}
	if c.Browser.AutoDownload {
		opts = append(opts, realpdf.WithAutoDownload())
	}
	if vp := c.Browser.Viewport; vp != (ViewportConfig{}) {
		opts = append(opts, realpdf.WithViewport(realpdf.Viewport{
			Width:  vp.Width,
			Height: vp.Height,
			Paper:  papers[vp.Paper],
			Scale:  vp.Scale,
		}))
	}
	if c.Output.Text == "visible" {
		opts = append(opts, realpdf.WithTextMode(realpdf.VisibleText))
	}
	if c.Output.Optimize {
		opts = append(opts, realpdf.WithOptimize())
	}
	if c.Container != "" {
		opts = append(opts, realpdf.WithContainer(c.Container))
	}
	if c.BaseURL != "" {
		opts = append(opts, realpdf.WithBaseURL(c.BaseURL))
	}
	return opts
}
