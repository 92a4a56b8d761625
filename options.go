package realpdf

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// TextMode selects how extracted text is drawn.
type TextMode int

const (
	// TransparentText draws every text run fully transparent so the page
	// images provide the visuals while text stays selectable and
	// searchable.
	TransparentText TextMode = iota

	// VisibleText draws text with the color and opacity of the source.
	VisibleText
)

func (m TextMode) String() string {
	switch m {
	case TransparentText:
		return "transparent"
	case VisibleText:
		return "visible"
	default:
		return "unknown"
	}
}

// converterConfig holds internal configuration for a Converter.
type converterConfig struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     string
	autoDownload bool
	viewport     *Viewport

	textMode    TextMode
	concurrency int
	logger      *slog.Logger
	container   string
	optimize    bool
	httpClient  *http.Client
	baseURL     string
}

func defaultConfig() converterConfig {
	return converterConfig{
		timeout:     30 * time.Second,
		headless:    "new",
		textMode:    TransparentText,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
		httpClient:  http.DefaultClient,
	}
}

func newConfig(opts []Option) converterConfig {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}
	return cfg
}

// Option configures a [Converter] or a package-level conversion.
type Option func(*converterConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *converterConfig) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration for opening a document and for a
// single conversion. Defaults to 30 seconds. A zero or negative value
// disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *converterConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *converterConfig) {
		c.noSandbox = true
	}
}

// WithAutoDownload downloads a Chromium build when no browser path is
// set. The binary is cached, so only the first run pays for it.
func WithAutoDownload() Option {
	return func(c *converterConfig) {
		c.autoDownload = true
	}
}

// WithViewport sets the browser window the source document is laid out
// in. See [Viewport].
func WithViewport(v Viewport) Option {
	return func(c *converterConfig) {
		c.viewport = &v
	}
}

// WithTextMode selects how text is drawn.
//
// The default, [TransparentText], does not use the extracted styling:
// every run gets opacity 0 so only the page images are seen and the text
// stays selectable. Pass [VisibleText] to draw text visibly with the color
// and opacity extracted from the document.
func WithTextMode(m TextMode) Option {
	return func(c *converterConfig) {
		c.textMode = m
	}
}

// WithConcurrency bounds the number of pages assembled in parallel.
// Defaults to the number of CPUs.
func WithConcurrency(n int) Option {
	return func(c *converterConfig) {
		c.concurrency = n
	}
}

// WithLogger sets the logger receiving progress and diagnostics.
// Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *converterConfig) {
		c.logger = l
	}
}

// WithContainer restricts the snapshot to the first element matching the
// CSS selector instead of the whole body.
func WithContainer(selector string) Option {
	return func(c *converterConfig) {
		c.container = selector
	}
}

// WithOptimize validates and optimizes the generated PDF with pdfcpu
// before it is returned.
func WithOptimize() Option {
	return func(c *converterConfig) {
		c.optimize = true
	}
}

// WithHTTPClient sets the client used to fetch remote font files.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *converterConfig) {
		c.httpClient = hc
	}
}

// WithBaseURL sets the URL relative font sources resolve against when the
// document does not carry one.
func WithBaseURL(u string) Option {
	return func(c *converterConfig) {
		c.baseURL = u
	}
}
