// realpdf rebuilds real PDF documents from HTML renderings of PDFs, the
// kind page viewers produce with one image and positioned text per page.
//
// Usage:
//
//	realpdf convert [options] <input> [output.pdf]
//	realpdf info <file.pdf>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/porticus-lab/go-realpdf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "convert":
		if err := runConvert(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "info":
		if err := runInfo(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`realpdf - rebuild real PDFs from HTML page renderings

Usage:
  realpdf convert [options] <input> [output.pdf]
  realpdf info <file.pdf>

Commands:
  convert   Convert a rendered document (URL or HTML file) to PDF
  info      Display page count and page dimensions of a PDF

Convert options:
  -config <file>       YAML configuration file
  -container <sel>     Only capture the element matching the CSS selector
  -static              Read geometry from the markup, without a browser
  -visible             Draw text visibly instead of transparently
  -optimize            Validate and optimize the output with pdfcpu
  -no-sandbox          Disable the Chrome sandbox (needed as root)
  -download            Download Chromium when no browser is installed
  -timeout <dur>       Per-step timeout, e.g. 45s (default: 30s)
  -concurrency <n>     Pages assembled in parallel (default: CPU count)
  -v                   Verbose logging

The PDF is written to stdout when no output file is given.

Examples:
  realpdf convert https://example.com/viewer/doc.html doc.pdf
  realpdf convert -static -container '#viewer' page.html > doc.pdf
  realpdf info doc.pdf
`)
}

type convertArgs struct {
	configFile string
	input      string
	output     string
	static     bool
	verbose    bool

	// Overrides applied on top of the configuration file.
	container   string
	visible     bool
	optimize    bool
	noSandbox   bool
	download    bool
	timeout     time.Duration
	concurrency int
}

func parseConvertArgs(args []string) (*convertArgs, error) {
	a := &convertArgs{}
	var positional []string

	value := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "-config":
			a.configFile, err = value(&i, args[i])
		case "-container":
			a.container, err = value(&i, args[i])
		case "-timeout":
			var v string
			if v, err = value(&i, args[i]); err == nil {
				if a.timeout, err = time.ParseDuration(v); err != nil {
					err = fmt.Errorf("invalid timeout %q: %w", v, err)
				}
			}
		case "-concurrency":
			var v string
			if v, err = value(&i, args[i]); err == nil {
				if a.concurrency, err = strconv.Atoi(v); err != nil || a.concurrency < 1 {
					err = fmt.Errorf("invalid concurrency %q", v)
				}
			}
		case "-static":
			a.static = true
		case "-visible":
			a.visible = true
		case "-optimize":
			a.optimize = true
		case "-no-sandbox":
			a.noSandbox = true
		case "-download":
			a.download = true
		case "-v":
			a.verbose = true
		default:
			if strings.HasPrefix(args[i], "-") && args[i] != "-" {
				return nil, fmt.Errorf("unknown option: %s", args[i])
			}
			positional = append(positional, args[i])
		}
		if err != nil {
			return nil, err
		}
	}

	switch len(positional) {
	case 0:
		return nil, fmt.Errorf("no input specified")
	case 1:
		a.input = positional[0]
	case 2:
		a.input, a.output = positional[0], positional[1]
	default:
		return nil, fmt.Errorf("unexpected argument: %s", positional[2])
	}
	return a, nil
}

// config loads the configuration file, if any, and applies the flags.
func (a *convertArgs) config() (*Config, error) {
	cfg := defaultConfig()
	if a.configFile != "" {
		var err error
		if cfg, err = LoadFile(a.configFile); err != nil {
			return nil, err
		}
	}
	if a.container != "" {
		cfg.Container = a.container
	}
	if a.visible {
		cfg.Output.Text = "visible"
	}
	if a.optimize {
		cfg.Output.Optimize = true
	}
	if a.noSandbox {
		cfg.Browser.NoSandbox = true
	}
	if a.download {
		cfg.Browser.AutoDownload = true
	}
	if a.timeout > 0 {
		cfg.Browser.Timeout = a.timeout
	}
	if a.concurrency > 0 {
		cfg.Output.Concurrency = a.concurrency
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runConvert implements the "convert" command.
func runConvert(args []string) error {
	a, err := parseConvertArgs(args)
	if err != nil {
		return err
	}
	cfg, err := a.config()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.level()}))
	opts := cfg.options(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var res *realpdf.Result
	if a.static {
		res, err = convertStatic(ctx, a.input, staticOptions(a.input, cfg.BaseURL, opts))
	} else {
		res, err = convertLive(ctx, a.input, logger, opts)
	}
	if err != nil {
		return err
	}

	if a.output == "" || a.output == "-" {
		_, err = res.WriteTo(os.Stdout)
		return err
	}
	if err := res.WriteToFile(a.output, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", a.output, err)
	}
	logger.Info("realpdf: written", "file", a.output, "pages", res.Pages(), "bytes", res.Len())
	return nil
}

func convertStatic(ctx context.Context, input string, opts []realpdf.Option) (*realpdf.Result, error) {
	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return realpdf.ConvertStatic(ctx, r, opts...)
}

// staticOptions makes relative font sources of a local input file resolve
// next to that file, unless a base URL is configured.
func staticOptions(input, baseURL string, opts []realpdf.Option) []realpdf.Option {
	if baseURL != "" || input == "-" {
		return opts
	}
	base, err := targetURL(input)
	if err != nil {
		return opts
	}
	return append(opts, realpdf.WithBaseURL(base))
}

func convertLive(ctx context.Context, input string, logger *slog.Logger, opts []realpdf.Option) (*realpdf.Result, error) {
	target, err := targetURL(input)
	if err != nil {
		return nil, err
	}

	conv, err := realpdf.NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()

	if err := conv.Open(ctx, target); err != nil {
		return nil, err
	}
	if ok, _ := conv.LooksLikePDF(); !ok {
		logger.Warn("realpdf: document does not look like a rendered PDF", "input", input)
	}
	res, err := conv.ConvertToPDF(ctx)
	if errors.Is(err, realpdf.ErrNotPaginatable) {
		return nil, fmt.Errorf("%s: no pages found: %w", input, err)
	}
	return res, err
}

// targetURL turns a local path into a file URL and keeps URLs as they are.
func targetURL(input string) (string, error) {
	if strings.Contains(input, "://") {
		return input, nil
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// runInfo implements the "info" command.
func runInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input file specified")
	}
	inputFile := args[0]

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := realpdf.Inspect(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}

	fmt.Printf("File:    %s\n", inputFile)
	fmt.Printf("Pages:   %d\n", len(info.Pages))
	if len(info.Pages) > 0 {
		fmt.Println()
		fmt.Println("Page dimensions:")
		for i, p := range info.Pages {
			fmt.Printf("  Page %d: %.0f x %.0f pt\n", i+1, p.Width, p.Height)
		}
	}
	return nil
}
