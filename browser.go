package realpdf

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// browserPath picks the executable the allocator starts. An explicit path
// wins; with auto download an installed browser is preferred, otherwise a
// compatible Chromium is fetched into ~/.cache/rod/browser (Unix) or
// %APPDATA%\rod\browser (Windows). An empty result lets chromedp search.
func browserPath(cfg converterConfig) (string, error) {
	if cfg.chromePath != "" || !cfg.autoDownload {
		return cfg.chromePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	cfg.logger.Info("realpdf: downloading browser")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("realpdf: downloading browser: %w", err)
	}
	return path, nil
}
