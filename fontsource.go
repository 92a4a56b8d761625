package realpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxFontBytes caps remote font downloads.
const maxFontBytes = 32 << 20

var (
	errNoURL             = errors.New("src does not start with url()")
	errUnsupportedScheme = errors.New("unsupported font URL scheme")
)

// fontURL extracts the reference of the leading url() in an @font-face src
// value, without quotes. Later entries of a src list are ignored.
func fontURL(src string) (string, error) {
	rest, ok := cutPrefixFold(strings.TrimSpace(src), "url(")
	if !ok {
		return "", errNoURL
	}
	rest = strings.TrimLeft(rest, " \t\n")
	if rest != "" && (rest[0] == '"' || rest[0] == '\'') {
		end := strings.IndexByte(rest[1:], rest[0])
		if end < 0 {
			return "", fmt.Errorf("unterminated string in %q", truncate(src, 64))
		}
		if tail := strings.TrimLeft(rest[end+2:], " \t\n"); !strings.HasPrefix(tail, ")") {
			return "", errNoURL
		}
		return rest[1 : end+1], nil
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", fmt.Errorf("unterminated url() in %q", truncate(src, 64))
	}
	return strings.TrimSpace(rest[:end]), nil
}

// fontLoader fetches font files referenced by @font-face rules.
type fontLoader struct {
	client *http.Client
	base   string // document URL relative references resolve against
}

// load returns the bytes behind ref: a data: URL, an http(s) or file URL,
// or a path relative to the document base.
func (l fontLoader) load(ctx context.Context, ref string) ([]byte, error) {
	if _, ok := cutPrefixFold(ref, "data:"); ok {
		_, data, err := decodeDataURL(ref)
		return data, err
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse font URL: %w", err)
	}
	resolved := false
	if !u.IsAbs() && l.base != "" {
		base, err := url.Parse(l.base)
		if err != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", l.base, err)
		}
		u = base.ResolveReference(u)
		resolved = true
	}

	switch u.Scheme {
	case "":
		if resolved {
			return os.ReadFile(u.Path)
		}
		return os.ReadFile(ref)
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		return l.fetch(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedScheme, u.Scheme)
	}
}

func (l fontLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	client := l.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http get %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxFontBytes {
		return nil, fmt.Errorf("font larger than %d bytes", maxFontBytes)
	}
	return data, nil
}
