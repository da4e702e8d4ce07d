// Package resource opens byte streams by location string.
//
// Locations:
//
//	file:relative/or/absolute/path   filesystem, relative to the loader's root
//	embed:path/in/fs                 the loader's fs.FS (typically an embed.FS)
//	http://host/path, https://...    fetched with the loader's http.Client
//	path/without/scheme              the fs.FS when one is set, else the filesystem
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the location does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnsupportedScheme is returned for locations with an unknown scheme.
	ErrUnsupportedScheme = errors.New("unsupported resource scheme")
)

// Loader resolves locations. The zero value reads plain paths from the
// working directory.
type Loader struct {
	root   string
	fsys   fs.FS
	client *http.Client
	logger *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRoot resolves relative file locations against dir.
func WithRoot(dir string) Option { return func(l *Loader) { l.root = dir } }

// WithFS serves embed: and scheme-less locations from fsys.
func WithFS(fsys fs.FS) Option { return func(l *Loader) { l.fsys = fsys } }

// WithHTTPClient fetches http and https locations with c.
func WithHTTPClient(c *http.Client) Option { return func(l *Loader) { l.client = c } }

// WithTimeout sets the timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.client = &http.Client{Timeout: d} }
}

// WithLogger logs opened locations to log.
func WithLogger(log *zap.Logger) Option { return func(l *Loader) { l.logger = log } }

// NewLoader returns a loader using http.DefaultClient and no logging unless
// opts say otherwise.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{client: http.DefaultClient, logger: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open returns a reader for location. The caller closes it.
func (l *Loader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, rest, hasScheme := strings.Cut(location, ":")
	if !hasScheme || len(scheme) == 1 { // "C:\..." is a path
		scheme, rest = "", location
	}
	l.log().Debug("opening resource", zap.String("location", location))

	switch scheme {
	case "file":
		return l.openFile(location, rest)
	case "embed":
		if l.fsys == nil {
			return nil, fmt.Errorf("%w: %s: no embedded filesystem configured", ErrNotFound, location)
		}
		return l.openFS(location, rest)
	case "http", "https":
		return l.fetch(ctx, location)
	case "":
		if l.fsys != nil {
			return l.openFS(location, rest)
		}
		return l.openFile(location, rest)
	default:
		return nil, fmt.Errorf("%w: %q in %s", ErrUnsupportedScheme, scheme, location)
	}
}

// ReadAll reads the whole resource.
func (l *Loader) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := l.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

func (l *Loader) openFile(location, p string) (io.ReadCloser, error) {
	if !filepath.IsAbs(p) && l.root != "" {
		p = filepath.Join(l.root, p)
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return f, nil
}

func (l *Loader) openFS(location, p string) (io.ReadCloser, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	f, err := l.fsys.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return f, nil
}

func (l *Loader) fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

func (l *Loader) log() *zap.Logger {
	if l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}
