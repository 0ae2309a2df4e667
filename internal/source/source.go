// Package source opens the USB ID registry from a local file or a URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/usbidgen/internal/cache"
)

// ErrHTTPStatus is returned for a non-200 response.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Options control how a remote registry is fetched.
type Options struct {
	Cache   *cache.Cache // nil disables caching
	Refresh bool         // ignore a fresh cache entry
	Client  *http.Client
	Logger  logrus.FieldLogger
}

// Info describes where the opened registry came from.
type Info struct {
	Location  string
	Remote    bool
	Cached    bool // served from the cache without a download
	FetchedAt time.Time
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Open returns a reader for the registry at location. Remote registries
// are downloaded into the cache first when one is configured, so a failed
// download never replaces a good copy.
func Open(ctx context.Context, location string, opts Options) (io.ReadCloser, *Info, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	if !IsRemote(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open registry: %w", err)
		}
		info := &Info{Location: location}
		if st, err := f.Stat(); err == nil {
			info.FetchedAt = st.ModTime()
		}
		return f, info, nil
	}

	if opts.Cache != nil && !opts.Refresh {
		if entry := opts.Cache.Get(location); entry != nil {
			f, err := entry.Open()
			if err == nil {
				log.WithFields(logrus.Fields{"url": location, "age": entry.Age().Round(time.Second)}).Debug("using cached registry")
				return f, &Info{Location: location, Remote: true, Cached: true, FetchedAt: entry.FetchedAt}, nil
			}
			log.WithError(err).Warn("cached registry unreadable, downloading")
		}
	}

	log.WithField("url", location).Info("downloading registry")
	body, err := fetch(ctx, location, opts.Client)
	if err != nil {
		return nil, nil, err
	}

	if opts.Cache == nil {
		return body, &Info{Location: location, Remote: true, FetchedAt: time.Now()}, nil
	}
	defer body.Close()

	entry, err := opts.Cache.Put(location, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cache registry: %w", err)
	}
	f, err := entry.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cached registry: %w", err)
	}
	return f, &Info{Location: location, Remote: true, FetchedAt: entry.FetchedAt}, nil
}

func fetch(ctx context.Context, url string, client *http.Client) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download registry: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s from %s", ErrHTTPStatus, resp.Status, url)
	}
	return resp.Body, nil
}
