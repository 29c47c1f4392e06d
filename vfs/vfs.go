package vfs

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Resource is an opened asset stream. Size is -1 when the transport does not report it.
type Resource struct {
	io.ReadCloser
	Name string
	URL  string
	Size int64
}

// Source resolves asset names relative to one base location
type Source interface {
	// Open must return an error wrapping ErrNotFound for missing assets
	Open(ctx context.Context, name string) (*Resource, error)
	URL(name string) string
}

var ErrNotFound = errors.New("asset not found")

// NewSource picks http driver for http(s) urls and directory driver for
// file:// urls and plain paths
func NewSource(base string, client *http.Client) (Source, error) {
	if base == "" {
		return nil, errors.Errorf("empty asset base")
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse asset base %q", base)
		}
		return NewHTTPSource(u, client), nil
	}
	if strings.HasPrefix(base, "file://") {
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse asset base %q", base)
		}
		return NewDirectorySource(u.Path), nil
	}
	return NewDirectorySource(base), nil
}

// cleanName rejects names escaping the base
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", errors.Errorf("asset name %q escapes base", name)
		}
	}
	return strings.TrimPrefix(name, "/"), nil
}
