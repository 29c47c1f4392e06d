package vfs

import (
	"context"
	"io"
	"net/http"
	"net/url"
	path_ "path"
	"strings"

	"github.com/pkg/errors"
)

type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPSource(base *url.URL, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	b := *base
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return &HTTPSource{base: &b, client: client}
}

func (hs *HTTPSource) URL(name string) string {
	if clean, err := cleanName(name); err == nil {
		name = clean
	}
	return hs.base.ResolveReference(&url.URL{Path: name}).String()
}

func (hs *HTTPSource) Open(ctx context.Context, name string) (*Resource, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	u := hs.URL(clean)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create request")
	}
	resp, err := hs.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrNotFound, "GET %s", u)
		}
		return nil, errors.Errorf("GET %s: unexpected status %q", u, resp.Status)
	}
	return &Resource{
		ReadCloser: resp.Body,
		Name:       path_.Base(clean),
		URL:        u,
		Size:       resp.ContentLength,
	}, nil
}
