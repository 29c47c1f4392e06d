package vfs

import (
	"context"
	"os"
	path_ "path"
	"path/filepath"

	"github.com/pkg/errors"
)

type DirectorySource struct {
	path string
}

func NewDirectorySource(path string) *DirectorySource {
	return &DirectorySource{path: path}
}

func (ds *DirectorySource) Path() string {
	return ds.path
}

func (ds *DirectorySource) URL(name string) string {
	if clean, err := cleanName(name); err == nil {
		name = clean
	}
	return filepath.Join(ds.path, filepath.FromSlash(name))
}

func (ds *DirectorySource) Open(ctx context.Context, name string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	fullPath := filepath.Join(ds.path, filepath.FromSlash(clean))

	stat, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", fullPath)
		}
		return nil, errors.Wrapf(err, "Stat error")
	}
	if stat.IsDir() {
		return nil, errors.Errorf("File '%s' is directory, not a file!", fullPath)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, errors.Wrapf(err, "os.Open('%s')", fullPath)
	}
	return &Resource{
		ReadCloser: f,
		Name:       path_.Base(clean),
		URL:        fullPath,
		Size:       stat.Size(),
	}, nil
}
