package loader

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	StageMaterial = "material"
	StageTexture  = "texture"
	StageGeometry = "geometry"
)

var ErrLoadInFlight = errors.New("model load already in progress")

// FetchError is a failed or malformed resource of some pipeline stage
type FetchError struct {
	Stage string
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Cause() error {
	return e.Err
}
