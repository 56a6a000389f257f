package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/spei-map/internal/domain"
)

// Surfaces fans every map command out to several surfaces, in order.
// A failing surface does not stop the others; their errors are joined.
type Surfaces []MapSurface

func (s Surfaces) AddLayer(ctx context.Context, layer domain.Layer) error {
	var errs []error
	for _, surface := range s {
		if err := surface.AddLayer(ctx, layer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Surfaces) SetCenter(ctx context.Context, v domain.Viewport) error {
	var errs []error
	for _, surface := range s {
		if err := surface.SetCenter(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
