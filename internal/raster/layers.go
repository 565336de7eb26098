package raster

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/roofsolar/internal/geo"
)

// Standard data layer names.
const (
	LayerFlux = "flux"
	LayerMask = "mask"
	LayerDSM  = "dsm"
)

// LayerResult is the outcome of sampling one layer. Either Err is set, or
// Samples and Stats describe the loaded raster.
type LayerResult struct {
	Samples []Sample
	Stats   Stats
	Err     error
}

// SampleLayers loads and samples each layer concurrently. A failing layer,
// including one whose decoder panics, is reported in its own result and
// does not affect the others.
func SampleLayers(ctx context.Context, loader Loader, layers map[string]string, points []geo.GeoPoint, concurrency int) map[string]LayerResult {
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]LayerResult, len(names))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, name := range names {
		source := layers[name]
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					zap.L().Error("raster: layer panicked",
						zap.String("layer", name),
						zap.String("source", source),
						zap.Any("panic", rec),
					)
					results[i] = LayerResult{Err: eris.Errorf("raster: layer %s: panic: %v", name, rec)}
				}
			}()
			r, err := loader.Load(ctx, source)
			if err != nil {
				zap.L().Warn("raster: layer unavailable",
					zap.String("layer", name),
					zap.String("source", source),
					zap.Error(err),
				)
				results[i] = LayerResult{Err: err}
				return nil
			}
			results[i] = LayerResult{Samples: r.Sample(points), Stats: r.Stats()}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]LayerResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
