package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/export"
	"github.com/sells-group/roofsolar/internal/flux"
	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/raster"
	"github.com/sells-group/roofsolar/internal/roof"
	"github.com/sells-group/roofsolar/internal/server"
	"github.com/sells-group/roofsolar/internal/survey"
)

var (
	renderFlux       string
	renderOut        string
	renderPanelLimit int
	renderOrder      string
	renderSave       string

	renderOverlayRadius float64

	exportView    string
	exportFlux    string
	exportShpDir  string
	exportGeoJSON string
)

var renderCmd = &cobra.Command{
	Use:   "render <survey.json>",
	Short: "Map a survey payload to roof geometry and write GeoJSON",
	Long: "Decodes a building survey (use - for stdin), optionally backfills panel energy from a flux raster, " +
		"builds the roof scene and writes it as a GeoJSON FeatureCollection.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		view, err := loadView(ctx, args[0], renderFlux)
		if err != nil {
			return err
		}

		opts := cfg.Geometry.SceneOptions()
		if renderOrder != "" {
			opts.PanelOrder = roof.PanelOrder(renderOrder)
		}
		if renderPanelLimit > 0 {
			opts.PanelLimit = &renderPanelLimit
		}
		scene := roof.BuildScene(view, opts)
		logSummary(scene)

		if renderSave != "" {
			if err := saveView(ctx, renderSave, view, scene); err != nil {
				return err
			}
		}

		fc := export.GeoJSON(scene)
		if renderOverlayRadius > 0 {
			bounds := geo.BoundsAround(view.ResolveOrigin(), renderOverlayRadius)
			fc.BBox = export.Bounds(bounds)
			zap.L().Info("overlay bounds",
				zap.Float64("radius_m", renderOverlayRadius),
				zap.Any("sw", bounds.SW),
				zap.Any("ne", bounds.NE),
			)
		}

		if renderOut == "" || renderOut == "-" {
			return export.WriteFeatures(cmd.OutOrStdout(), fc)
		}
		return writeFile(renderOut, func(w io.Writer) error {
			return export.WriteFeatures(w, fc)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [survey.json]",
	Short: "Export roof geometry as shapefiles and GeoJSON",
	Long:  "Builds the roof scene from a survey file or a stored view (--view) and writes segment and panel shapefiles.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var view model.SolarViewData
		switch {
		case exportView != "":
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			rec, err := st.GetView(ctx, exportView)
			if err != nil {
				return eris.Wrap(err, "export")
			}
			view = rec.View
		case len(args) == 1:
			v, err := loadView(ctx, args[0], exportFlux)
			if err != nil {
				return err
			}
			view = v
		default:
			return eris.New("export: pass a survey file or --view")
		}

		if exportShpDir == "" && exportGeoJSON == "" {
			return eris.New("export: nothing to write, set --shp or --geojson")
		}

		scene := roof.BuildScene(view, cfg.Geometry.SceneOptions())
		logSummary(scene)

		if exportShpDir != "" {
			if err := os.MkdirAll(exportShpDir, 0o755); err != nil {
				return eris.Wrap(err, "export: create output dir")
			}
			if err := export.WriteShapefiles(exportShpDir, scene); err != nil {
				return err
			}
		}
		if exportGeoJSON != "" {
			return writeFile(exportGeoJSON, func(w io.Writer) error {
				return export.WriteGeoJSON(w, scene)
			})
		}
		return nil
	},
}

// loadView decodes the survey at path and, when fluxSource is set, backfills
// panel energy and segment averages from that raster. An unusable flux raster
// leaves the view unenriched.
func loadView(ctx context.Context, path, fluxSource string) (model.SolarViewData, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.SolarViewData{}, eris.Wrap(err, "open survey")
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	payload, err := survey.Decode(r)
	if err != nil {
		return model.SolarViewData{}, err
	}
	view := survey.Map(payload)
	if fluxSource == "" {
		return view, nil
	}
	return enrichFlux(ctx, view, fluxSource), nil
}

func enrichFlux(ctx context.Context, view model.SolarViewData, source string) model.SolarViewData {
	loader := raster.NewRemoteLoader(initFetcher())
	layers := raster.SampleLayers(ctx, loader, map[string]string{raster.LayerFlux: source}, flux.PanelCenters(view), 1)

	res := layers[raster.LayerFlux]
	if res.Err != nil {
		zap.L().Warn("flux enrichment skipped", zap.String("source", source), zap.Error(res.Err))
		return view
	}
	out, stats := flux.Enrich(view, res.Samples, cfg.Flux)
	zap.L().Info("flux enrichment",
		zap.Int("backfilled", stats.Backfilled),
		zap.Int("preserved", stats.Preserved),
		zap.Int("unsampled", stats.Unsampled),
		zap.Int("segments_with_avg", stats.SegmentsWithAvg),
	)
	return out
}

func saveView(ctx context.Context, label string, view model.SolarViewData, scene roof.Scene) error {
	rows, err := export.SegmentRows(scene)
	if err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	rec, err := st.CreateView(ctx, label, view, rows)
	if err != nil {
		return eris.Wrap(err, "save view")
	}
	zap.L().Info("view saved", zap.String("id", rec.ID), zap.Int("segments", len(rows)))
	return nil
}

func logSummary(scene roof.Scene) {
	sum := server.Summarize(scene)
	zap.L().Info("scene built",
		zap.Int("segments", sum.Segments),
		zap.Int("visible", sum.Visible),
		zap.Any("hidden", sum.Hidden),
		zap.Int("panels", sum.Panels),
		zap.Int("orphaned", sum.Orphaned),
		zap.Int("suppressed", sum.Suppressed),
	)
}

func init() {
	renderCmd.Flags().StringVar(&renderFlux, "flux", "", "flux raster path or URL used to backfill panel energy")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "GeoJSON output path (default stdout)")
	renderCmd.Flags().IntVar(&renderPanelLimit, "panels", 0, "render at most this many panels (0 = all)")
	renderCmd.Flags().StringVar(&renderOrder, "order", "", "panel ranking before --panels applies: yield or as-is")
	renderCmd.Flags().StringVar(&renderSave, "save", "", "persist the view under this label")
	renderCmd.Flags().Float64Var(&renderOverlayRadius, "overlay-radius", 0, "set the collection bbox to an imagery overlay of this radius in metres around the view origin")

	exportCmd.Flags().StringVar(&exportView, "view", "", "stored view id to export instead of a survey file")
	exportCmd.Flags().StringVar(&exportFlux, "flux", "", "flux raster path or URL used to backfill panel energy")
	exportCmd.Flags().StringVar(&exportShpDir, "shp", "", "directory for segment and panel shapefiles")
	exportCmd.Flags().StringVar(&exportGeoJSON, "geojson", "", "GeoJSON output path")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)
}
