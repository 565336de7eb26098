package main

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/flux"
	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/raster"
)

var (
	sampleLayers      []string
	samplePoints      []string
	sampleSurvey      string
	sampleConcurrency int

	gridOut string
)

// layerOutput is one layer's entry in the sample report.
type layerOutput struct {
	Samples []raster.Sample `json:"samples,omitempty"`
	Valid   int             `json:"valid"`
	Stats   *raster.Stats   `json:"stats,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample raster layers at points",
	Long: "Loads each --layer name=source (path or URL) concurrently and samples it at every --point lat,lng " +
		"or at the panel centers of --survey. A layer that fails to load is reported without failing the rest.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		layers, err := parseLayers(sampleLayers)
		if err != nil {
			return err
		}
		points, err := parsePoints(samplePoints)
		if err != nil {
			return err
		}
		if sampleSurvey != "" {
			view, err := loadView(ctx, sampleSurvey, "")
			if err != nil {
				return err
			}
			points = append(points, flux.PanelCenters(view)...)
		}
		if len(points) == 0 {
			return eris.New("sample: no points, pass --point or --survey")
		}

		loader := raster.NewRemoteLoader(initFetcher())
		results := raster.SampleLayers(ctx, loader, layers, points, sampleConcurrency)

		out := make(map[string]layerOutput, len(results))
		for name, res := range results {
			if res.Err != nil {
				out[name] = layerOutput{Error: res.Err.Error()}
				continue
			}
			lo := layerOutput{Samples: res.Samples, Stats: &res.Stats}
			for _, s := range res.Samples {
				if s.OK {
					lo.Valid++
				}
			}
			out[name] = lo
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var gridCmd = &cobra.Command{
	Use:   "grid <source>",
	Short: "Convert a raster to the JSON grid format",
	Long:  "Loads a GeoTIFF or grid (path or URL) and writes it as a JSON grid with null for missing pixels.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := raster.NewRemoteLoader(initFetcher()).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		st := r.Stats()
		zap.L().Info("raster loaded",
			zap.String("source", args[0]),
			zap.Int("width", r.Width),
			zap.Int("height", r.Height),
			zap.Int("valid", st.Count),
			zap.Float64("min", st.Min),
			zap.Float64("max", st.Max),
		)

		if gridOut == "" || gridOut == "-" {
			return raster.EncodeGrid(cmd.OutOrStdout(), r)
		}
		return writeFile(gridOut, func(w io.Writer) error {
			return raster.EncodeGrid(w, r)
		})
	},
}

// parseLayers reads name=source pairs. A bare source is the flux layer.
func parseLayers(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, eris.New("sample: at least one --layer is required")
	}
	layers := make(map[string]string, len(specs))
	for _, s := range specs {
		name, source, ok := strings.Cut(s, "=")
		if !ok {
			name, source = raster.LayerFlux, s
		}
		name, source = strings.TrimSpace(name), strings.TrimSpace(source)
		if name == "" || source == "" {
			return nil, eris.Errorf("sample: invalid layer %q", s)
		}
		if _, dup := layers[name]; dup {
			return nil, eris.Errorf("sample: duplicate layer %q", name)
		}
		layers[name] = source
	}
	return layers, nil
}

// parsePoints reads "lat,lng" pairs.
func parsePoints(specs []string) ([]geo.GeoPoint, error) {
	points := make([]geo.GeoPoint, 0, len(specs))
	for _, s := range specs {
		latStr, lngStr, ok := strings.Cut(s, ",")
		if !ok {
			return nil, eris.Errorf("sample: point %q is not lat,lng", s)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "sample: latitude in %q", s)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "sample: longitude in %q", s)
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, eris.Errorf("sample: point %q out of range", s)
		}
		points = append(points, geo.GeoPoint{Latitude: lat, Longitude: lng})
	}
	return points, nil
}

func init() {
	sampleCmd.Flags().StringArrayVar(&sampleLayers, "layer", nil, "raster layer as name=source (repeatable)")
	sampleCmd.Flags().StringArrayVar(&samplePoints, "point", nil, "sample point as lat,lng (repeatable)")
	sampleCmd.Flags().StringVar(&sampleSurvey, "survey", "", "sample at the panel centers of this survey payload")
	sampleCmd.Flags().IntVar(&sampleConcurrency, "concurrency", 4, "layers loaded in parallel")
	gridCmd.Flags().StringVarP(&gridOut, "out", "o", "", "grid output path (default stdout)")
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(gridCmd)
}
