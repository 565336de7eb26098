package export

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
)

// CashFlowChart renders the cumulative cash flow of each scenario as a PNG.
// years <= 0 uses the default horizon.
func CashFlowChart(w io.Writer, scenarios []model.ScenarioMetrics, years int) error {
	if len(scenarios) == 0 {
		return eris.New("export: no scenarios to chart")
	}
	colors := []drawing.Color{chart.ColorBlue, chart.ColorGreen, chart.ColorOrange, chart.ColorRed}

	lo, hi := 0.0, 0.0
	series := make([]chart.Series, 0, len(scenarios)+1)
	for i, s := range scenarios {
		flow := proposal.CashFlow(s.CapexTotal, s.AnnualSavings, years)
		cs := chart.ContinuousSeries{
			Name: fmt.Sprintf("%s (%d panels)", s.Strategy, s.Panels),
			Style: chart.Style{
				StrokeColor: colors[i%len(colors)],
				StrokeWidth: 2,
			},
		}
		for _, p := range flow {
			cs.XValues = append(cs.XValues, float64(p.Year))
			cs.YValues = append(cs.YValues, p.Cumulative)
			lo, hi = min(lo, p.Cumulative), max(hi, p.Cumulative)
		}
		series = append(series, cs)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name: "Year",
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v)
			},
		},
		YAxis: chart.YAxis{
			Name:  "Cumulative cash flow",
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	return eris.Wrap(graph.Render(chart.PNG, w), "export: render cash flow chart")
}
