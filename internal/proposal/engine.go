package proposal

import (
	"fmt"
	"math"

	"github.com/sells-group/roofsolar/internal/model"
)

// Tuning holds the sizing heuristics.
type Tuning struct {
	FallbackYield         float64   `json:"fallback_yield" yaml:"fallback_yield" mapstructure:"fallback_yield" validate:"gt=0"`
	CoverageTarget        float64   `json:"coverage_target" yaml:"coverage_target" mapstructure:"coverage_target" validate:"gt=0"`
	ROICandidateFactors   []float64 `json:"roi_candidate_factors" yaml:"roi_candidate_factors" mapstructure:"roi_candidate_factors" validate:"dive,gt=0"`
	FallbackMaxRoofPanels int       `json:"fallback_max_roof_panels" yaml:"fallback_max_roof_panels" mapstructure:"fallback_max_roof_panels" validate:"gte=1"`
	SmallRoofPanels       int       `json:"small_roof_panels" yaml:"small_roof_panels" mapstructure:"small_roof_panels" validate:"gte=0"`
}

// DefaultTuning returns the heuristics calibrated for Poland.
func DefaultTuning() Tuning {
	return Tuning{
		FallbackYield:         950,
		CoverageTarget:        0.9,
		ROICandidateFactors:   []float64{0.8, 1.0, 1.2},
		FallbackMaxRoofPanels: 10,
		SmallRoofPanels:       4,
	}
}

// Advisory messages attached to a result.
const (
	WarnSmallRoof = "Very small usable roof area; savings will be limited."
)

// WarnYieldFallback describes the heuristic yield that was used.
func WarnYieldFallback(yield float64) string {
	return fmt.Sprintf("No yield data supplied; used heuristic of %g kWh/kWp/year.", yield)
}

// Propose computes all three sizing scenarios for a fully defaulted input.
func Propose(in model.ProposalInput, t Tuning) model.ProposalResult {
	usage := AnnualUsage(in.MonthlyUsageKWh)
	yield, supplied := in.RoofAnalysis.SpecificYield()
	if !supplied {
		yield = t.FallbackYield
	}
	maxPanels, hasMax := in.RoofAnalysis.MaxPanels()

	s := sizer{
		usage:  usage,
		yield:  yield,
		params: in.Pricing,
		max:    maxPanels,
		hasMax: hasMax,
	}

	smart := s.clamp(float64(KWpToPanels(float64(usage)*t.CoverageTarget/yield, in.Pricing.ModuleWattageW)))
	roofTarget := t.FallbackMaxRoofPanels
	if hasMax {
		roofTarget = maxPanels
	}
	maxRoof := s.clamp(float64(roofTarget))
	roi := s.bestPayback(smart, maxRoof, t.ROICandidateFactors)

	res := model.ProposalResult{
		Input:          in,
		AnnualUsageKWh: usage,
		SpecificYield:  yield,
		Scenarios: []model.ScenarioMetrics{
			s.scenario(model.StrategySmartMatch, smart),
			s.scenario(model.StrategyMaxROI, roi),
			s.scenario(model.StrategyMaxRoof, maxRoof),
		},
	}
	if !supplied {
		res.Warnings = append(res.Warnings, WarnYieldFallback(yield))
	}
	if hasMax && maxPanels <= t.SmallRoofPanels {
		res.Warnings = append(res.Warnings, WarnSmallRoof)
	}
	return res
}

type sizer struct {
	usage  int
	yield  float64
	params model.NetBillingParams
	max    int
	hasMax bool
}

// clamp rounds a candidate count and bounds it to [1, roof maximum]. The
// floor of one wins over a roof maximum below one; validated requests never
// carry such a maximum.
func (s sizer) clamp(panels float64) int {
	n := roundInt(panels)
	if s.hasMax {
		n = min(n, s.max)
	}
	return max(1, n)
}

// bestPayback picks the candidate with the shortest finite payback. Earlier
// candidates win ties; smart is kept when nothing pays back.
func (s sizer) bestPayback(smart, maxRoof int, factors []float64) int {
	candidates := make([]int, 0, len(factors)+1)
	for _, f := range factors {
		candidates = append(candidates, s.clamp(float64(roundInt(float64(smart)*f))))
	}
	candidates = append(candidates, maxRoof)

	best, bestPayback := smart, math.Inf(1)
	for _, n := range candidates {
		pb := math.Inf(1)
		if p := s.scenario("", n).PaybackYears; p != nil {
			pb = *p
		}
		if pb < bestPayback {
			best, bestPayback = n, pb
		}
	}
	return best
}

func (s sizer) scenario(strategy model.Strategy, panels int) model.ScenarioMetrics {
	p := s.params
	kWp := PanelsToKWp(panels, p.ModuleWattageW)
	production := Production(kWp, s.yield)
	capex := kWp * p.CapexPerKWp

	self := math.Min(float64(production)*p.SelfConsumptionRatio, float64(s.usage))
	exported := math.Max(float64(production)-self, 0)
	om := capex * p.OMRatePctPerYear / 100
	savings := roundInt(self*p.BuyPricePerKWh + exported*p.SellPricePerKWh - om)

	return model.ScenarioMetrics{
		Strategy:            strategy,
		Panels:              panels,
		SizeKWp:             roundTo(kWp, 2),
		AnnualProductionKWh: production,
		SelfConsumedKWh:     roundInt(self),
		ExportedKWh:         roundInt(exported),
		CapexTotal:          roundTo(capex, 2),
		AnnualSavings:       savings,
		PaybackYears:        Payback(capex, savings),
		ROIPct:              ROI(capex, savings),
		LCOEPerKWh:          LCOE(capex, production, p.DiscountRatePct, p.LifetimeYears),
	}
}
