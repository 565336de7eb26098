package model

import "github.com/sells-group/roofsolar/internal/geo"

// Strategy names a sizing scenario.
type Strategy string

const (
	StrategySmartMatch Strategy = "SMART_MATCH"
	StrategyMaxROI     Strategy = "MAX_ROI"
	StrategyMaxRoof    Strategy = "MAX_ROOF"
)

// Strategies lists scenarios in the order they are reported.
func Strategies() []Strategy {
	return []Strategy{StrategySmartMatch, StrategyMaxROI, StrategyMaxRoof}
}

// RoofAnalysis carries externally supplied roof constraints and yield. Every
// nested field is optional.
type RoofAnalysis struct {
	Location geo.GeoPoint     `json:"location"`
	Roof     *RoofConstraints `json:"roof,omitempty"`
	Yield    *YieldEstimate   `json:"yield,omitempty"`
}

// RoofConstraints is the usable capacity of the roof.
type RoofConstraints struct {
	TotalUsableAreaMeters2    *float64 `json:"total_usable_area_meters2,omitempty" validate:"omitempty,gte=0"`
	MaxPanelCount             *int     `json:"max_panel_count,omitempty" validate:"omitempty,gte=1"`
	RecommendedTiltDegrees    *float64 `json:"recommended_tilt_degrees,omitempty"`
	RecommendedAzimuthDegrees *float64 `json:"recommended_azimuth_degrees,omitempty"`
	ShadingScore              *float64 `json:"shading_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// YieldEstimate is the expected specific yield for the site.
type YieldEstimate struct {
	SpecificYieldKWhPerKWp *float64 `json:"specific_yield_kwh_per_kwp,omitempty" validate:"omitempty,gte=0"`
	Confidence             string   `json:"confidence,omitempty" validate:"omitempty,oneof=low medium high"`
}

// MaxPanels returns the roof's panel limit, if one was supplied.
func (a *RoofAnalysis) MaxPanels() (int, bool) {
	if a == nil || a.Roof == nil || a.Roof.MaxPanelCount == nil {
		return 0, false
	}
	return *a.Roof.MaxPanelCount, true
}

// SpecificYield returns the supplied specific yield when it is positive.
func (a *RoofAnalysis) SpecificYield() (float64, bool) {
	if a == nil || a.Yield == nil || a.Yield.SpecificYieldKWhPerKWp == nil {
		return 0, false
	}
	y := *a.Yield.SpecificYieldKWhPerKWp
	return y, y > 0
}

// NetBillingParams is the tariff and financial assumption bundle.
type NetBillingParams struct {
	BuyPricePerKWh        float64 `json:"buy_price_per_kwh" yaml:"buy_price_per_kwh" mapstructure:"buy_price_per_kwh" validate:"gt=0"`
	SellPricePerKWh       float64 `json:"sell_price_per_kwh" yaml:"sell_price_per_kwh" mapstructure:"sell_price_per_kwh" validate:"gte=0"`
	CapexPerKWp           float64 `json:"capex_per_kwp" yaml:"capex_per_kwp" mapstructure:"capex_per_kwp" validate:"gt=0"`
	OMRatePctPerYear      float64 `json:"om_rate_pct_per_year" yaml:"om_rate_pct_per_year" mapstructure:"om_rate_pct_per_year" validate:"gte=0,lte=100"`
	DegradationPctPerYear float64 `json:"degradation_pct_per_year" yaml:"degradation_pct_per_year" mapstructure:"degradation_pct_per_year" validate:"gte=0,lte=5"`
	DiscountRatePct       float64 `json:"discount_rate_pct" yaml:"discount_rate_pct" mapstructure:"discount_rate_pct" validate:"gte=0,lte=20"`
	LifetimeYears         int     `json:"lifetime_years" yaml:"lifetime_years" mapstructure:"lifetime_years" validate:"gte=10,lte=35"`
	SelfConsumptionRatio  float64 `json:"self_consumption_ratio" yaml:"self_consumption_ratio" mapstructure:"self_consumption_ratio" validate:"gte=0,lte=1"`
	ModuleWattageW        int     `json:"module_wattage_w" yaml:"module_wattage_w" mapstructure:"module_wattage_w" validate:"gte=300,lte=600"`
}

// ProposalInput is one fully defaulted engine input.
type ProposalInput struct {
	MonthlyUsageKWh float64          `json:"monthly_usage_kwh"`
	Pricing         NetBillingParams `json:"pricing"`
	RoofAnalysis    *RoofAnalysis    `json:"roof_analysis,omitempty"`
}

// ScenarioMetrics is the outcome of one sizing strategy.
type ScenarioMetrics struct {
	Strategy            Strategy `json:"strategy"`
	Panels              int      `json:"panels"`
	SizeKWp             float64  `json:"size_kwp"`
	AnnualProductionKWh int      `json:"annual_production_kwh"`
	SelfConsumedKWh     int      `json:"self_consumed_kwh"`
	ExportedKWh         int      `json:"exported_kwh"`
	CapexTotal          float64  `json:"capex_total"`
	AnnualSavings       int      `json:"annual_savings"`
	PaybackYears        *float64 `json:"payback_years"`
	ROIPct              float64  `json:"roi_pct"`
	LCOEPerKWh          *float64 `json:"lcoe_per_kwh"`
}

// ProposalResult echoes the input next to the three scenarios.
type ProposalResult struct {
	Input          ProposalInput     `json:"input"`
	AnnualUsageKWh int               `json:"annual_usage_kwh"`
	SpecificYield  float64           `json:"specific_yield"`
	Scenarios      []ScenarioMetrics `json:"scenarios"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// Scenario returns the metrics for s, if present.
func (r *ProposalResult) Scenario(s Strategy) (ScenarioMetrics, bool) {
	for _, m := range r.Scenarios {
		if m.Strategy == s {
			return m, true
		}
	}
	return ScenarioMetrics{}, false
}
