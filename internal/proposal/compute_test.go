package proposal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofsolar/internal/model"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	out := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		out[i] = f.Field
	}
	return out
}

func TestEngine_Compute(t *testing.T) {
	e := DefaultEngine()
	res, err := e.Compute(Request{MonthlyUsageKWh: 300})
	require.NoError(t, err)
	assert.Equal(t, PolandDefaults(), res.Input.Pricing)
	smart, _ := res.Scenario(model.StrategySmartMatch)
	assert.Equal(t, 1723, smart.AnnualSavings)
}

func TestEngine_ComputeWithOverrides(t *testing.T) {
	e := DefaultEngine()
	res, err := e.Compute(Request{
		MonthlyUsageKWh:  300,
		PricingOverrides: &Overrides{ModuleWattageW: model.Int(400), SellPricePerKWh: model.Float(0)},
		RoofAnalysis:     roofWith(model.Int(20), model.Float(1100)),
	})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Input.Pricing.ModuleWattageW)
	assert.Equal(t, 0.0, res.Input.Pricing.SellPricePerKWh)
	assert.Equal(t, 1100.0, res.SpecificYield)
	assert.Empty(t, res.Warnings)
}

func TestEngine_Validation(t *testing.T) {
	e := DefaultEngine()
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"usage too low", Request{MonthlyUsageKWh: 5}, "monthly_usage_kwh"},
		{"usage too high", Request{MonthlyUsageKWh: 5001}, "monthly_usage_kwh"},
		{"buy price zero", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{BuyPricePerKWh: model.Float(0)}}, "pricing_overrides.buy_price_per_kwh"},
		{"negative sell", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{SellPricePerKWh: model.Float(-0.1)}}, "pricing_overrides.sell_price_per_kwh"},
		{"om above 100", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{OMRatePctPerYear: model.Float(101)}}, "pricing_overrides.om_rate_pct_per_year"},
		{"degradation", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{DegradationPctPerYear: model.Float(6)}}, "pricing_overrides.degradation_pct_per_year"},
		{"discount", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{DiscountRatePct: model.Float(21)}}, "pricing_overrides.discount_rate_pct"},
		{"lifetime", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{LifetimeYears: model.Int(9)}}, "pricing_overrides.lifetime_years"},
		{"self consumption", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{SelfConsumptionRatio: model.Float(1.2)}}, "pricing_overrides.self_consumption_ratio"},
		{"wattage", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{ModuleWattageW: model.Int(250)}}, "pricing_overrides.module_wattage_w"},
		{"capex", Request{MonthlyUsageKWh: 300, PricingOverrides: &Overrides{CapexPerKWp: model.Float(-1)}}, "pricing_overrides.capex_per_kwp"},
		{"shading", Request{MonthlyUsageKWh: 300, RoofAnalysis: &model.RoofAnalysis{Roof: &model.RoofConstraints{ShadingScore: model.Float(1.5)}}}, "roof_analysis.roof.shading_score"},
		{"confidence", Request{MonthlyUsageKWh: 300, RoofAnalysis: &model.RoofAnalysis{Yield: &model.YieldEstimate{Confidence: "extreme"}}}, "roof_analysis.yield.confidence"},
		{"negative max panels", Request{MonthlyUsageKWh: 300, RoofAnalysis: roofWith(model.Int(-1), nil)}, "roof_analysis.roof.max_panel_count"},
		{"zero max panels", Request{MonthlyUsageKWh: 300, RoofAnalysis: roofWith(model.Int(0), nil)}, "roof_analysis.roof.max_panel_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Compute(tt.req)
			assert.Nil(t, res)
			assert.Equal(t, []string{tt.field}, fieldNames(t, err))
			assert.Equal(t, MsgInvalidInput, Message(err))
		})
	}
}

func TestEngine_ValidationListsAllFields(t *testing.T) {
	_, err := DefaultEngine().Compute(Request{
		MonthlyUsageKWh:  1,
		PricingOverrides: &Overrides{LifetimeYears: model.Int(50)},
	})
	assert.ElementsMatch(t, []string{"monthly_usage_kwh", "pricing_overrides.lifetime_years"}, fieldNames(t, err))
	assert.Contains(t, err.Error(), "monthly_usage_kwh: gte=10")
}

func TestEngine_ZeroOverridesAreValid(t *testing.T) {
	_, err := DefaultEngine().Compute(Request{
		MonthlyUsageKWh: 10,
		PricingOverrides: &Overrides{
			SellPricePerKWh:       model.Float(0),
			OMRatePctPerYear:      model.Float(0),
			DegradationPctPerYear: model.Float(0),
			DiscountRatePct:       model.Float(0),
			SelfConsumptionRatio:  model.Float(0),
		},
	})
	assert.NoError(t, err)
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(PolandDefaults(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), e.Tuning())
	assert.Equal(t, PolandDefaults(), e.Tariff())

	bad := PolandDefaults()
	bad.ModuleWattageW = 0
	_, err = NewEngine(bad, DefaultTuning())
	assert.Error(t, err)

	tuning := DefaultTuning()
	tuning.FallbackYield = 0
	_, err = NewEngine(PolandDefaults(), tuning)
	assert.Error(t, err)
}

func TestEngine_Sensitivity(t *testing.T) {
	e := DefaultEngine()
	res, err := e.Sensitivity(Request{MonthlyUsageKWh: 300}, 0.1, -0.1)
	require.NoError(t, err)
	assert.Equal(t, 1.05, res.Input.Pricing.BuyPricePerKWh)
	assert.Equal(t, 270.0, res.Input.MonthlyUsageKWh)

	res, err = e.Sensitivity(Request{MonthlyUsageKWh: 10}, 0, -0.5)
	assert.Nil(t, res)
	assert.Equal(t, MsgInvalidInput, Message(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, MsgComputationFailed, Message(&ComputationError{Err: errors.New("boom")}))
	assert.Equal(t, MsgInvalidInput, Message(&ValidationError{}))
}

func TestEngine_MaxPanelCountHonoured(t *testing.T) {
	res, err := DefaultEngine().Compute(Request{
		MonthlyUsageKWh: 2000,
		RoofAnalysis:    roofWith(model.Int(1), nil),
	})
	require.NoError(t, err)
	for _, s := range res.Scenarios {
		assert.Equal(t, 1, s.Panels, s.Strategy)
	}
	assert.Contains(t, res.Warnings, WarnSmallRoof)
}
