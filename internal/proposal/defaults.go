package proposal

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/roofsolar/internal/model"
)

// PolandDefaults returns the net-billing assumptions for a Polish household.
func PolandDefaults() model.NetBillingParams {
	return model.NetBillingParams{
		BuyPricePerKWh:        0.95,
		SellPricePerKWh:       0.40,
		CapexPerKWp:           5000,
		OMRatePctPerYear:      1,
		DegradationPctPerYear: 0.5,
		DiscountRatePct:       5,
		LifetimeYears:         25,
		SelfConsumptionRatio:  0.35,
		ModuleWattageW:        420,
	}
}

// Overrides is a partial NetBillingParams. Nil fields keep the base value.
type Overrides struct {
	BuyPricePerKWh        *float64 `json:"buy_price_per_kwh,omitempty" yaml:"buy_price_per_kwh,omitempty" validate:"omitempty,gt=0"`
	SellPricePerKWh       *float64 `json:"sell_price_per_kwh,omitempty" yaml:"sell_price_per_kwh,omitempty" validate:"omitempty,gte=0"`
	CapexPerKWp           *float64 `json:"capex_per_kwp,omitempty" yaml:"capex_per_kwp,omitempty" validate:"omitempty,gt=0"`
	OMRatePctPerYear      *float64 `json:"om_rate_pct_per_year,omitempty" yaml:"om_rate_pct_per_year,omitempty" validate:"omitempty,gte=0,lte=100"`
	DegradationPctPerYear *float64 `json:"degradation_pct_per_year,omitempty" yaml:"degradation_pct_per_year,omitempty" validate:"omitempty,gte=0,lte=5"`
	DiscountRatePct       *float64 `json:"discount_rate_pct,omitempty" yaml:"discount_rate_pct,omitempty" validate:"omitempty,gte=0,lte=20"`
	LifetimeYears         *int     `json:"lifetime_years,omitempty" yaml:"lifetime_years,omitempty" validate:"omitempty,gte=10,lte=35"`
	SelfConsumptionRatio  *float64 `json:"self_consumption_ratio,omitempty" yaml:"self_consumption_ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	ModuleWattageW        *int     `json:"module_wattage_w,omitempty" yaml:"module_wattage_w,omitempty" validate:"omitempty,gte=300,lte=600"`
}

// Apply returns base with every non-nil override applied.
func (o *Overrides) Apply(base model.NetBillingParams) model.NetBillingParams {
	if o == nil {
		return base
	}
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&base.BuyPricePerKWh, o.BuyPricePerKWh)
	setF(&base.SellPricePerKWh, o.SellPricePerKWh)
	setF(&base.CapexPerKWp, o.CapexPerKWp)
	setF(&base.OMRatePctPerYear, o.OMRatePctPerYear)
	setF(&base.DegradationPctPerYear, o.DegradationPctPerYear)
	setF(&base.DiscountRatePct, o.DiscountRatePct)
	setI(&base.LifetimeYears, o.LifetimeYears)
	setF(&base.SelfConsumptionRatio, o.SelfConsumptionRatio)
	setI(&base.ModuleWattageW, o.ModuleWattageW)
	return base
}

// Merge layers other on top of o and returns the result. Either may be nil.
func (o *Overrides) Merge(other *Overrides) *Overrides {
	out := &Overrides{}
	for _, src := range []*Overrides{o, other} {
		if src == nil {
			continue
		}
		if src.BuyPricePerKWh != nil {
			out.BuyPricePerKWh = src.BuyPricePerKWh
		}
		if src.SellPricePerKWh != nil {
			out.SellPricePerKWh = src.SellPricePerKWh
		}
		if src.CapexPerKWp != nil {
			out.CapexPerKWp = src.CapexPerKWp
		}
		if src.OMRatePctPerYear != nil {
			out.OMRatePctPerYear = src.OMRatePctPerYear
		}
		if src.DegradationPctPerYear != nil {
			out.DegradationPctPerYear = src.DegradationPctPerYear
		}
		if src.DiscountRatePct != nil {
			out.DiscountRatePct = src.DiscountRatePct
		}
		if src.LifetimeYears != nil {
			out.LifetimeYears = src.LifetimeYears
		}
		if src.SelfConsumptionRatio != nil {
			out.SelfConsumptionRatio = src.SelfConsumptionRatio
		}
		if src.ModuleWattageW != nil {
			out.ModuleWattageW = src.ModuleWattageW
		}
	}
	return out
}

// LoadTariffFile reads partial tariff overrides from a YAML file.
func LoadTariffFile(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proposal: read tariff file %s", path)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrapf(err, "proposal: parse tariff file %s", path)
	}
	return &o, nil
}
