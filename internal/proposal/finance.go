// Package proposal sizes net-billing PV systems. Propose is a pure function
// of its input; Engine adds defaults and input validation around it.
package proposal

import "math"

// roundInt rounds half up, matching the integer rounding used throughout.
func roundInt(x float64) int {
	return int(math.Floor(x + 0.5))
}

// roundTo rounds to the given number of decimals, halves away from zero.
func roundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	if x < 0 {
		return -math.Floor(-x*p+0.5) / p
	}
	return math.Floor(x*p+0.5) / p
}

// AnnualUsage converts average monthly consumption to yearly kWh.
func AnnualUsage(monthlyKWh float64) int {
	return max(0, roundInt(monthlyKWh*12))
}

// PanelsToKWp returns installed capacity for a panel count.
func PanelsToKWp(panels, wattageW int) float64 {
	return float64(panels) * float64(wattageW) / 1000
}

// KWpToPanels returns the panel count closest to kWp, at least one.
func KWpToPanels(kWp float64, wattageW int) int {
	return max(1, roundInt(kWp*1000/float64(wattageW)))
}

// Production is the yearly output in whole kWh.
func Production(kWp, specificYield float64) int {
	return max(0, roundInt(kWp*specificYield))
}

// PresentValueFactor is the annuity factor for rate r (percent) over n years.
func PresentValueFactor(ratePct float64, years int) float64 {
	r := ratePct / 100
	if r == 0 {
		return float64(years)
	}
	return (1 - math.Pow(1+r, -float64(years))) / r
}

// Payback returns simple payback in years, or nil when savings never
// recover the investment.
func Payback(capex float64, annualSavings int) *float64 {
	if annualSavings <= 0 {
		return nil
	}
	v := roundTo(capex/float64(annualSavings), 1)
	return &v
}

// ROI returns annual savings as a percentage of capex.
func ROI(capex float64, annualSavings int) float64 {
	if capex <= 0 {
		return 0
	}
	return roundTo(float64(annualSavings)/capex*100, 1)
}

// LCOE is capex spread over discounted lifetime production. Degradation is
// not applied.
func LCOE(capex float64, production int, ratePct float64, years int) *float64 {
	if production <= 0 {
		return nil
	}
	total := float64(production) * PresentValueFactor(ratePct, years)
	if total <= 0 {
		return nil
	}
	v := roundTo(capex/total, 2)
	return &v
}
