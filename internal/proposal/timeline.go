package proposal

// DefaultCashFlowYears is the horizon of the cumulative cash-flow view.
const DefaultCashFlowYears = 25

// CashFlowPoint is the cumulative position at the end of a year.
type CashFlowPoint struct {
	Year       int     `json:"year"`
	Cumulative float64 `json:"cumulative"`
}

// CashFlow starts at -capex and adds annual savings each year. years <= 0
// uses DefaultCashFlowYears.
func CashFlow(capex float64, annualSavings int, years int) []CashFlowPoint {
	if years <= 0 {
		years = DefaultCashFlowYears
	}
	out := make([]CashFlowPoint, years)
	cum := -capex
	for i := range out {
		cum += float64(annualSavings)
		out[i] = CashFlowPoint{Year: i + 1, Cumulative: cum}
	}
	return out
}

// BreakEvenYear returns the first year the cumulative position is not
// negative, or 0 if that never happens within the timeline.
func BreakEvenYear(points []CashFlowPoint) int {
	for _, p := range points {
		if p.Cumulative >= 0 {
			return p.Year
		}
	}
	return 0
}

// BillEstimate is the monthly electricity bill before and after the system.
type BillEstimate struct {
	BeforeMonthly int `json:"before_monthly"`
	AfterMonthly  int `json:"after_monthly"`
}

// Bill estimates the monthly bill with and without the annual savings.
func Bill(monthlyUsageKWh, buyPrice float64, annualSavings int) BillEstimate {
	before := roundInt(monthlyUsageKWh * buyPrice)
	after := max(0, roundInt(float64(before)-float64(annualSavings)/12))
	return BillEstimate{BeforeMonthly: before, AfterMonthly: after}
}
