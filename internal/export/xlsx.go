package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
)

// Sheet names in the scenario workbook.
const (
	SheetScenarios   = "Scenarios"
	SheetCashFlow    = "Cash flow"
	SheetAssumptions = "Assumptions"
)

var scenarioHeader = []string{
	"Strategy", "Panels", "Size kWp", "Production kWh", "Self-consumed kWh",
	"Exported kWh", "Capex", "Annual savings", "Payback years", "ROI %", "LCOE",
}

// WriteScenarioXLSX writes the proposal as a workbook with the scenario
// table, a cumulative cash-flow sheet, and the tariff assumptions.
func WriteScenarioXLSX(w io.Writer, res *model.ProposalResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetScenarios)
	if err != nil {
		return eris.Wrap(err, "export: add scenarios sheet")
	}
	addStrings(sheet.AddRow(), scenarioHeader...)
	for _, s := range res.Scenarios {
		row := sheet.AddRow()
		row.AddCell().SetString(string(s.Strategy))
		row.AddCell().SetInt(s.Panels)
		row.AddCell().SetFloat(s.SizeKWp)
		row.AddCell().SetInt(s.AnnualProductionKWh)
		row.AddCell().SetInt(s.SelfConsumedKWh)
		row.AddCell().SetInt(s.ExportedKWh)
		row.AddCell().SetFloat(s.CapexTotal)
		row.AddCell().SetInt(s.AnnualSavings)
		addOptional(row, s.PaybackYears)
		row.AddCell().SetFloat(s.ROIPct)
		addOptional(row, s.LCOEPerKWh)
	}

	cash, err := f.AddSheet(SheetCashFlow)
	if err != nil {
		return eris.Wrap(err, "export: add cash flow sheet")
	}
	header := cash.AddRow()
	header.AddCell().SetString("Year")
	flows := make([][]proposal.CashFlowPoint, len(res.Scenarios))
	for i, s := range res.Scenarios {
		header.AddCell().SetString(string(s.Strategy))
		flows[i] = proposal.CashFlow(s.CapexTotal, s.AnnualSavings, 0)
	}
	for year := 0; year < proposal.DefaultCashFlowYears; year++ {
		row := cash.AddRow()
		row.AddCell().SetInt(year + 1)
		for _, flow := range flows {
			row.AddCell().SetFloat(flow[year].Cumulative)
		}
	}

	assumptions, err := f.AddSheet(SheetAssumptions)
	if err != nil {
		return eris.Wrap(err, "export: add assumptions sheet")
	}
	p := res.Input.Pricing
	for _, kv := range []struct {
		key string
		val float64
	}{
		{"Monthly usage kWh", res.Input.MonthlyUsageKWh},
		{"Annual usage kWh", float64(res.AnnualUsageKWh)},
		{"Specific yield kWh/kWp", res.SpecificYield},
		{"Buy price per kWh", p.BuyPricePerKWh},
		{"Sell price per kWh", p.SellPricePerKWh},
		{"Capex per kWp", p.CapexPerKWp},
		{"O&M % per year", p.OMRatePctPerYear},
		{"Degradation % per year", p.DegradationPctPerYear},
		{"Discount rate %", p.DiscountRatePct},
		{"Lifetime years", float64(p.LifetimeYears)},
		{"Self-consumption ratio", p.SelfConsumptionRatio},
		{"Module wattage W", float64(p.ModuleWattageW)},
	} {
		row := assumptions.AddRow()
		row.AddCell().SetString(kv.key)
		row.AddCell().SetFloat(kv.val)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addStrings(row *xlsx.Row, vals ...string) {
	for _, v := range vals {
		row.AddCell().SetString(v)
	}
}

func addOptional(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}
