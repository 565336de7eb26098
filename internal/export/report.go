package export

import (
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
)

// Report message keys. English text doubles as the key.
const (
	msgTitle      = "Solar proposal"
	msgUsage      = "Annual usage: %d kWh"
	msgYield      = "Specific yield: %.0f kWh/kWp"
	msgScenario   = "%s: %d panels, %.2f kWp, %d kWh/year"
	msgSavings    = "  savings %d per year, capex %.0f"
	msgPayback    = "  payback %.1f years, ROI %.1f%%"
	msgNoPayback  = "  does not pay back, ROI %.1f%%"
	msgLCOE       = "  LCOE %.2f per kWh"
	msgBill       = "Monthly bill (%s): %d before, %d after"
	msgBreakEven  = "  break-even in year %d"
	msgWarnings   = "Warnings:"
	msgNoWarnings = "No warnings."
)

func init() {
	pl := language.Polish
	for key, tr := range map[string]string{
		msgTitle:      "Oferta fotowoltaiczna",
		msgUsage:      "Roczne zużycie: %d kWh",
		msgYield:      "Uzysk jednostkowy: %.0f kWh/kWp",
		msgScenario:   "%s: %d paneli, %.2f kWp, %d kWh/rok",
		msgSavings:    "  oszczędności %d rocznie, nakłady %.0f",
		msgPayback:    "  zwrot po %.1f latach, ROI %.1f%%",
		msgNoPayback:  "  inwestycja się nie zwraca, ROI %.1f%%",
		msgLCOE:       "  LCOE %.2f za kWh",
		msgBill:       "Rachunek miesięczny (%s): %d przed, %d po",
		msgBreakEven:  "  próg rentowności w roku %d",
		msgWarnings:   "Ostrzeżenia:",
		msgNoWarnings: "Brak ostrzeżeń.",
	} {
		_ = message.SetString(pl, key, tr)
	}
}

// Report writes a plain-text summary of the proposal in the given locale
// (a BCP 47 tag such as "pl-PL" or "en"). Unknown tags fall back to English.
func Report(w io.Writer, res *model.ProposalResult, locale string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	ew := &errWriter{w: w}

	ew.line(p.Sprintf(msgTitle))
	ew.line(p.Sprintf(msgUsage, res.AnnualUsageKWh))
	ew.line(p.Sprintf(msgYield, res.SpecificYield))
	ew.line("")

	for _, s := range res.Scenarios {
		ew.line(p.Sprintf(msgScenario, string(s.Strategy), s.Panels, s.SizeKWp, s.AnnualProductionKWh))
		ew.line(p.Sprintf(msgSavings, s.AnnualSavings, s.CapexTotal))
		if s.PaybackYears != nil {
			ew.line(p.Sprintf(msgPayback, *s.PaybackYears, s.ROIPct))
			if y := proposal.BreakEvenYear(proposal.CashFlow(s.CapexTotal, s.AnnualSavings, 0)); y > 0 {
				ew.line(p.Sprintf(msgBreakEven, y))
			}
		} else {
			ew.line(p.Sprintf(msgNoPayback, s.ROIPct))
		}
		if s.LCOEPerKWh != nil {
			ew.line(p.Sprintf(msgLCOE, *s.LCOEPerKWh))
		}
	}
	ew.line("")

	if smart, ok := res.Scenario(model.StrategySmartMatch); ok {
		bill := proposal.Bill(res.Input.MonthlyUsageKWh, res.Input.Pricing.BuyPricePerKWh, smart.AnnualSavings)
		ew.line(p.Sprintf(msgBill, string(smart.Strategy), bill.BeforeMonthly, bill.AfterMonthly))
	}

	if len(res.Warnings) == 0 {
		ew.line(p.Sprintf(msgNoWarnings))
	} else {
		ew.line(p.Sprintf(msgWarnings))
		for _, warn := range res.Warnings {
			ew.line("- " + warn)
		}
	}
	return eris.Wrap(ew.err, "export: write report")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) line(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s+"\n")
}
