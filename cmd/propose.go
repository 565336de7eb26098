package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/export"
	"github.com/sells-group/roofsolar/internal/fetcher"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
)

var (
	proposeUsage       float64
	proposeUsageFile   string
	proposeUsageColumn string
	proposeUsageSheet  string
	proposeCharset     string
	proposeTariffFile  string
	proposeRoofFile    string
	proposeFormat      string
	proposeXLSX        string
	proposeChart       string
	proposeSave        string
	proposePriceDelta  float64
	proposeUsageDelta  float64
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Size three PV scenarios for a monthly usage",
	Long: "Validates the usage and tariff overrides, then reports the SMART_MATCH, MAX_ROI and MAX_ROOF scenarios. " +
		"Usage comes from --usage or from a CSV/XLSX export of monthly readings.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("propose"); err != nil {
			return err
		}

		req, err := buildProposeRequest()
		if err != nil {
			return err
		}

		engine, err := initEngine()
		if err != nil {
			return err
		}

		var res *model.ProposalResult
		if proposePriceDelta != 0 || proposeUsageDelta != 0 {
			res, err = engine.Sensitivity(req, proposePriceDelta, proposeUsageDelta)
		} else {
			res, err = engine.Compute(req)
		}
		if err != nil {
			return eris.Wrap(err, proposal.Message(err))
		}

		if proposeSave != "" {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			rec, err := st.CreateProposal(ctx, proposeSave, *res)
			if err != nil {
				return eris.Wrap(err, "propose: save")
			}
			zap.L().Info("proposal saved", zap.String("id", rec.ID), zap.String("label", rec.Label))
		}

		if proposeXLSX != "" {
			if err := writeFile(proposeXLSX, func(w io.Writer) error {
				return export.WriteScenarioXLSX(w, res)
			}); err != nil {
				return err
			}
		}
		if proposeChart != "" {
			if err := writeFile(proposeChart, func(w io.Writer) error {
				return export.CashFlowChart(w, res.Scenarios, res.Input.Pricing.LifetimeYears)
			}); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		switch proposeFormat {
		case "report":
			return export.Report(out, res, cfg.Report.Locale)
		case "json", "":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		default:
			return eris.Errorf("propose: unknown format %q", proposeFormat)
		}
	},
}

// buildProposeRequest assembles the engine request from flags.
func buildProposeRequest() (proposal.Request, error) {
	var req proposal.Request

	usage := proposeUsage
	if proposeUsageFile != "" {
		sum, err := readUsageFile(proposeUsageFile, fetcher.UsageOptions{
			Column:    proposeUsageColumn,
			SheetName: proposeUsageSheet,
			Charset:   proposeCharset,
		})
		if err != nil {
			return req, err
		}
		zap.L().Info("usage imported",
			zap.String("file", proposeUsageFile),
			zap.Int("months", sum.Months),
			zap.Float64("monthly_avg_kwh", sum.MonthlyAverageKWh),
		)
		usage = sum.MonthlyAverageKWh
	}
	req.MonthlyUsageKWh = usage

	if proposeTariffFile != "" {
		o, err := proposal.LoadTariffFile(proposeTariffFile)
		if err != nil {
			return req, err
		}
		req.PricingOverrides = o
	}

	if proposeRoofFile != "" {
		data, err := os.ReadFile(proposeRoofFile)
		if err != nil {
			return req, eris.Wrap(err, "propose: read roof analysis")
		}
		var ra model.RoofAnalysis
		if err := json.Unmarshal(data, &ra); err != nil {
			return req, eris.Wrap(err, "propose: parse roof analysis")
		}
		req.RoofAnalysis = &ra
	}
	return req, nil
}

// readUsageFile dispatches on the file extension.
func readUsageFile(path string, opts fetcher.UsageOptions) (fetcher.UsageSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return fetcher.UsageSummary{}, eris.Wrap(err, "propose: open usage file")
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return fetcher.ReadUsageXLSX(f, opts)
	default:
		return fetcher.ReadUsageCSV(f, opts)
	}
}

// writeFile creates path and hands it to fn.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	f := proposeCmd.Flags()
	f.Float64Var(&proposeUsage, "usage", 0, "average monthly usage in kWh")
	f.StringVar(&proposeUsageFile, "usage-file", "", "CSV or XLSX file of monthly readings (overrides --usage)")
	f.StringVar(&proposeUsageColumn, "usage-column", "", "header of the kWh column in --usage-file")
	f.StringVar(&proposeUsageSheet, "usage-sheet", "", "XLSX sheet name (default first sheet)")
	f.StringVar(&proposeCharset, "charset", "", "CSV character set, e.g. windows-1250")
	f.StringVar(&proposeTariffFile, "tariff", "", "YAML file of tariff overrides")
	f.StringVar(&proposeRoofFile, "roof", "", "JSON roof analysis (max panels, specific yield)")
	f.StringVar(&proposeFormat, "format", "json", "output format: json or report")
	f.StringVar(&proposeXLSX, "xlsx", "", "write the scenario workbook to this path")
	f.StringVar(&proposeChart, "chart", "", "write the cumulative cash-flow chart (PNG) to this path")
	f.StringVar(&proposeSave, "save", "", "persist the result under this label")
	f.Float64Var(&proposePriceDelta, "price-delta", 0, "relative buy price shift, e.g. 0.1 for +10%")
	f.Float64Var(&proposeUsageDelta, "usage-delta", 0, "relative usage shift, e.g. -0.2 for -20%")
	rootCmd.AddCommand(proposeCmd)
}
