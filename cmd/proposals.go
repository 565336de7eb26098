package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/store"
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Inspect saved proposals",
}

// -- proposals list --

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved proposals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		label, _ := cmd.Flags().GetString("label")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		recs, err := st.ListProposals(ctx, store.ProposalFilter{Label: label, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "proposals list")
		}

		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No proposals found.")
			return nil
		}

		formatProposalsList(cmd.OutOrStdout(), recs)
		return nil
	},
}

// -- proposals get --

var proposalsGetCmd = &cobra.Command{
	Use:   "get <proposal-id>",
	Short: "Show a saved proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetProposal(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "proposals get")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	proposalsListCmd.Flags().String("label", "", "filter by label")
	proposalsListCmd.Flags().Int("limit", 50, "max number of proposals to display")
	proposalsListCmd.Flags().Int("offset", 0, "skip this many proposals")

	proposalsCmd.AddCommand(proposalsListCmd)
	proposalsCmd.AddCommand(proposalsGetCmd)
	rootCmd.AddCommand(proposalsCmd)
}

// formatProposalsList writes a tabular list of proposals to w.
func formatProposalsList(out io.Writer, recs []model.ProposalRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tUSAGE_KWH\tSMART_PANELS\tSMART_PAYBACK\tCREATED")
	for _, r := range recs {
		panels, payback := "-", "-"
		if s, ok := r.Result.Scenario(model.StrategySmartMatch); ok {
			panels = fmt.Sprintf("%d", s.Panels)
			if s.PaybackYears != nil {
				payback = fmt.Sprintf("%.1f", *s.PaybackYears)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Label, r.Result.AnnualUsageKWh, panels, payback,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	_ = w.Flush()
}
