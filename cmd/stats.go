package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/monitoring"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the lead book and recent staff activity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sheet, _ := cmd.Flags().GetString("sheet")
		lookback, _ := cmd.Flags().GetInt("lookback-hours")
		asJSON, _ := cmd.Flags().GetBool("json")
		if lookback <= 0 {
			lookback = cfg.Stats.LookbackHours
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, sheet, lookback)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	statsCmd.Flags().String("sheet", "", "limit to one sheet")
	statsCmd.Flags().Int("lookback-hours", 0, "activity window in hours (default from config)")
	statsCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statsCmd)
}

// formatSnapshot writes a statistics snapshot to w.
func formatSnapshot(out io.Writer, s *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Clients:\t%d\n", s.ClientsTotal)
	writeCounts(w, "Lead stage", s.ByLeadStage, func(v string) string { return model.LeadStage(v).Label() })
	writeCounts(w, "Lead type", s.ByLeadType, func(v string) string { return model.LeadType(v).Label() })
	writeCounts(w, "Deal status", s.ByDealStatus, func(v string) string { return model.DealStatus(v).Label() })
	_, _ = fmt.Fprintf(w, "Upcoming visits:\t%d\n", s.UpcomingVisits)
	_, _ = fmt.Fprintf(w, "Activity (last %dh):\t%d\n", s.LookbackHours, s.ActivityTotal)
	_, _ = fmt.Fprintf(w, "  Field edits:\t%d\n", s.FieldEdits)
	_, _ = fmt.Fprintf(w, "  Comments:\t%d\n", s.Comments)
	_, _ = fmt.Fprintf(w, "  Active staff:\t%d\n", s.ActiveStaff)
	_ = w.Flush()
}

func writeCounts(w io.Writer, title string, counts map[string]int, label func(string) string) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(w, "%s:\t\n", title)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", label(k), counts[k])
	}
}
