package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the staff activity log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		clientID, _ := cmd.Flags().GetString("client")
		staffID, _ := cmd.Flags().GetString("staff")
		sheet, _ := cmd.Flags().GetString("sheet")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.ActivityFilter{
			ClientID: clientID,
			StaffID:  staffID,
			SheetID:  sheet,
			Limit:    limit,
		}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListActivity(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "activity list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No activity found.")
			return nil
		}

		formatActivity(os.Stdout, entries)
		return nil
	},
}

func init() {
	activityCmd.Flags().String("client", "", "filter by client id")
	activityCmd.Flags().String("staff", "", "filter by staff id")
	activityCmd.Flags().String("sheet", "", "filter by sheet id")
	activityCmd.Flags().Duration("since", 0, "only entries newer than this (e.g. 24h)")
	activityCmd.Flags().Int("limit", 50, "max number of entries to display")
	rootCmd.AddCommand(activityCmd)
}

// formatActivity writes activity entries, newest first, to w.
func formatActivity(out io.Writer, entries []model.ActivityEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tSTAFF\tCLIENT\tACTION\tFIELD\tOLD\tNEW")
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t------\t-----\t---\t---")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.StaffName,
			e.ClientName,
			e.ActionType,
			e.FieldChanged,
			orDash(e.OldValue),
			orDash(e.NewValue),
		)
	}
	_ = w.Flush()
}
