package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estate-crm/internal/export"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Inspect and export clients",
}

// -- clients list --

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		clients, err := st.ListClients(ctx, clientFilterFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "clients list")
		}
		if len(clients) == 0 {
			fmt.Fprintln(os.Stderr, "No clients found.")
			return nil
		}

		formatClientsList(os.Stdout, clients)
		return nil
	},
}

// -- clients show --

var clientsShowCmd = &cobra.Command{
	Use:   "show <client-id>",
	Short: "Show a client with its comment history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := st.GetClient(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "clients show")
		}
		if c == nil {
			return eris.Errorf("client not found: %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

// -- clients export --

var clientsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export clients as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		formatName, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		clients, err := st.ListClients(ctx, clientFilterFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "clients export")
		}

		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrap(err, "clients export: create file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := export.Write(out, format, clients); err != nil {
			return err
		}
		if outPath != "" {
			fmt.Fprintf(os.Stderr, "Exported %d clients to %s\n", len(clients), outPath)
		}
		return nil
	},
}

// -- clients delete --

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <client-id>",
	Short: "Delete a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteClient(ctx, args[0]); err != nil {
			return eris.Wrap(err, "clients delete")
		}
		fmt.Fprintf(os.Stdout, "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{clientsListCmd, clientsExportCmd} {
		c.Flags().String("sheet", "", "filter by sheet id")
		c.Flags().String("lead-stage", "", "filter by lead stage code")
		c.Flags().String("lead-type", "", "filter by lead type (hot, warm, cold)")
		c.Flags().String("deal-status", "", "filter by deal status (open, locked, lost)")
		c.Flags().String("search", "", "match client name or customer number")
	}
	clientsListCmd.Flags().Int("limit", 50, "max number of clients to display")
	clientsListCmd.Flags().Int("offset", 0, "number of clients to skip")
	clientsExportCmd.Flags().String("format", "csv", "output format (csv, xlsx)")
	clientsExportCmd.Flags().String("out", "", "output file (default stdout)")

	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsShowCmd)
	clientsCmd.AddCommand(clientsExportCmd)
	clientsCmd.AddCommand(clientsDeleteCmd)
	rootCmd.AddCommand(clientsCmd)
}

func clientFilterFromFlags(cmd *cobra.Command) store.ClientFilter {
	sheet, _ := cmd.Flags().GetString("sheet")
	stage, _ := cmd.Flags().GetString("lead-stage")
	leadType, _ := cmd.Flags().GetString("lead-type")
	deal, _ := cmd.Flags().GetString("deal-status")
	search, _ := cmd.Flags().GetString("search")
	// Absent flags read as zero, which lists everything.
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	return store.ClientFilter{
		SheetID:    sheet,
		LeadStage:  model.LeadStage(stage),
		LeadType:   model.LeadType(leadType),
		DealStatus: model.DealStatus(deal),
		Search:     search,
		Limit:      limit,
		Offset:     offset,
	}
}

// formatClientsList writes a tabular list of clients to w.
func formatClientsList(out io.Writer, clients []model.Client) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLIENT\tNUMBER\tSTAGE\tTYPE\tDEAL\tVISIT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-----\t----\t----\t-----\t-------")

	for _, c := range clients {
		name := c.ClientName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(c.ID),
			name,
			orDash(c.CustomerNumber),
			c.LeadStage.Label(),
			c.LeadType.Label(),
			c.DealStatus.Label(),
			orDash(c.ExpectedVisitDate),
			c.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
