package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estate-crm/internal/model"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Manage lead sheets",
}

var sheetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sheets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sheets, err := st.ListSheets(ctx)
		if err != nil {
			return eris.Wrap(err, "sheets list")
		}
		if len(sheets) == 0 {
			fmt.Fprintln(os.Stderr, "No sheets found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME")
		for _, s := range sheets {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", s.ID, s.Name)
		}
		return w.Flush()
	},
}

var sheetsAddCmd = &cobra.Command{
	Use:   "add <sheet-id> <name>",
	Short: "Create or rename a sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpsertSheet(ctx, model.Sheet{ID: args[0], Name: args[1]}); err != nil {
			return eris.Wrap(err, "sheets add")
		}
		fmt.Fprintf(os.Stdout, "Saved sheet %s\n", args[0])
		return nil
	},
}

func init() {
	sheetsCmd.AddCommand(sheetsListCmd)
	sheetsCmd.AddCommand(sheetsAddCmd)
	rootCmd.AddCommand(sheetsCmd)
}
