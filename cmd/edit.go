package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estate-crm/internal/model"
)

var editCmd = &cobra.Command{
	Use:   "edit <client-id> <field> [value]",
	Short: "Change an editable field on a client",
	Long: "Sets lead_stage, lead_type, deal_status, location_category or expected_visit_date (YYYY-MM-DD). " +
		"Omit the value to clear an optional field. The change is recorded in the activity log.",
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		staffID, _ := cmd.Flags().GetString("staff-id")
		staffName, _ := cmd.Flags().GetString("staff-name")
		actor, err := actorFromFlags(staffID, staffName)
		if err != nil {
			return err
		}

		field, ok := model.ParseField(args[1])
		if !ok {
			return eris.Errorf("unknown field %q", args[1])
		}
		var value *string
		if len(args) == 3 {
			value = &args[2]
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, changed, err := newService(st).Edit(ctx, actor, args[0], field, value)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(os.Stderr, "No change.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%s: %s = %s\n", c.ClientName, field.Label(), orDash(model.DisplayValue(field, c.Value(field))))
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <client-id> <text>",
	Short: "Add a calling comment to a client",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		staffID, _ := cmd.Flags().GetString("staff-id")
		staffName, _ := cmd.Flags().GetString("staff-name")
		actor, err := actorFromFlags(staffID, staffName)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := newService(st).Comment(ctx, actor, args[0], args[1])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c.CallingCommentHistory)
	},
}

func init() {
	for _, c := range []*cobra.Command{editCmd, commentCmd} {
		c.Flags().String("staff-id", os.Getenv("ESTATE_STAFF_ID"), "acting staff member id (env ESTATE_STAFF_ID)")
		c.Flags().String("staff-name", os.Getenv("ESTATE_STAFF_NAME"), "acting staff member name (env ESTATE_STAFF_NAME)")
		rootCmd.AddCommand(c)
	}
}
