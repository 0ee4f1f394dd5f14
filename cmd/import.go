package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/csvimport"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import leads from a CSV or XLSX file",
	Long: "Reads a lead spreadsheet, maps its columns to client fields (auto-detected from the header " +
		"unless --map or --mapping is given), and inserts every row with a client name in one batch.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		noHeader, _ := cmd.Flags().GetBool("no-header")
		mapSpec, _ := cmd.Flags().GetString("map")
		mappingFile, _ := cmd.Flags().GetString("mapping")
		encoding, _ := cmd.Flags().GetString("encoding")
		xlsxSheet, _ := cmd.Flags().GetString("xlsx-sheet")
		sheetID, _ := cmd.Flags().GetString("sheet")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if mapSpec != "" && mappingFile != "" {
			return eris.New("--map and --mapping are mutually exclusive")
		}

		rows, err := readImportFile(args[0], encoding, xlsxSheet)
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess := csvimport.NewSession(st, nil)
		sess.Load(rows)
		sess.SetHasHeader(!noHeader)
		if cfg.Import.MaxRows > 0 && sess.DataRows() > cfg.Import.MaxRows {
			return eris.Errorf("file has %d rows, the limit is %d", sess.DataRows(), cfg.Import.MaxRows)
		}

		switch {
		case mapSpec != "":
			m, err := csvimport.ParseMapping(mapSpec)
			if err != nil {
				return err
			}
			sess.ReplaceMapping(m)
		case mappingFile != "":
			preset, err := csvimport.LoadMappingFile(mappingFile)
			if err != nil {
				return err
			}
			sess.ReplaceMapping(preset.Resolve(sess.Header()))
		}
		if sheetID = strings.TrimSpace(sheetID); sheetID != "" {
			sess.SetSheet(&sheetID)
		}

		m := sess.Mapping()
		for field, cols := range m.Duplicates() {
			zap.L().Warn("several columns map to one field, first non-empty wins",
				zap.String("field", string(field)),
				zap.Ints("columns", cols),
			)
		}
		formatMapping(os.Stderr, sess.Header(), m)

		batch := sess.Preview()
		if dryRun {
			formatBatch(os.Stdout, batch)
			return nil
		}

		inserted, err := sess.Commit(ctx)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		fmt.Fprintf(os.Stdout, "Imported %d of %d rows", len(inserted), batch.Total)
		if len(batch.Skipped) > 0 {
			fmt.Fprintf(os.Stdout, " (skipped %d without a client name)", len(batch.Skipped))
		}
		fmt.Fprintln(os.Stdout)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("no-header", false, "treat the first row as data")
	importCmd.Flags().String("map", "", `explicit column mapping, e.g. "0=client_name,2=lead_stage"`)
	importCmd.Flags().String("mapping", "", "YAML mapping preset file")
	importCmd.Flags().String("encoding", "", "text encoding of CSV input (default from config)")
	importCmd.Flags().String("xlsx-sheet", "", "worksheet to read from an XLSX file (default first)")
	importCmd.Flags().String("sheet", "", "sheet id to assign imported clients to")
	importCmd.Flags().Bool("dry-run", false, "map and print records without inserting")
	rootCmd.AddCommand(importCmd)
}

func readImportFile(path, encoding, xlsxSheet string) ([][]string, error) {
	if csvimport.IsXLSX(path) {
		return csvimport.ReadXLSX(path, xlsxSheet)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open import file")
	}
	defer f.Close() //nolint:errcheck

	if encoding == "" {
		encoding = cfg.Import.DefaultEncoding
	}
	text, err := csvimport.Decode(f, encoding)
	if err != nil {
		return nil, err
	}
	return csvimport.Tokenize(text), nil
}

// formatMapping writes the column mapping in use.
func formatMapping(out io.Writer, header []string, m csvimport.Mapping) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COLUMN\tHEADER\tFIELD")
	for _, col := range m.Columns() {
		label := ""
		if col < len(header) {
			label = header[col]
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", col, label, m[col].Label())
	}
	_ = w.Flush()
}

// formatBatch writes a dry-run preview of mapped records.
func formatBatch(out io.Writer, b csvimport.Batch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLIENT\tNUMBER\tSTAGE\tTYPE\tVISIT")
	for _, r := range b.Records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ClientName,
			orDash(r.CustomerNumber),
			r.LeadStage.Label(),
			r.LeadType.Label(),
			orDash(r.ExpectedVisitDate),
		)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "%d records, %d skipped, %d rows\n", len(b.Records), len(b.Skipped), b.Total)
	if len(b.Skipped) > 0 {
		_, _ = fmt.Fprintf(out, "Skipped lines: %s\n", joinInts(b.Skipped))
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
