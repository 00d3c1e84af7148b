package cli

import (
	"os"

	"github.com/spf13/cobra"

	"breach-analyzer/internal/store"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <companies|disclosures|stock|index> <file.csv>",
		Short: "Load a CSV file into the database",
		Long: `Load a headered CSV file into one of the database tables.

  companies    company_id, company_name, location, stock_symbol
  disclosures  company_id, disclosure_date
  stock        company_id, date, open, close, volume
  index        date, open, close, volume

Dates use YYYY-MM-DD. Market values are stored as given, so volumes such
as 12.3M or 1.1B are accepted.`,
		Example: `  breach-analyzer import companies companies.csv
  breach-analyzer import stock acme_prices.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			kind, err := store.ParseImportKind(args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			ds, err := app.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := ds.ImportCSV(cmd.Context(), kind, f)
			app.Logger.Info().Str("kind", string(kind)).Str("file", args[1]).Int("records", n).Err(err).Msg("CSV import")
			if err != nil {
				output.Error("Import stopped after %d records: %v", n, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"kind": kind, "file": args[1], "records": n})
			}
			output.Success("Imported %d %s records from %s", n, kind, args[1])
			return nil
		},
	}
}
