package cli

import (
	"github.com/spf13/cobra"
)

func newCompaniesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "companies",
		Aliases: []string{"ls"},
		Short:   "List companies with disclosure data",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			companies, err := ds.ListCompanies(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(companies)
			}
			printCompanies(output, companies)
			return nil
		},
	}
}
