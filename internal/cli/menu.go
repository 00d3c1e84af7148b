package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "breach-analyzer/internal/errors"
)

func newMenuCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Start the interactive menu (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd, app)
		},
	}
}

// menu is the interactive loop. Only a data store failure ends it with an
// error; every other problem is reported and the menu is shown again.
type menu struct {
	app    *App
	output *Output
	in     *bufio.Scanner
}

func runMenu(cmd *cobra.Command, app *App) error {
	// The menu is interactive; --json does not apply to it.
	output := NewOutput(cmd)
	output.jsonMode = false

	m := &menu{
		app:    app,
		output: output,
		in:     bufio.NewScanner(cmd.InOrStdin()),
	}
	defer app.Close()
	return m.run(cmd.Context())
}

func (m *menu) run(ctx context.Context) error {
	m.greeting()

	for {
		m.output.Println()
		m.output.Bold("Main Menu:")
		m.output.Println(" 1. Display company info")
		m.output.Println(" 2. Analyze company data")
		m.output.Println(" 0. Exit")

		choice, err := m.prompt("\nEnter your choice: ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "0":
			m.app.Logger.Info().Msg("Exiting")
			return nil
		case "1":
			err = m.listCompanies(ctx)
		case "2":
			err = m.analyze(ctx)
		default:
			m.output.Warning("Invalid choice. Please try again.")
			continue
		}

		if err != nil {
			m.output.Error("%s", errorMessage(err))
			if apperrors.IsFatal(err) {
				return err
			}
		}
	}
}

func (m *menu) greeting() {
	m.output.Bold("*** Breach Disclosure Analyzer ***")
	m.output.Dim("%s", time.Now().Format("01-02-2006 03:04 PM"))
}

// prompt prints label and reads one trimmed line.
func (m *menu) prompt(label string) (string, error) {
	m.output.Printf("%s", label)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *menu) listCompanies(ctx context.Context) error {
	ds, err := m.app.OpenStore(ctx)
	if err != nil {
		return err
	}
	companies, err := ds.ListCompanies(ctx)
	if err != nil {
		return err
	}
	printCompanies(m.output, companies)
	return nil
}

func (m *menu) analyze(ctx context.Context) error {
	if err := m.listCompanies(ctx); err != nil {
		return err
	}

	input, err := m.prompt("\nEnter a company ID to analyze (0 to cancel): ")
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	id, err := parseCompanyID(input)
	if err != nil {
		m.output.Warning("Analysis cancelled: %v", err)
		return nil
	}
	if id == 0 {
		m.output.Warning("Analysis cancelled.")
		return nil
	}

	m.output.Info("Analyzing company %d...", id)
	err = analyzeCompany(ctx, m.output, m.app, id, true)
	if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrExportFailed) {
		// already reported by analyzeCompany
		return nil
	}
	return err
}
