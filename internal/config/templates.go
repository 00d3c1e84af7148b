package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Breach Disclosure Analyzer Configuration

[database]
# SQLite database holding company_info, data_breach_disclosures, stock_data and index_data
# path = "~/.config/breach-analyzer/disclosures.db"
# Connection attempts before the run is aborted
ping_attempts = 3

[analysis]
# Calendar days on each side of the (possibly substituted) disclosure date
window_days = 7
# Days searched forward when the disclosure date has no market data (0 disables)
search_days = 7
# Mann-Whitney U p-value method: auto, exact, asymptotic
rank_sum_method = "auto"

[output]
dir = "output"
spreadsheet = true
pdf = true
charts = true

[logging]
# debug, info, warn, error
level = "info"
console = false

[ui]
color_enabled = true
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
