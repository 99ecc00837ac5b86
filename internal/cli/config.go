package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tfvm/internal/config"
	"tfvm/internal/tui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report configured values that were replaced or need attention",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"tool":          cfg.Tool,
			"version":       cfg.Version,
			"install_dir":   cfg.InstallDir,
			"downloads_url": cfg.DownloadsURL,
			"releases_url":  cfg.ReleasesURL,
			"timeout":       cfg.Timeout.String(),
			"log_level":     cfg.LogLevel,
		})
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	// Findings are printed below rather than logged.
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	results := cfg.Validate()
	if outputJSON {
		if results == nil {
			results = []config.ValidationResult{}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "configuration OK")
		return nil
	}
	errorCount := 0
	for _, r := range results {
		if r.Level == "error" {
			errorCount++
		}
		fmt.Fprintf(out, "%s %s\n", tui.WarningStyle.Render(r.Level+":"), r.Message)
	}
	if errorCount > 0 {
		return fmt.Errorf("configuration has %d error(s)", errorCount)
	}
	return nil
}
