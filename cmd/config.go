package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aish-sh/aish/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("config dir:  %s\n", dir)
	fmt.Printf("provider:    %s\n", cfg.Provider)
	fmt.Printf("model:       %s\n", cfg.ActiveModel())
	fmt.Printf("temperature: %.2f\n", cfg.Chat.Temperature)
	fmt.Printf("sessions:    enabled=%v\n", cfg.Sessions.Enabled)
	fmt.Printf("debug:       enabled=%v\n", cfg.Debug.Enabled)

	profile := cfg.BudgetProfile(cfg.ActiveModel())
	fmt.Printf("budget:      context=%d reserve=%d per-message=%d per-name=%d\n",
		profile.ContextLimit, profile.MaxResponseTokens,
		profile.TokensPerMessage, profile.TokensPerName)

	if len(cfg.Presets) > 0 {
		fmt.Println("presets:")
		for name, preset := range cfg.Presets {
			fmt.Printf("  %-12s %s/%s\n", name, preset.Provider, preset.Model)
		}
	}
	return nil
}
