package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aish-sh/aish/internal/config"
	"github.com/aish-sh/aish/internal/llm"
)

var rootCmd = &cobra.Command{
	Use:   "aish",
	Short: "An interactive AI shell",
	Long: `aish is an interactive command-line AI shell: type a question, watch the
answer stream in, and let the model run shell commands (with confirmation)
when it needs to look something up.

Examples:
  aish                       # start an interactive chat
  aish --resume              # pick up the previous conversation
  aish --model gpt-5.2       # override the configured model
  aish models sonnet         # find a model by fuzzy name
  aish config                # view configuration`,
	RunE:              runChat,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var (
	flagProvider string
	flagModel    string
	flagResume   bool
	flagNoTools  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "Provider to use (anthropic, openai)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model to use for the active provider")
	rootCmd.Flags().BoolVar(&flagResume, "resume", false, "Resume the previous conversation")
	rootCmd.Flags().BoolVar(&flagNoTools, "no-tools", false, "Disable shell tool calls")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(flagProvider, flagModel)
	return cfg, nil
}

// buildProvider constructs the backend for the active provider.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("no Anthropic API key: set anthropic.api_key or ANTHROPIC_API_KEY")
		}
		return llm.NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("no OpenAI API key: set openai.api_key or OPENAI_API_KEY")
		}
		return llm.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected anthropic or openai)", cfg.Provider)
	}
}
