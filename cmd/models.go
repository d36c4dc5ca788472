package cmd

import (
	"fmt"
	"sort"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/aish-sh/aish/internal/config"
)

// knownModels lists the models each provider is known to serve. Configured
// presets extend this set at runtime.
var knownModels = map[string][]string{
	"anthropic": {
		"claude-opus-4-5",
		"claude-sonnet-4-5",
		"claude-haiku-4-5",
	},
	"openai": {
		"gpt-5.2",
		"gpt-5.2-mini",
		"gpt-5.2-codex",
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models [filter]",
	Short: "List known models and configured presets",
	Long: `List known models and configured presets.

With an argument, the list is fuzzy-filtered.

Examples:
  aish models
  aish models sonnet
  aish models --provider openai`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

var modelsProviderFlag string

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVarP(&modelsProviderFlag, "provider", "p", "", "Only list models for one provider")
}

// modelChoice is one selectable entry: a concrete model or a preset name.
type modelChoice struct {
	Provider string
	Model    string
	Preset   string
}

func (c modelChoice) label() string {
	if c.Preset != "" {
		return fmt.Sprintf("%s (preset: %s/%s)", c.Preset, c.Provider, c.Model)
	}
	return fmt.Sprintf("%s/%s", c.Provider, c.Model)
}

func modelChoices(cfg *config.Config) []modelChoice {
	var choices []modelChoice
	providers := make([]string, 0, len(knownModels))
	for p := range knownModels {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		for _, m := range knownModels[p] {
			choices = append(choices, modelChoice{Provider: p, Model: m})
		}
	}

	names := make([]string, 0, len(cfg.Presets))
	for name := range cfg.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		preset := cfg.Presets[name]
		choices = append(choices, modelChoice{Provider: preset.Provider, Model: preset.Model, Preset: name})
	}
	return choices
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	choices := modelChoices(cfg)
	if modelsProviderFlag != "" {
		filtered := choices[:0]
		for _, c := range choices {
			if c.Provider == modelsProviderFlag {
				filtered = append(filtered, c)
			}
		}
		choices = filtered
	}
	if len(args) == 1 {
		choices = fuzzyFilter(choices, args[0])
	}

	if len(choices) == 0 {
		fmt.Println("no matching models")
		return nil
	}
	active := cfg.ActiveModel()
	for _, c := range choices {
		marker := "  "
		if c.Preset == "" && c.Provider == cfg.Provider && c.Model == active {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, c.label())
	}
	return nil
}

func fuzzyFilter(choices []modelChoice, pattern string) []modelChoice {
	targets := make([]string, len(choices))
	for i, c := range choices {
		targets[i] = c.searchKey()
	}
	matches := fuzzy.Find(pattern, targets)
	out := make([]modelChoice, 0, len(matches))
	for _, m := range matches {
		out = append(out, choices[m.Index])
	}
	return out
}

func (c modelChoice) searchKey() string {
	if c.Preset != "" {
		return c.Preset + " " + c.Model
	}
	return c.Model
}

// resolveModel maps a user-supplied name to a provider and model: an exact
// preset name wins, then an exact model name, then the best fuzzy match over
// both.
func resolveModel(cfg *config.Config, name string) (provider, model string, err error) {
	if preset, ok := cfg.Presets[name]; ok {
		return preset.Provider, preset.Model, nil
	}
	choices := modelChoices(cfg)
	for _, c := range choices {
		if c.Preset == "" && c.Model == name {
			return c.Provider, c.Model, nil
		}
	}
	matched := fuzzyFilter(choices, name)
	if len(matched) == 0 {
		return "", "", fmt.Errorf("no model or preset matches %q", name)
	}
	best := matched[0]
	if best.Provider == "" {
		// Preset without an explicit provider keeps the active one.
		return cfg.Provider, best.Model, nil
	}
	return best.Provider, best.Model, nil
}
