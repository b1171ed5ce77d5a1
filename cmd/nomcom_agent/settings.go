package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/nomcom-feedback/internal/config"
)

func newSettingsCmd(root *rootOptions) *cobra.Command {
	var summaries, apiKey string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		Long: `Prints the settings stored in {config_dir}/settings.json. --summaries on|off
turns summarization on or off for future runs; --api-key stores the key used
for the configured LLM provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			st := settingsStore(cfg)

			var enabled *bool
			if cmd.Flags().Changed("summaries") {
				v, err := parseOnOff("summaries", summaries)
				if err != nil {
					return err
				}
				enabled = &v
			}
			changeKey := cmd.Flags().Changed("api-key")

			var s config.Settings
			if enabled != nil || changeKey {
				s, err = st.Update(func(s *config.Settings) {
					if enabled != nil {
						s.SummariesEnabled = enabled
					}
					if changeKey {
						s.APIKey = strings.TrimSpace(apiKey)
					}
				})
			} else {
				s, err = st.Load()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Settings: %s\n", st.Path())
			_, _ = fmt.Fprintf(out, "  summaries: %s\n", onOff(s.Summaries()))
			_, _ = fmt.Fprintf(out, "  api_key:   %s\n", maskKey(s.APIKey))
			return nil
		},
	}
	cmd.Flags().StringVar(&summaries, "summaries", "", "Turn summaries on or off")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Store the LLM API key (empty clears it)")
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// maskKey keeps the last four characters of a key
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
}
