package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rmarinho/toonchat/internal/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		settings, err := store.Settings(cmd.Context())
		if err != nil {
			return err
		}
		theme, err := store.Theme(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("max_results:   %d\n", settings.MaxResults)
		fmt.Printf("auto_scroll:   %t\n", settings.AutoScroll)
		fmt.Printf("sound_enabled: %t\n", settings.SoundEnabled)
		fmt.Printf("theme:         %s\n", theme)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long:  "Change one setting. Keys: max_results, auto_scroll, sound_enabled, theme.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		key, value := args[0], args[1]
		if key == "theme" {
			if value != domain.ThemeLight && value != domain.ThemeDark {
				return fmt.Errorf("theme must be %q or %q", domain.ThemeLight, domain.ThemeDark)
			}
			return store.SaveTheme(cmd.Context(), value)
		}

		settings, err := store.Settings(cmd.Context())
		if err != nil {
			return err
		}

		switch key {
		case "max_results":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("max_results must be a positive integer")
			}
			settings.MaxResults = n
		case "auto_scroll", "sound_enabled":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s must be true or false", key)
			}
			if key == "auto_scroll" {
				settings.AutoScroll = b
			} else {
				settings.SoundEnabled = b
			}
		default:
			return fmt.Errorf("unknown setting %q", key)
		}

		return store.SaveSettings(cmd.Context(), settings)
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
