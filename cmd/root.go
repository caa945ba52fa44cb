// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/ringscout/cmd/importcmd"
	"github.com/tphakala/ringscout/cmd/realtime"
	"github.com/tphakala/ringscout/cmd/search"
	"github.com/tphakala/ringscout/internal/conf"
)

// RootCommand creates and returns the root command with all subcommands.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ringscout",
		Short: "RingScout mining hotspot database",
		Long: "RingScout maintains a local spatial database of ring mining hotspots, " +
			"fed by the game journal, the community live feed and bulk dataset imports.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		importcmd.Command(settings),
		search.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Command-line arguments take precedence over the config file.
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags configures the global flags shared by every subcommand.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Database.Path, "database", viper.GetString("database.path"), "Path to the hotspot database file")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding global flags: %v\n", err)
	}
}
