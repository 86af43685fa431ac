package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Digital-Shane/title-scout/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		shown := masked(cfg)
		if jsonOutput {
			return writeJSON(out(cmd), shown)
		}
		data, err := yaml.Marshal(shown)
		if err != nil {
			return err
		}
		_, err = out(cmd).Write(data)
		return err
	},
}

// masked returns a copy of cfg with credentials hidden.
func masked(cfg *config.Config) *config.Config {
	c := *cfg
	for _, secret := range []*string{
		&c.Providers.TMDBAPIKey,
		&c.Providers.TVDBAPIKey,
		&c.Providers.OMDBAPIKey,
		&c.Providers.AllocinePartnerKey,
		&c.Providers.FanartTVAPIKey,
		&c.Cache.RedisPassword,
	} {
		if *secret != "" {
			*secret = "********"
		}
	}
	return &c
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.ConfigPath(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out(cmd), path)
		return nil
	},
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.ConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.DefaultConfig().SaveAs(path); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file with defaults")
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
