package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/bmi/internal/config"
	"github.com/steveyegge/bmi/internal/storage"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after applying the config file, .env,
BMI_* environment variables and command-line flags.

The output is a valid config file:
  bmi config > bmi.yaml`,
	Annotations: map[string]string{skipStorage: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if err := printConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// printConfig writes c as YAML, resolving the storage path if it is discovered
func printConfig(w io.Writer, c *config.Config) error {
	out := *c
	if out.Storage.Path == "" && out.Storage.Backend != storage.BackendMemory {
		if path, err := storage.DiscoverPath(out.Storage.Backend); err == nil {
			out.Storage.Path = path
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
