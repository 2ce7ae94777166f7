package main

import (
	"github.com/spf13/cobra"

	"github.com/searchktools/fastserve/config"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "fastserve",
	Short: "fastserve - a static file server with a response cache",
	Long: `fastserve serves files from a root directory over HTTP/1.1.
Connections are spread over sharded queues and handled by a fixed worker
pool; file bodies are kept in an LRU cache.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("fastserve version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file (yaml, json or toml)")
}

// loadConfig layers the config file, FASTSERVE_* variables and the
// flags of cmd that the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	m := config.NewManager()
	if err := m.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return m.Load(configFile)
}
