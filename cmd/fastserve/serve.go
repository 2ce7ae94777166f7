package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/searchktools/fastserve/app"
	"github.com/searchktools/fastserve/config"
)

var serveRoutes []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start serving the root directory. The server stops on SIGINT or
SIGTERM, drains queued connections and prints a summary.`,
	Example: `  fastserve serve --port 8080 --root-dir ./static
  fastserve serve -c fastserve.yaml --route /=index.html --route /about=about.html`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	config.NewManager().Flags(serveCmd.Flags())
	serveCmd.Flags().StringArrayVar(&serveRoutes, "route", nil,
		"static route as PATH=FILE (repeatable)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	routes, err := parseRoutes(serveRoutes)
	if err != nil {
		return err
	}
	cfg.Routes = append(cfg.Routes, routes...)

	a, err := app.New(cfg, app.WithReport(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	return a.Run(cmd.Context())
}

// parseRoutes turns PATH=FILE pairs into route configs
func parseRoutes(specs []string) ([]config.RouteConfig, error) {
	routes := make([]config.RouteConfig, 0, len(specs))
	for _, s := range specs {
		path, file, ok := strings.Cut(s, "=")
		if !ok || path == "" || file == "" {
			return nil, fmt.Errorf("invalid route %q, want PATH=FILE", s)
		}
		routes = append(routes, config.RouteConfig{Path: path, File: file})
	}
	return routes, nil
}
