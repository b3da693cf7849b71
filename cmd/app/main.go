// Command app serves the anchorage link API.
//
//	@title						anchorage API
//	@version					1.0
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/anchorage/internal"
	pkgconfig "github.com/starford/anchorage/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(configPath, "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if _, err := os.Stat(configPath); err == nil {
		opts = append(opts, internal.WithConfigPath(configPath))
	}
	return opts, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func graph(ctx context.Context, cmd *cli.Command) error {
	return internal.PrintGraph(ctx, os.Stdout, internal.GraphOptions{
		Server: cmd.String("server"),
		Token:  cmd.String("token"),
		NodeID: cmd.String("node"),
		SVG:    cmd.Bool("svg"),
	})
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "anchorage",
		Usage:  "Anchors, links and link graphs over a tree of hypermedia nodes",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Flags:  []cli.Flag{configFlag},
				Action: mcp,
			},
			{
				Name:  "graph",
				Usage: "Print the link graph of a node's children from a running server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "server",
						Usage:   "Server base URL",
						Value:   "http://localhost:8080",
						Sources: cli.EnvVars("ANCHORAGE_SERVER"),
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Bearer token",
						Sources: cli.EnvVars("ANCHORAGE_TOKEN"),
					},
					&cli.StringFlag{
						Name:     "node",
						Usage:    "Parent node id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "svg",
						Usage: "Render SVG instead of DOT",
					},
				},
				Action: graph,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
