package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/zettel/internal"
	"github.com/starford/zettel/internal/models"
	pkgconfig "github.com/starford/zettel/pkg/config"
)

var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func newID(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	id, err := internal.NewID(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func newNote(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	n, err := internal.CreateNote(ctx, models.Note{
		ID:          cmd.String("id"),
		Title:       cmd.String("title"),
		Body:        cmd.String("body"),
		Tags:        cmd.StringSlice("tag"),
		IsReference: cmd.Bool("reference"),
	}, opts...)
	if err != nil {
		return err
	}
	fmt.Println(n.ID)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "zettel",
		Usage:   "Zettelkasten note graph with wikilink-derived edges and local-model suggestions",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:   "new-id",
				Usage:  "Print an unused note identifier",
				Action: newID,
			},
			{
				Name:   "new",
				Usage:  "Create a note and print its id",
				Action: newNote,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Note id (generated when empty)"},
					&cli.StringFlag{Name: "title", Usage: "Display title"},
					&cli.StringFlag{Name: "body", Usage: "Markdown body", Required: true},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable)"},
					&cli.BoolFlag{Name: "reference", Usage: "Mark as a reference note"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
