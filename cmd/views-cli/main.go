package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-views/internal/config"
	"github.com/goliatone/go-views/internal/logger"
	"github.com/goliatone/go-views/internal/server"
	"github.com/goliatone/go-views/pkg/view"
)

// Build-time variables (set by ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

const shutdownTimeout = 5 * time.Second

type contextKey string

const configContextKey contextKey = "config"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "views-cli",
		Usage:   "Render EJS and pongo2 views from a resources directory",
		Version: fmt.Sprintf("%s (commit %s)", Version, GitCommit),
		Before:  setup,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (env VIEWS_CONFIG)",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set log level (debug, info, warn, error); overrides the config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Render a view and print the result",
				ArgsUsage: "VIEW",
				Action:    renderCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "resources", Aliases: []string{"r"}, Usage: "Resources directory (overrides config)"},
					&cli.StringFlag{Name: "engine", Aliases: []string{"e"}, Usage: "Engine name (overrides config)"},
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "View data as a JSON object"},
					&cli.StringFlag{Name: "data-file", Usage: "Read view data from a JSON or YAML file"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write output to a file instead of stdout"},
				},
			},
			{
				Name:   "engines",
				Usage:  "List registered template engines",
				Action: enginesCommand,
			},
			{
				Name:   "serve",
				Usage:  "Start the preview server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address (overrides config)"},
					&cli.StringFlag{Name: "resources", Aliases: []string{"r"}, Usage: "Resources directory (overrides config)"},
					&cli.StringFlag{Name: "engine", Aliases: []string{"e"}, Usage: "Engine name (overrides config)"},
				},
			},
		},
	}
}

// setup loads .env, the config file and the logger into the command context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return ctx, err
	}

	path := cmd.String("config")
	if !cmd.IsSet("config") {
		if v := os.Getenv(config.EnvConfigPath); v != "" {
			path = v
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return ctx, fmt.Errorf("invalid log level: %w", err)
	}
	ctx, err = logger.SetupContext(ctx, level)
	if err != nil {
		return ctx, err
	}

	logger.FromContext(ctx).Debug("Configuration loaded",
		zap.String("config_path", path),
		zap.String("resources_dir", cfg.ResourcesDir),
		zap.String("engine", cfg.Engine),
	)
	return context.WithValue(ctx, configContextKey, cfg), nil
}

func configFromContext(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configContextKey).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

// overrides applies per-command flags on top of the loaded config.
func overrides(ctx context.Context, cmd *cli.Command) config.Config {
	cfg := configFromContext(ctx)
	if v := cmd.String("resources"); v != "" {
		cfg.ResourcesDir = v
	}
	if v := cmd.String("engine"); v != "" {
		cfg.Engine = v
	}
	return cfg
}

func renderCommand(ctx context.Context, cmd *cli.Command) error {
	log := logger.FromContext(ctx)
	cfg := overrides(ctx, cmd)

	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("render: view name is required")
	}

	data, err := loadData(cmd.String("data"), cmd.String("data-file"))
	if err != nil {
		return err
	}

	svc := view.NewService(cfg.View())
	rs, err := svc.Engine(cfg.Engine)
	if err != nil {
		return err
	}

	out, err := rs.Render(ctx, view.Request{View: name, Data: data})
	if err != nil {
		log.Error("Render failed", zap.String("view", name), zap.String("engine", cfg.Engine), zap.Error(err))
		return fmt.Errorf("render %s: %w", name, err)
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info("Rendered view", zap.String("view", name), zap.String("output", path))
		return nil
	}

	_, err = fmt.Fprint(cmd.Root().Writer, out)
	return err
}

func enginesCommand(ctx context.Context, cmd *cli.Command) error {
	svc := view.NewService(configFromContext(ctx).View())
	for _, name := range svc.Engines() {
		if _, err := fmt.Fprintln(cmd.Root().Writer, name); err != nil {
			return err
		}
	}
	return nil
}

func serveCommand(ctx context.Context, cmd *cli.Command) error {
	log := logger.FromContext(ctx)
	cfg := overrides(ctx, cmd)
	if v := cmd.String("addr"); v != "" {
		cfg.Server.Addr = v
	}

	app := server.New(server.Deps{
		Service: view.NewService(cfg.View()),
		Engine:  cfg.Engine,
		Logger:  log,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting preview server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("resources_dir", cfg.ResourcesDir),
		zap.String("engine", cfg.Engine),
	)
	if err := server.Start(ctx, app, cfg.Server.Addr, shutdownTimeout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("Server stopped cleanly")
	return nil
}

// loadData merges the data file (if any) with the inline JSON object, the
// inline values winning.
func loadData(inline, file string) (map[string]any, error) {
	data := make(map[string]any)

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &data)
		default:
			err = json.Unmarshal(raw, &data)
		}
		if err != nil {
			return nil, fmt.Errorf("parse data file %s: %w", file, err)
		}
	}

	if inline != "" {
		var values map[string]any
		if err := json.Unmarshal([]byte(inline), &values); err != nil {
			return nil, fmt.Errorf("parse --data: %w", err)
		}
		for k, v := range values {
			data[k] = v
		}
	}
	return data, nil
}
