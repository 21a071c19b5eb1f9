package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattt/mcpdemo/internal/apidoc"
	"github.com/mattt/mcpdemo/internal/config"
	"github.com/mattt/mcpdemo/mcp"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// serveFlags holds the command line overrides of the environment configuration.
type serveFlags struct {
	envFile  string
	config   string
	mode     string
	port     int
	host     string
	cors     bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	var flags serveFlags

	rootCmd := &cobra.Command{
		Use:   "mcpdemo",
		Short: "A demonstration MCP service with translation and arithmetic tools",
		Long: `mcpdemo serves a small toolset over two transports:

- stdio: one JSON request per line on stdin, one JSON response per line on stdout
- http: POST /mcp, GET /health, GET / and GET /openapi.yaml

Requests may use JSON-RPC 2.0 (initialize, shutdown) or the MCP envelope
(discover, execute). Settings are read from the environment and an optional
.env file, falling back to an optional TOML file given with --config.
Flags take precedence over all of them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}

	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the MCP service (default)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVarP(&flags.config, "config", "c", "", "TOML configuration file; the environment takes precedence over it")
		c.Flags().StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file (default .env, if present)")
		c.Flags().StringVar(&flags.mode, "mode", config.ModeStdio, "Transport mode: stdio or http (env MCP_MODE)")
		c.Flags().IntVar(&flags.port, "port", 3000, "HTTP listen port (env HTTP_PORT)")
		c.Flags().StringVar(&flags.host, "host", "0.0.0.0", "HTTP listen host (env HTTP_HOST)")
		c.Flags().BoolVar(&flags.cors, "cors", false, "Allow cross-origin HTTP requests (env ENABLE_CORS)")
		c.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn or error (env LOG_LEVEL)")
	}

	rootCmd.AddCommand(serveCmd, newCallCmd())
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)

	return rootCmd
}

// loadConfig reads the environment, then applies the flags the user set.
func loadConfig(cmd *cobra.Command, flags *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.envFile, flags.config)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("mode") {
		cfg.Mode = flags.mode
	}
	if fs.Changed("port") {
		cfg.Port = flags.port
	}
	if fs.Changed("host") {
		cfg.Host = flags.host
	}
	if fs.Changed("cors") {
		cfg.EnableCORS = flags.cors
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server, err := mcp.NewServer(mcp.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("error creating server: %w", err)
		}

		logger.Info("starting MCP service", "mode", cfg.Mode, "version", version, "tools", server.Registry().Names())

		switch cfg.Mode {
		case config.ModeHTTP:
			doc, err := apidoc.Load()
			if err != nil {
				return fmt.Errorf("error loading API description: %w", err)
			}
			httpServer := mcp.NewHTTPServer(server, mcp.HTTPConfig{
				EnableCORS: cfg.EnableCORS,
				Toolset:    server.Registry().Toolset(),
				APIDoc:     doc,
				Logger:     logger,
			})
			return httpServer.ListenAndServe(ctx, cfg.Addr())
		default:
			transport := mcp.NewStdioTransport(server, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			return transport.Run(ctx)
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("MCP service stopped")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
