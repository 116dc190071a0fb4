// vty is a command shell with Junos-style completion.
//
// It runs the demo command tree on the local console, serves it over gRPC,
// or connects to a remote instance and drives it from a local console.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psaab/vty/pkg/cli"
	"github.com/psaab/vty/pkg/config"
	"github.com/psaab/vty/pkg/grpcapi"
	"github.com/psaab/vty/pkg/logging"
	"github.com/psaab/vty/pkg/metrics"
	"github.com/psaab/vty/pkg/parser"
	"github.com/psaab/vty/pkg/runner"
)

var (
	flagConfig      string
	flagDebug       bool
	flagGRPCAddr    string
	flagMetricsAddr string
	flagAddr        string
)

var rootCmd = &cobra.Command{
	Use:           "vty",
	Short:         "Command shell with context-sensitive completion",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runShell,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the command shell on this terminal (default)",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve completion and execution over gRPC",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Run a local shell against a remote vty server",
	Args:  cobra.NoArgs,
	RunE:  runConnect,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "settings file path")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	serveCmd.Flags().StringVar(&flagGRPCAddr, "grpc-addr", "", "gRPC listen address (overrides grpc_addr)")
	serveCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "metrics listen address (overrides metrics_addr)")
	connectCmd.Flags().StringVar(&flagAddr, "addr", config.DefaultGRPCAddr, "vty server gRPC address")
	rootCmd.AddCommand(shellCmd, serveCmd, connectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vty: %v\n", err)
		os.Exit(1)
	}
}

// env holds what every subcommand needs.
type env struct {
	cfg     *config.Config
	stats   *metrics.Stats
	acct    *logging.Accountant
	engine  *parser.Engine
	runner  *runner.Runner
	user    string
	host    string
	cleanup func()
}

func setup() (*env, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}

	h, err := logging.Setup(cfg.LoggingOptions())
	if err != nil {
		slog.Warn("syslog forwarding incomplete", "err", err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "vty"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = "user"
	}

	return &env{
		cfg:     cfg,
		stats:   metrics.NewStats(),
		acct:    logging.NewAccountant(slog.Default()),
		engine:  parser.New(demoTree(cfg), parser.WithConfig(cfg.ParserConfig())),
		runner:  runner.New(&runner.ExecSpawner{}),
		user:    username,
		host:    hostname,
		cleanup: h.Close,
	}, nil
}

func (e *env) shellOptions(banner string) cli.ShellOptions {
	return cli.ShellOptions{
		Prompt:      e.cfg.ExpandPrompt(e.user, e.host),
		HistoryFile: e.cfg.HistoryFile,
		HelpHeader:  e.cfg.HelpHeader,
		Banner:      banner,
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()
	if e.cfg.MetricsAddr != "" {
		go serveMetrics(ctx, e.cfg.MetricsAddr, e.stats)
	}

	session := cli.NewSession(cli.SessionConfig{
		Engine:     e.engine,
		Runner:     e.runner,
		Stats:      e.stats,
		Accountant: e.acct,
		User:       e.user,
		Source:     "console",
	})
	session.Open()
	defer session.Close()

	return cli.NewShell(session, e.shellOptions("vty "+version)).Run(ctx)
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()
	if flagGRPCAddr != "" {
		e.cfg.GRPCAddr = flagGRPCAddr
	}
	if flagMetricsAddr != "" {
		e.cfg.MetricsAddr = flagMetricsAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if e.cfg.MetricsAddr != "" {
		go serveMetrics(ctx, e.cfg.MetricsAddr, e.stats)
	}

	srv := grpcapi.NewServer(e.cfg.GRPCAddr, grpcapi.Config{
		Engine:     e.engine,
		Runner:     e.runner,
		Stats:      e.stats,
		Accountant: e.acct,
	})
	return srv.Run(ctx)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	client, err := grpcapi.Dial(flagAddr, e.user)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	// Fail early when the server is unreachable.
	if _, err := client.Complete(ctx, ""); err != nil {
		return fmt.Errorf("cannot reach vty server at %s: %w", flagAddr, err)
	}
	return cli.NewShell(client, e.shellOptions("connected to "+flagAddr)).Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, stats *metrics.Stats) {
	if err := metrics.Serve(ctx, addr, stats); err != nil {
		slog.Error("metrics server failed", "err", err)
	}
}
