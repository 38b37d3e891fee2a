package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CTAG07/bayesnet/pkg/bayes"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// app carries the flags and the state shared by every command.
type app struct {
	configPath string
	file       string
	seed       uint64
	steps      int
	noHistory  bool

	config  *Config
	logger  *slog.Logger
	db      *sql.DB
	sampler *Sampler
}

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bayesnet",
		Short: "Approximate inference on discrete Bayesian networks",
		Long: `bayesnet loads a discrete Bayesian network from a JSON or YAML file and
estimates posterior distributions with Gibbs sampling. Without a subcommand it
starts an interactive session.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.newInterface(cmd.OutOrStdout()).Loop(cmd.Context(), cmd.InOrStdin())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", "", "json or yaml file containing the bayesian network description")
	flags.StringVarP(&a.configPath, "config", "c", "./config.json", "path to the configuration file")
	flags.Uint64Var(&a.seed, "seed", 0, "seed for the random source, overrides the config")
	flags.IntVar(&a.steps, "steps", 0, "default number of MCMC steps, overrides the config")
	flags.BoolVar(&a.noHistory, "no-history", false, "do not record runs in the history database")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newRunCmd(a), newServeCmd(a), newExportCmd(a))
	return root
}

func newRunCmd(a *app) *cobra.Command {
	var evidence, query []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single MCMC estimate and exit",
		Example: `  bayesnet run -f alarm.json --evidence burglary=T --query John_calls
  bayesnet run -f alarm.json -e John_calls=T -e Mary_calls=T -q alarm,burglary --steps 20000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in := a.newInterface(cmd.OutOrStdout())
			for _, e := range evidence {
				name, value, ok := strings.Cut(e, "=")
				if !ok {
					return fmt.Errorf("invalid evidence '%s', expected name=value", e)
				}
				if err := in.evidence(ctx, []string{name, value}); err != nil {
					return err
				}
			}
			for _, q := range query {
				if err := in.query(ctx, []string{q}); err != nil {
					return err
				}
			}
			return in.mcmc(ctx, nil)
		},
	}
	cmd.Flags().StringArrayVarP(&evidence, "evidence", "e", nil, "observed value as name=value, repeatable")
	cmd.Flags().StringSliceVarP(&query, "query", "q", nil, "variables to estimate, repeatable or comma separated")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the network and MCMC over an HTTP JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.Server.ApiAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return NewServer(a.config, a.logger, a.sampler).Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the loaded network to a file, as YAML for .yaml/.yml paths and JSON otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var buf bytes.Buffer
			if err := exportNetwork(&buf, a.sampler.Network(), path); err != nil {
				return err
			}
			if err := atomic.WriteFile(path, &buf); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Network written to %s\n", path)
			return nil
		},
	}
}

func exportNetwork(w io.Writer, net *bayes.Network, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if !net.Loaded() {
			return bayes.ErrNotLoaded
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(net.Definition()); err != nil {
			return fmt.Errorf("failed to encode yaml network: %w", err)
		}
		return encoder.Close()
	default:
		return net.Export(w)
	}
}

// setup loads the configuration and the network and opens the run history.
// A network that fails to load is fatal.
func (a *app) setup(cmd *cobra.Command) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		config.Sampler.Seed = a.seed
	}
	if cmd.Flags().Changed("steps") {
		config.Sampler.Steps = a.steps
	}
	if a.noHistory {
		config.Server.HistoryDatabasePath = ""
	}
	a.config = config
	a.logger = newLogger(cmd.ErrOrStderr(), config.Server.LogLevel)

	opts := []bayes.Option{
		bayes.WithLogger(a.logger),
		bayes.WithTolerance(config.Sampler.Tolerance),
	}
	if config.Sampler.Seed != 0 {
		opts = append(opts, bayes.WithSeed(config.Sampler.Seed))
	}
	net := bayes.NewNetwork(opts...)
	if err = net.LoadFile(a.file); err != nil {
		networkLoadsTotal.WithLabelValues(resultError).Inc()
		fmt.Fprintln(cmd.OutOrStdout(), "File load error. Program exit.")
		return err
	}
	networkLoadsTotal.WithLabelValues(resultOK).Inc()
	fmt.Fprintln(cmd.OutOrStdout(), "File loaded successfully.")

	history, err := a.openHistory()
	if err != nil {
		return err
	}
	a.sampler = NewSampler(net, history, a.logger)
	return nil
}

// openHistory opens the configured history database, or returns nil when
// history is disabled.
func (a *app) openHistory() (*History, error) {
	dataSource := a.config.Server.HistoryDatabasePath
	if dataSource == "" {
		return nil, nil
	}
	path, _, _ := strings.Cut(dataSource, "?")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := initDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	history, err := NewHistory(db, a.logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return history, nil
}

func (a *app) newInterface(out io.Writer) *Interface {
	return NewInterface(a.sampler, a.config.Sampler.Steps, a.config.Server.HistoryLimit, out)
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil && a.logger != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
	a.db = nil
}
