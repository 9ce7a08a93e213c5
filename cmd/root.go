package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"brokerbench/internal/banner"
	"brokerbench/internal/broker"
	"brokerbench/internal/broker/kafka"
	"brokerbench/internal/cli"
	"brokerbench/internal/config"
	"brokerbench/internal/dummy"
	"brokerbench/internal/runner"
	"brokerbench/internal/telemetry"
	"brokerbench/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	topicSetupTimeout = 30 * time.Second
	telemetryFlush    = 5 * time.Second
)

var (
	cfgFile   string
	configErr error

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "brokerbench",
	Short: "brokerbench - Kafka load generator and benchmark",
	Long: `
brokerbench drives a Kafka topic with paced producers and measures what
comes back through consumer groups.

Every setting is a flag, an environment variable (BOOTSTRAP_SERVERS, TOPIC,
PRODUCER_NUM_THREADS, THROUGHPUT, ...) or a key in the config file.
Use --broker memory to try it without a cluster.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), viper.GetViper())
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd, versionCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.brokerbench.yaml)")

	config.RegisterFlags(rootCmd.Flags())
	cobra.CheckErr(config.Bind(viper.GetViper(), rootCmd.Flags()))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".brokerbench")
		}
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default file is fine, an explicit one is not.
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("failed to read config file: %w", err)
		}
	}
}

// --- Runners ---

func run(ctx context.Context, v *viper.Viper) error {
	if configErr != nil {
		return configErr
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var extra []slog.Handler
	if cfg.OTLPEndpoint != "" {
		host, _ := os.Hostname()
		providers, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, host)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
			defer cancel()
			if err := providers.Shutdown(flushCtx); err != nil {
				fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
			}
		}()
		extra = append(extra, providers.LogHandler())
	}

	// The dashboard owns the terminal; local logs would tear it.
	var logOut io.Writer = os.Stdout
	if cfg.TUI {
		logOut = io.Discard
	}
	logger := telemetry.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format, extra...)
	slog.SetDefault(logger)

	factory, err := newFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}

	r := runner.NewRunner(cfg, factory, logger, make(runner.StatsUpdateChan, 100))

	if cfg.OTLPEndpoint != "" {
		reg, err := telemetry.RegisterMetrics(otel.Meter(telemetry.ServiceName), r)
		if err != nil {
			return err
		}
		defer reg.Unregister()
	}

	if cfg.TUI {
		_, err = runTUI(ctx, r)
	} else {
		_, err = cli.Start(ctx, os.Stdout, r)
	}
	return err
}

func newFactory(ctx context.Context, cfg config.Config, logger *slog.Logger) (broker.Factory, error) {
	if cfg.Broker == config.BrokerMemory {
		profile, err := dummy.LookupProfile(cfg.DummyProfile)
		if err != nil {
			return nil, err
		}
		return dummy.New(profile, cfg.Topic, 0), nil
	}

	if cfg.CreateTopic {
		setupCtx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
		defer cancel()
		if err := kafka.EnsureTopic(setupCtx, cfg, logger); err != nil {
			return nil, err
		}
	}
	return kafka.NewFactory(cfg, logger)
}

func runTUI(ctx context.Context, r *runner.Runner) (runner.Result, error) {
	p := tea.NewProgram(tui.NewModel(r), tea.WithAltScreen())

	type outcome struct {
		res runner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.Run(ctx)
		done <- outcome{res: res, err: err}
		p.Send(tui.DoneMsg{Result: res, Err: err})
	}()

	_, uiErr := p.Run()
	// No-op unless the dashboard died before the run ended.
	r.Stop(runner.ErrUserQuit)
	o := <-done

	if o.res.Final.State == runner.StateStopped {
		cli.PrintSummary(os.Stdout, o.res)
	}
	if uiErr != nil {
		return o.res, errors.Join(fmt.Errorf("dashboard failed: %w", uiErr), o.err)
	}
	return o.res, o.err
}

// --- Subcommands ---

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "List the in-memory broker profiles",
	Long: `The memory broker runs inside the process and needs no cluster.
Select it with --broker memory and pick a behaviour with --dummy-profile.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available dummy profiles:")
		for _, p := range dummy.Profiles() {
			fmt.Fprintf(out, "  %-8s %s\n", p.Name, p.Description)
		}
		fmt.Fprintln(out, "\nExample: brokerbench --broker memory --dummy-profile spike --topic bench")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "brokerbench", version)
	},
}
