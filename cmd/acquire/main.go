package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/gnss-acquisition/configs"
	"github.com/signalsfoundry/gnss-acquisition/internal/logging"
	"github.com/signalsfoundry/gnss-acquisition/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	configPath string

	cfg *configs.Config
	log logging.Logger

	registry  *prometheus.Registry
	collector *observability.AcquisitionCollector
	aiding    *observability.AidingCollector

	metricsSrv      *http.Server
	shutdownTracing func(context.Context) error
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "acquire",
		Short: "GNSS cold-start signal acquisition",
		Long: `Search a snapshot of front-end samples for GPS L1 C/A satellites.

For each candidate PRN the search correlates against the local code replica
over a grid of carrier frequencies and reports the code phase, carrier
frequency and peak ratio of the strongest correlation peak.

Examples:
  # Search a recorded capture for every PRN
  acquire run --capture l1.bin --format int8iq --if 4e5

  # Dry run against a synthetic capture
  acquire simulate --prn 5 --code-phase 1234 --doppler 2000

  # Predict which satellites are up
  acquire visible --catalog gps.json --lat 51.5 --lon -0.1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./acquire.yaml or ./configs/acquire.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	pf.Bool("tracing", false, "enable OpenTelemetry tracing")
	pf.StringP("output", "o", "table", "output format (table, json, yaml)")
	bindKey(pf, "log-level", "log_level")
	bindKey(pf, "log-format", "log_format")
	bindKey(pf, "metrics-addr", "observability.metrics_addr")
	bindKey(pf, "tracing", "observability.tracing.enabled")
	bindKey(pf, "output", "output.format")

	root.AddCommand(
		newRunCommand(a),
		newSimulateCommand(a),
		newVisibleCommand(a),
	)
	return root
}

const configKeyAnnotation = "acquire_config_key"

// bindKey marks flag name as overriding the config key. Binding happens per
// invocation so that subcommands can reuse flag names for other purposes.
func bindKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	v, err := configs.New(a.configPath)
	if err != nil {
		return err
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) != 1 {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	cfg, err := configs.Decode(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	tracing := observability.TracingConfigFromEnv(cfg.Observability.Tracing)
	// stdout carries results
	tracing.Output = cmd.ErrOrStderr()
	a.shutdownTracing, err = observability.InitTracing(ctx, tracing, a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	if a.collector, err = observability.NewAcquisitionCollector(a.registry); err != nil {
		return err
	}
	if a.aiding, err = observability.NewAidingCollector(a.registry); err != nil {
		return err
	}
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		a.metricsSrv = serveMetrics(addr, a.collector, a.log)
	}
	return nil
}

// runE wraps a subcommand body so that tracing and the metrics server are
// shut down whether or not it fails. Cobra skips post-run hooks on error.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.teardown(cmd.Context())
		return fn(cmd, args)
	}
}

func (a *app) teardown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	observability.ShutdownWithTimeout(context.WithoutCancel(ctx), a.shutdownTracing, a.log)
	if a.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.AcquisitionCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
