// Package realtime runs the long-lived ingestion mode: journal tailing,
// the live feed subscription and the optional metrics endpoint.
package realtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/eddn"
	"github.com/tphakala/ringscout/internal/ingest"
	"github.com/tphakala/ringscout/internal/journal"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/resolver"
	"github.com/tphakala/ringscout/internal/telemetry"
)

// Command creates the realtime subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run continuous journal and live feed ingestion",
		Long: "Tail the game journal and subscribe to the community live feed, " +
			"reconciling every observation into the local hotspot database until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Journal.Path, "journalpath", viper.GetString("journal.path"), "Directory containing the game journal files")
	cmd.Flags().BoolVar(&settings.LiveFeed.Enabled, "livefeed", viper.GetBool("livefeed.enabled"), "Subscribe to the community live feed")
	cmd.Flags().StringVar(&settings.LiveFeed.Broker, "broker", viper.GetString("livefeed.broker"), "Live feed broker URL")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "telemetry", viper.GetBool("metrics.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Metrics.Listen, "listen", viper.GetString("metrics.listen"), "Listen address of the telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding realtime flags: %v\n", err)
	}
}

// run wires the full ingestion pipeline and blocks until SIGINT/SIGTERM.
func run(settings *conf.Settings) error {
	log := logging.ForService("realtime")
	console := logging.HumanReadable()
	if console == nil {
		console = log
	}

	store := datastore.New(settings, reconcile.New())
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	if stats, err := store.GetStats(); err == nil {
		log.Info("store opened",
			"hotspots", stats.Hotspots,
			"systems", stats.Systems,
			"visits", stats.Visits)
	}

	var metrics *telemetry.Metrics
	var endpoint *telemetry.Endpoint
	if settings.Metrics.Enabled {
		var err error
		metrics, err = telemetry.NewMetrics()
		if err != nil {
			return err
		}
		endpoint = telemetry.NewEndpoint(settings.Metrics.Listen, metrics)
		endpoint.Start()
	}

	var ingestMetrics *telemetry.IngestMetrics
	if metrics != nil {
		ingestMetrics = metrics.Ingest
	}
	pipeline := ingest.New(store, ingestMetrics)
	pipeline.Start()

	res := resolver.New(store, nil, settings.Resolver.CacheTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := journal.NewSession(pipeline)
	tailer := journal.NewTailer(settings.Journal.Path, settings.Journal.PollInterval,
		func(ev journal.Event) {
			// Arrival star positions are ground truth for the resolver.
			if arr, ok := ev.(*journal.SystemArrival); ok && arr.StarPos != nil {
				res.RecordJournalPosition(arr.StarSystem, arr.SystemAddress,
					arr.StarPos[0], arr.StarPos[1], arr.StarPos[2])
			}
			session.HandleEvent(ev)
		})
	tailer.OnFileSwitch(session.Reset)
	go tailer.Run(ctx)

	var listener *eddn.Listener
	if settings.LiveFeed.Enabled {
		var feedMetrics *telemetry.FeedMetrics
		if metrics != nil {
			feedMetrics = metrics.Feed
		}
		listener = eddn.NewListener(settings, pipeline, feedMetrics)
		connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := listener.Connect(connectCtx); err != nil {
			// Advisory data only: log and continue on local data.
			log.Warn("live feed unavailable, running on local data only", "error", err)
		}
		connectCancel()
	}

	console.Info("realtime ingestion running, press Ctrl-C to stop",
		"journal", settings.Journal.Path,
		"livefeed", settings.LiveFeed.Enabled)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	console.Info("shutting down")

	cancel()
	if listener != nil {
		listener.Stop()
	}
	pipeline.Close()
	if endpoint != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := endpoint.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry endpoint shutdown failed", "error", err)
		}
	}
	return nil
}
