// The pipeline server stores device readings delivered by Pub/Sub in
// Bigtable, either by accepting push requests or by pulling from a
// subscription.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kodariks/iot-webapp/go/bt"
	"github.com/kodariks/iot-webapp/go/common"
	"github.com/kodariks/iot-webapp/go/httputils"
	"github.com/kodariks/iot-webapp/go/pubsub"
	"github.com/kodariks/iot-webapp/go/pubsub/sub"
	"github.com/kodariks/iot-webapp/go/sklog"
	"github.com/kodariks/iot-webapp/go/util"
	"github.com/kodariks/iot-webapp/pipeline/go/config"
	"github.com/kodariks/iot-webapp/pipeline/go/devicestore"
	"github.com/kodariks/iot-webapp/pipeline/go/ingest"
)

const (
	// numPullGoRoutines is the number of Go routines receiving pulled
	// messages.
	numPullGoRoutines = 4

	shutdownTimeout = 10 * time.Second
)

var (
	// Flags.
	configFile        = flag.String("config", "", "Optional json5 config file. Environment variables override its values.")
	local             = flag.Bool("local", false, "Running locally if true. As opposed to in production.")
	port              = flag.String("port", ":8000", "HTTP service port (e.g., ':8000')")
	promPort          = flag.String("prom_port", ":20000", "Metrics service address (e.g., ':10110')")
	pull              = flag.Bool("pull", false, "Also pull readings from a subscription to the configured topic.")
	structuredLogging = flag.Bool("structured_logging", false, "Log JSON entries to stderr, as Cloud Logging expects.")
)

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return config.Load(*configFile, os.LookupEnv)
	}
	return config.FromEnv(os.LookupEnv)
}

// newHandler returns the server's routes wrapped in request logging and
// health checks.
func newHandler(in *ingest.Ingester) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/push", in.PushHandler())
	r.Get("/ready", httputils.ReadyHandleFunc)
	h := httputils.LoggingRequestResponse(r)
	return httputils.Healthz(h)
}

func main() {
	common.InitWithMust(
		"pipeline",
		common.PrometheusOpt(promPort),
		common.StructuredLoggingOpt(structuredLogging),
	)
	defer common.Defer()

	if !*local {
		bt.EnsureNotEmulator()
		pubsub.EnsureNotEmulator()
	}

	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		sklog.Fatal(err)
	}
	opts, err := cfg.ClientOptions(ctx)
	if err != nil {
		sklog.Fatal(err)
	}
	store, err := devicestore.New(ctx, cfg.ProjectID, cfg.ClusterID, cfg.Table, opts...)
	if err != nil {
		sklog.Fatal(err)
	}
	defer util.Close(store)
	if err := store.EnsureTable(ctx); err != nil {
		sklog.Fatal(err)
	}

	in := ingest.New(store, nil)

	srv := &http.Server{
		Addr:    *port,
		Handler: newHandler(in),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sklog.Infof("Ready to serve on http://localhost%s", *port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if *pull {
		s, err := sub.New(ctx, cfg.ProjectID, cfg.Topic, sub.NewRoundRobinNameProvider(*local, cfg.Topic), numPullGoRoutines, opts...)
		if err != nil {
			sklog.Fatal(err)
		}
		g.Go(func() error {
			sklog.Infof("Pulling readings from %s", s.ID())
			return in.Receive(gCtx, s)
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		sklog.Fatal(err)
	}
}
