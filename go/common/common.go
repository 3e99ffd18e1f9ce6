// Common tool initialization.
// import only from package main.
package common

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/kodariks/iot-webapp/go/metrics2"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/go/sklog"
	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/go/sklog/structuredlogging"
)

// Opt represents the initialization parameters for a single init service,
// where services are Prometheus, structured logging, etc.
type Opt interface {
	init(appName string) error
}

// prometheusInitOpt implements Opt for Prometheus.
type prometheusInitOpt struct {
	port *string
}

// PrometheusOpt creates an Opt to serve /metrics on the given port, e.g.
// ":20000". An empty port disables the metrics server.
func PrometheusOpt(port *string) Opt {
	return &prometheusInitOpt{port: port}
}

func (o *prometheusInitOpt) init(appName string) error {
	if o.port == nil || *o.port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics2.DefaultClient.Handler())
	go func() {
		sklog.Infof("Serving metrics for %s on %s", appName, *o.port)
		sklog.Fatal(http.ListenAndServe(*o.port, mux))
	}()
	return nil
}

// structuredLoggingInitOpt implements Opt for structured JSON logging.
type structuredLoggingInitOpt struct {
	enabled *bool
}

// StructuredLoggingOpt creates an Opt which switches the process-wide logger
// to JSON entries on stderr when *enabled is true. Use it when running on
// Cloud Run or Cloud Functions.
func StructuredLoggingOpt(enabled *bool) Opt {
	return &structuredLoggingInitOpt{enabled: enabled}
}

func (o *structuredLoggingInitOpt) init(appName string) error {
	if o.enabled == nil || !*o.enabled {
		return nil
	}
	l, err := structuredlogging.New(context.Background(), os.Stderr)
	if err != nil {
		return skerr.Wrapf(err, "creating structured logger for %s", appName)
	}
	sklogimpl.SetLogger(l)
	return nil
}

// InitWith parses flags, logs them and then runs every Opt.
func InitWith(appName string, opts ...Opt) error {
	flag.Parse()
	for _, o := range opts {
		if err := o.init(appName); err != nil {
			return skerr.Wrap(err)
		}
	}
	flag.VisitAll(func(f *flag.Flag) {
		sklog.Infof("Flags: --%s=%v", f.Name, f.Value)
	})
	return nil
}

// InitWithMust calls InitWith and fails fatally if an error is encountered.
func InitWithMust(appName string, opts ...Opt) {
	if err := InitWith(appName, opts...); err != nil {
		sklog.Fatalf("Failed to initialize %s: %s", appName, err)
	}
}

// Defer should be deferred from main so that logs are flushed before exit.
func Defer() {
	sklog.Flush()
}
