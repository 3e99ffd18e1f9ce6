// Package metrics2 provides counters which are exported to Prometheus.
package metrics2

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// invalidChar is used to force metric and tag names to conform to Prometheus's restrictions.
	invalidChar = regexp.MustCompile("([^a-zA-Z0-9_:])")
)

func clean(s string) string {
	return invalidChar.ReplaceAllLiteralString(s, "_")
}

// Counter is a metric which only goes up, until it is Reset.
type Counter interface {
	Get() int64
	Inc(i int64)
	Reset()
}

// promCounter implements Counter. Prometheus gauges don't support Get, so the
// value is tracked alongside.
type promCounter struct {
	i     int64
	gauge prometheus.Gauge
}

func (c *promCounter) Get() int64 {
	return atomic.LoadInt64(&c.i)
}

func (c *promCounter) Inc(i int64) {
	c.gauge.Set(float64(atomic.AddInt64(&c.i, i)))
}

func (c *promCounter) Reset() {
	atomic.StoreInt64(&c.i, 0)
	c.gauge.Set(0)
}

// Client creates and caches metrics.
type Client struct {
	registry *prometheus.Registry

	mutex    sync.Mutex
	vecs     map[string]*prometheus.GaugeVec
	vecKeys  map[string][]string
	counters map[string]*promCounter
}

// NewClient returns a Client which registers metrics with a fresh registry.
func NewClient() *Client {
	return &Client{
		registry: prometheus.NewRegistry(),
		vecs:     map[string]*prometheus.GaugeVec{},
		vecKeys:  map[string][]string{},
		counters: map[string]*promCounter{},
	}
}

// DefaultClient is used by the package level functions.
var DefaultClient = NewClient()

// GetCounter returns the counter with the given name and tags, creating it
// if needed. All counters with the same name must use the same tag keys.
func (c *Client) GetCounter(name string, tags ...map[string]string) Counter {
	name = clean(name)
	merged := map[string]string{}
	for _, t := range tags {
		for k, v := range t {
			merged[clean(k)] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	id := name
	for _, k := range keys {
		id += fmt.Sprintf(" %s=%s", k, merged[k])
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if counter, ok := c.counters[id]; ok {
		return counter
	}
	vec, ok := c.vecs[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: name,
		}, keys)
		c.registry.MustRegister(vec)
		c.vecs[name] = vec
		c.vecKeys[name] = keys
	} else if strings.Join(c.vecKeys[name], ",") != strings.Join(keys, ",") {
		panic(fmt.Sprintf("metric %q registered with tag keys %v, got %v", name, c.vecKeys[name], keys))
	}
	counter := &promCounter{gauge: vec.With(merged)}
	c.counters[id] = counter
	return counter
}

// Handler returns an http.Handler serving the registered metrics.
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// GetCounter calls DefaultClient.GetCounter.
func GetCounter(name string, tags ...map[string]string) Counter {
	return DefaultClient.GetCounter(name, tags...)
}
