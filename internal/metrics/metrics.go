// Package metrics exposes Prometheus counters for snapshots and document
// writes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Component labels.
const (
	Presence     = "presence"
	Roster       = "roster"
	Conversation = "conversation"
	Selector     = "selector"
	Outbox       = "outbox"
)

type Metrics struct {
	Registry *prometheus.Registry

	snapshots *prometheus.CounterVec
	writes    *prometheus.CounterVec
	queries   *prometheus.CounterVec
	sent      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingme_snapshots_total",
				Help: "Live query snapshots received.",
			},
			[]string{"component"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingme_writes_total",
				Help: "Document writes issued, by outcome.",
			},
			[]string{"component", "result"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingme_queries_total",
				Help: "One-shot queries issued, by outcome.",
			},
			[]string{"component", "result"},
		),
		sent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pingme_messages_sent_total",
				Help: "Messages appended by this client.",
			},
		),
	}
	m.Registry.MustRegister(m.snapshots, m.writes, m.queries, m.sent)
	return m
}

func (m *Metrics) Snapshot(component string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(component).Inc()
}

func (m *Metrics) Write(component string, err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(component, result(err)).Inc()
}

func (m *Metrics) Query(component string, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(component, result(err)).Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.sent.Inc()
}

// TrackDropped exposes a counter read from fn, used for bus deliveries
// lost to full subscriber buffers.
func (m *Metrics) TrackDropped(fn func() uint64) {
	if m == nil {
		return
	}
	m.Registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "pingme_bus_dropped_total",
			Help: "Bus events skipped because a subscriber was full.",
		},
		func() float64 { return float64(fn()) },
	))
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// Server serves the registry on /metrics.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer returns a server for addr. Call Start to listen.
func NewServer(addr string, m *Metrics, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: log,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.Info("metrics listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
