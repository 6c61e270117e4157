package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const requestIDKey = "request_id"

// RequestID attaches a uuid to each request, echoed in the
// X-Request-Id response header and the request log line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// Metrics holds the server's prometheus collectors on a private
// registry so tests can run servers side by side.
type Metrics struct {
	Registry *prometheus.Registry

	MintsTotal    *prometheus.CounterVec
	DepositsTotal *prometheus.CounterVec
	FaucetTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the server's collectors.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		MintsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mints_total",
			Help:      "Mint attempts by payment kind and result.",
		}, []string{"kind", "result"}),
		DepositsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vault_deposits_total",
			Help:      "Vault deposit attempts by result.",
		}, []string{"result"}),
		FaucetTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faucet_batch_mints_total",
			Help:      "Faucet batch mint attempts by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.MintsTotal, m.DepositsTotal, m.FaucetTotal)
	return m
}

func (m *Metrics) countMint(kind string, err error) {
	if m == nil {
		return
	}
	m.MintsTotal.WithLabelValues(kind, resultLabel(err)).Inc()
}

func (m *Metrics) countDeposit(err error) {
	if m == nil {
		return
	}
	m.DepositsTotal.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) countFaucet(err error) {
	if m == nil {
		return
	}
	m.FaucetTotal.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
