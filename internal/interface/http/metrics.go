package httpservice

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func fqn(name string) string {
	return prometheus.BuildFQName("ordlaunch", "launchpad", name)
}

var (
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("http_duration"),
			Help:    "HTTP request duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 15},
		},
		[]string{"method", "path", "status"},
	)

	mintClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("mint_claims"),
			Help: "Mint slot claims by outcome",
		},
		[]string{"result"},
	)

	broadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("broadcasts"),
			Help: "Transactions pushed to the network by kind and outcome",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpDuration,
		mintClaims,
		broadcasts,
	)
}

// observeHTTP records the request duration labelled by route template, so
// ids in the path do not blow up cardinality.
func observeHTTP(c *gin.Context) {
	started := time.Now()

	c.Next()

	path := c.FullPath()
	if len(path) <= 0 {
		path = "unmatched"
	}
	httpDuration.WithLabelValues(
		c.Request.Method,
		path,
		strconv.Itoa(c.Writer.Status()),
	).Observe(time.Since(started).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
