// Package metrics provides Prometheus metrics for the news service.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"itpulse/internal/assist"
	"itpulse/internal/session"
)

const namespace = "itpulse"

var (
	// FeedQueries counts feed queries by sort mode.
	FeedQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_queries_total",
			Help:      "Total number of feed queries",
		},
		[]string{"sort"},
	)

	// Publishes counts published articles.
	Publishes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_published_total",
		Help:      "Total number of articles published from drafts",
	})

	// Comments counts comments added.
	Comments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comments_total",
		Help:      "Total number of comments added",
	})

	// SubscriptionToggles counts subscription changes by direction.
	SubscriptionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_toggles_total",
			Help:      "Total number of subscription toggles",
		},
		[]string{"action"},
	)

	// AssistRequests counts AI assist calls by outcome.
	AssistRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assist_requests_total",
			Help:      "Total number of AI assist requests",
		},
		[]string{"outcome"},
	)

	// AssistDuration measures AI assist latency.
	AssistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "assist_duration_seconds",
		Help:      "Duration of AI assist requests in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	// ActiveSessions tracks live sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of live reader sessions",
	})

	// HTTPRequests counts handled requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordSubscription records a subscription toggle.
func RecordSubscription(subscribed bool) {
	if subscribed {
		SubscriptionToggles.WithLabelValues("subscribe").Inc()
		return
	}
	SubscriptionToggles.WithLabelValues("unsubscribe").Inc()
}

// TrackSessions keeps ActiveSessions in step with m.
func TrackSessions(m *session.Manager) {
	m.OnStart = func(*session.Session) { ActiveSessions.Inc() }
	m.OnEnd = func(*session.Session) { ActiveSessions.Dec() }
}

type instrumentedImprover struct {
	next assist.Improver
}

// InstrumentImprover wraps next so every call is counted and timed.
func InstrumentImprover(next assist.Improver) assist.Improver {
	return instrumentedImprover{next: next}
}

func (i instrumentedImprover) Improve(ctx context.Context, title, content string) (*assist.Improvement, error) {
	start := time.Now()
	out, err := i.next.Improve(ctx, title, content)
	AssistDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = string(assist.AsError(err).Kind)
	}
	AssistRequests.WithLabelValues(outcome).Inc()
	return out, err
}

// Middleware counts requests by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
