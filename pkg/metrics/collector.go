// Package metrics exposes Prometheus collectors for the engagement
// engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_logins_total",
			Help: "Total number of processed logins labeled by outcome",
		},
		[]string{"status"},
	)
	dailyBonusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_daily_bonuses_total",
			Help: "Total number of first-login-of-the-day XP awards",
		},
	)
	xpAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_xp_awarded_total",
			Help: "Total XP granted through organic paths",
		},
	)
	levelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_level_ups_total",
			Help: "Total number of level increases",
		},
	)
	sweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engagement_sweep_duration_seconds",
			Help:    "Duration of inactivity sweep runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	sweepUsersScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagement_sweep_users_scanned",
			Help: "Users scanned by the most recent sweep",
		},
	)
	sweepNudgesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_sweep_nudges_total",
			Help: "Total daily in-app nudges dispatched by sweeps",
		},
	)
	sweepNoticesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_sweep_notices_total",
			Help: "Total re-engagement notices dispatched labeled by tier",
		},
		[]string{"tier"},
	)
	sweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_sweep_errors_total",
			Help: "Total per-user failures skipped during sweeps",
		},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests labeled by route and status code",
		},
		[]string{"route", "code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordLogin increments the login counter for the outcome.
func RecordLogin(status string) {
	if status == "" {
		status = "unknown"
	}
	loginsTotal.WithLabelValues(status).Inc()
}

// RecordDailyBonus counts one first-login-of-the-day award.
func RecordDailyBonus(xp int) {
	dailyBonusesTotal.Inc()
	xpAwardedTotal.Add(float64(xp))
}

// RecordXPAward counts organic XP outside the daily bonus.
func RecordXPAward(xp int) {
	xpAwardedTotal.Add(float64(xp))
}

// RecordLevelUp counts one level increase.
func RecordLevelUp() {
	levelUpsTotal.Inc()
}

// RecordSweep publishes the aggregate result of one sweep run.
func RecordSweep(duration time.Duration, scanned, nudges, errors int, noticesByTier map[int]int) {
	sweepDurationSeconds.Observe(duration.Seconds())
	sweepUsersScanned.Set(float64(scanned))
	sweepNudgesTotal.Add(float64(nudges))
	sweepErrorsTotal.Add(float64(errors))

	for tier, count := range noticesByTier {
		sweepNoticesTotal.WithLabelValues(tierLabel(tier)).Add(float64(count))
	}
}

// RecordHTTPRequest counts one served request and its latency.
func RecordHTTPRequest(route, code string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, code).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func tierLabel(tier int) string {
	if tier < 1 || tier > 8 {
		return "unknown"
	}
	return strconv.Itoa(tier)
}
