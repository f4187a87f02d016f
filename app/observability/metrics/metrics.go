package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginRequestsTotal     metric.Int64Counter
	RegisterRequestsTotal  metric.Int64Counter
	TokenRefreshTotal      metric.Int64Counter
	AuthFailuresTotal      metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, from the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-user-accounts")
		var err error
		m := &AppMetrics{}

		m.LoginRequestsTotal, err = meter.Int64Counter(
			"login_requests_total",
			metric.WithDescription("Total number of login requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_requests_total: %v", err)
		}

		m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of register requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_requests_total: %v", err)
		}

		m.TokenRefreshTotal, err = meter.Int64Counter(
			"token_refresh_total",
			metric.WithDescription("Total number of refresh-token rotations attempted"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_refresh_total: %v", err)
		}

		m.AuthFailuresTotal, err = meter.Int64Counter(
			"auth_failures_total",
			metric.WithDescription("Total number of rejected authentications"),
			metric.WithUnit("{failure}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_failures_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics instance, initializing it on first use.
// Before the meter provider is configured the instruments are no-ops, which
// keeps tests free of observability setup.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
