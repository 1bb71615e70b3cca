package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"pyquest/config"
)

// MetricsProvider manages OpenTelemetry metrics for the rewards service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerEntriesCounter         metric.Int64Counter
	diamondsGrantedCounter       metric.Int64Counter
	diamondsSpentCounter         metric.Int64Counter
	levelUpsCounter              metric.Int64Counter
	questsCompletedCounter       metric.Int64Counter
	badgesUnlockedCounter        metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	httpRequestsCounter          metric.Int64Counter
	httpRequestDurationHist      metric.Float64Histogram
	httpRateLimitedCounter       metric.Int64Counter
	questsSeededCounter          metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Schemaless so the merge never conflicts with the SDK default schema URL
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	return mp.initializeWithReader(res, sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	))
}

// initializeWithReader builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) initializeWithReader(res *resource.Resource, reader sdkmetric.Reader) error {
	opts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}
	mp.meterProvider = sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("pyquest-rewards")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerEntriesCounter, LedgerEntriesTotal, "Total number of ledger entries written"},
		{&mp.diamondsGrantedCounter, DiamondsGranted, "Diamonds credited to users"},
		{&mp.diamondsSpentCounter, DiamondsSpent, "Diamonds debited from users"},
		{&mp.levelUpsCounter, LevelUpsTotal, "Total number of level ups"},
		{&mp.questsCompletedCounter, QuestsCompleted, "Total number of daily quests completed"},
		{&mp.badgesUnlockedCounter, BadgesUnlockedTotal, "Total number of badges unlocked"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
		{&mp.httpRequestsCounter, HTTPRequestsTotal, "Total number of HTTP requests served"},
		{&mp.httpRateLimitedCounter, HTTPRateLimitedTotal, "Total number of HTTP requests rejected by the rate limiter"},
		{&mp.questsSeededCounter, RolloverQuestsSeedTotal, "Daily quest rows created by rollover"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.httpRequestDurationHist, err = mp.meter.Float64Histogram(
		HTTPRequestDuration,
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordLedgerCredit records a reward written to the ledger
func (mp *MetricsProvider) RecordLedgerCredit(transactionType string, diamonds int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelType, transactionType))
	mp.ledgerEntriesCounter.Add(context.Background(), 1, attrs)
	if diamonds > 0 {
		mp.diamondsGrantedCounter.Add(context.Background(), diamonds, attrs)
	}
}

// RecordLedgerDebit records a purchase written to the ledger
func (mp *MetricsProvider) RecordLedgerDebit(diamonds int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelType, "SPENT"))
	mp.ledgerEntriesCounter.Add(context.Background(), 1, attrs)
	mp.diamondsSpentCounter.Add(context.Background(), diamonds, attrs)
}

// RecordLevelUp records a user reaching a higher level
func (mp *MetricsProvider) RecordLevelUp() {
	if !mp.isEnabled() {
		return
	}
	mp.levelUpsCounter.Add(context.Background(), 1)
}

// RecordQuestCompleted records a daily quest completion
func (mp *MetricsProvider) RecordQuestCompleted(questType string) {
	if !mp.isEnabled() {
		return
	}

	mp.questsCompletedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, questType),
		),
	)
}

// RecordBadgeUnlocked records a badge grant
func (mp *MetricsProvider) RecordBadgeUnlocked(rarity string) {
	if !mp.isEnabled() {
		return
	}

	mp.badgesUnlockedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelRarity, rarity),
		),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordHTTPRequest records a served request with its duration
func (mp *MetricsProvider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelMethod, method),
		attribute.String(LabelRoute, route),
		attribute.Int(LabelStatus, status),
	)

	mp.httpRequestsCounter.Add(context.Background(), 1, attrs)
	mp.httpRequestDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordRateLimited records a request rejected by the rate limiter
func (mp *MetricsProvider) RecordRateLimited(route string) {
	if !mp.isEnabled() {
		return
	}

	mp.httpRateLimitedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelRoute, route),
		),
	)
}

// RecordQuestsSeeded records rows created by a rollover run
func (mp *MetricsProvider) RecordQuestsSeeded(count int64) {
	if !mp.isEnabled() || count <= 0 {
		return
	}
	mp.questsSeededCounter.Add(context.Background(), count)
}

// isEnabled checks if metrics are enabled and initialized. A nil provider is disabled.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
