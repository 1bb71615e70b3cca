package observability

// Metric name prefixes
const (
	MetricPrefix = "pyquest"
)

// Metric names
const (
	// Ledger metrics
	LedgerEntriesTotal  = MetricPrefix + ".ledger.entries_total"
	DiamondsGranted     = MetricPrefix + ".ledger.diamonds_granted"
	DiamondsSpent       = MetricPrefix + ".ledger.diamonds_spent"
	LevelUpsTotal       = MetricPrefix + ".progression.level_ups_total"
	QuestsCompleted     = MetricPrefix + ".quests.completed_total"
	BadgesUnlockedTotal = MetricPrefix + ".badges.unlocked_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// HTTP metrics
	HTTPRequestsTotal       = MetricPrefix + ".http.requests_total"
	HTTPRequestDuration     = MetricPrefix + ".http.request_duration"
	HTTPRateLimitedTotal    = MetricPrefix + ".http.rate_limited_total"
	RolloverQuestsSeedTotal = MetricPrefix + ".quests.seeded_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelRoute     = "route"
	LabelMethod    = "method"
	LabelStatus    = "status"
	LabelRarity    = "rarity"
)
