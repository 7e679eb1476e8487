package constant

const (
	TickStreamName           = "tick"
	TickStreamSubjectAll     = "tick.*"
	TickStreamSubjectApplied = "tick.applied"

	LatestPriceKeyPrefix = "tick:latest_price:"
)
