package observability

// Metric namespace
const (
	Namespace = "quizstake"
)

// Label keys
const (
	LabelStatus    = "status"
	LabelReason    = "reason"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelResult    = "result"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
