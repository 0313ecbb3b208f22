package domain

// ServiceHealth is one dependency's probe result.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
	Error       string `json:"error,omitempty"`
}

// HealthStatus aggregates dependency probes for GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}

// CheckoutMetricsSnapshot is the JSON view served by
// GET /v1/metrics/checkout, assembled from the Prometheus counters.
type CheckoutMetricsSnapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	ErrorRate        float64 `json:"error_rate"`
	CustomerRetries  int64   `json:"customer_retries"`
	SplitRetries     int64   `json:"split_retries"`
	DuplicateRejects int64   `json:"duplicate_rejects"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	Period           string  `json:"period"`
}
