package domain

// ============================================================
// Health API responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ReconcileMetrics is a snapshot of reconciliation counters.
type ReconcileMetrics struct {
	Assignments      int64   `json:"assignments"`
	AssignFailures   int64   `json:"assignFailures"`
	Transfers        int64   `json:"transfers"`
	TransferFailures int64   `json:"transferFailures"`
	PartialTransfers int64   `json:"partialTransfers"`
	CacheHitRate     float64 `json:"cacheHitRate"`
}
