package models

import "time"

// MetricsSnapshot summarises bridge and cache activity since start.
type MetricsSnapshot struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RemoteFetches            map[string]uint64 `json:"remote_fetches"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
