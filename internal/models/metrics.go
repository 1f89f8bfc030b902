package models

import "time"

// SystemMetrics is the instrumentation snapshot served to administrators.
type SystemMetrics struct {
	CacheHitRatio            float64        `json:"cache_hit_ratio"`
	CacheHits                uint64         `json:"cache_hits"`
	CacheMisses              uint64         `json:"cache_misses"`
	RequestsTotal            uint64         `json:"requests_total"`
	AverageRequestDurationMs float64        `json:"average_request_duration_ms"`
	DBQueryCount             uint64         `json:"db_query_count"`
	AverageDBQueryDurationMs float64        `json:"average_db_query_duration_ms"`
	AttendanceSubmits        uint64         `json:"attendance_submits"`
	AttendanceSubmitFailures uint64         `json:"attendance_submit_failures"`
	ChatPublishes            uint64         `json:"chat_publishes"`
	ChatPublishFailures      uint64         `json:"chat_publish_failures"`
	QueueDepth               map[string]int `json:"queue_depth"`
	Goroutines               int            `json:"goroutines"`
	GeneratedAt              time.Time      `json:"generated_at"`
}
