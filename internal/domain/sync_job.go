package domain

import (
	"encoding/json"
	"time"
)

// JobStatus 同步任务状态
// pending --success--> done
// pending --failure, attempts<max--> pending
// pending --failure, attempts==max--> failed
// done / failed 为终态
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal 是否为终态
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// DefaultMaxAttempts 任务最多尝试次数
const DefaultMaxAttempts = 3

// SyncJob 一条复制任务：把一个实体快照从源租户复制到一个目标租户
type SyncJob struct {
	ID           string          `json:"id"`
	ChainID      string          `json:"chain_id"`
	SourceSlug   string          `json:"source_slug"`
	TargetSlug   string          `json:"target_slug"`
	Operation    Operation       `json:"operation"`
	Payload      json.RawMessage `json:"payload"`
	Status       JobStatus       `json:"status"`
	Attempts     int             `json:"attempts"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}
