package property

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// OverviewJob tracks one asynchronous overview generation. Owner is
// "user:<id>" or "device:<id>".
type OverviewJob struct {
	ID string `gorm:"primaryKey;size:26" json:"job_id"` // ULID length

	Owner      string `gorm:"type:varchar(80);not null;index:uniq_owner_idempo,unique,priority:1" json:"-"`
	PropertyID uint64 `gorm:"index;not null" json:"property_id"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_owner_idempo,unique,priority:2" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OverviewJob) TableName() string { return "overview_jobs" }
