package storage

import "time"

// Account is a customer account the refresh worker keeps current.
type Account struct {
	Provider  string    `json:"provider" gorm:"primaryKey;column:provider"`
	UserCode  string    `json:"user_code" gorm:"primaryKey;column:user_code"`
	Label     string    `json:"label,omitempty" gorm:"column:label"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// BillingSnapshot stores a previously fetched snapshot payload for an account.
type BillingSnapshot struct {
	ID        uint      `json:"-" gorm:"primaryKey;column:id"`
	Key       string    `json:"key" gorm:"column:key;index"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// Setting is a runtime key/value override (e.g. refresh_interval).
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the outcome of the last run of a job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}
