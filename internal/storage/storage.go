package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for tracked accounts and billing snapshots.
type Storage interface {
	// Accounts
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, provider, userCode string) (*Account, error)
	UpsertAccount(ctx context.Context, a Account) error

	// Billing snapshots
	GetBillingSnapshot(ctx context.Context, key string) (*BillingSnapshot, error)
	SaveBillingSnapshot(ctx context.Context, snap BillingSnapshot) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}

// Locker is implemented by backends that can coordinate replicas.
type Locker interface {
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
}
