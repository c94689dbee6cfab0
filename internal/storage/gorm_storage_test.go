package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *GormStorage {
	t.Helper()
	st, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "bjwater.db"))
	if err != nil {
		t.Fatalf("NewGormStorage failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return st
}

func TestGormStorage_LatestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	older := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	if err := st.SaveBillingSnapshot(ctx, BillingSnapshot{Key: "k", Payload: []byte("old"), FetchedAt: older}); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := st.SaveBillingSnapshot(ctx, BillingSnapshot{Key: "k", Payload: []byte("new"), FetchedAt: newer}); err != nil {
		t.Fatalf("save new: %v", err)
	}

	snap, err := st.GetBillingSnapshot(ctx, "k")
	if err != nil || snap == nil {
		t.Fatalf("GetBillingSnapshot: got %v, %v", snap, err)
	}
	if string(snap.Payload) != "new" {
		t.Errorf("expected latest payload, got %q", snap.Payload)
	}

	if missing, err := st.GetBillingSnapshot(ctx, "other"); err != nil || missing != nil {
		t.Errorf("expected nil for unknown key, got %v, %v", missing, err)
	}
}

func TestGormStorage_UpsertAccount(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	if err := st.UpsertAccount(ctx, Account{Provider: "bjwater", UserCode: "42", Label: "a"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpsertAccount(ctx, Account{Provider: "bjwater", UserCode: "42", Label: "b"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	list, err := st.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(list) != 1 || list[0].Label != "b" {
		t.Fatalf("expected one relabelled account, got %+v", list)
	}

	ok, err := st.AcquireAdvisoryLock(ctx, 1)
	if err != nil || !ok {
		t.Errorf("sqlite advisory lock should always succeed, got %v, %v", ok, err)
	}
}

func TestGormStorage_AdvisoryLockCycle(t *testing.T) {
	st := openTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := st.AcquireAdvisoryLock(ctx, 42)
		if err != nil || !ok {
			t.Fatalf("acquire #%d: %v, %v", i, ok, err)
		}
		ok, err = st.ReleaseAdvisoryLock(ctx, 42)
		if err != nil || !ok {
			t.Fatalf("release #%d: %v, %v", i, ok, err)
		}
	}
	if len(st.locks) != 0 {
		t.Errorf("sqlite must not pin connections, got %d", len(st.locks))
	}
}

func TestGormStorage_Settings(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	if v, err := st.GetSetting(ctx, "refresh_interval"); err != nil || v != "" {
		t.Fatalf("expected empty setting, got %q, %v", v, err)
	}
	if err := st.SetSetting(ctx, "refresh_interval", "0 6 * * *"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(ctx, "refresh_interval", "900"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	if v, _ := st.GetSetting(ctx, "refresh_interval"); v != "900" {
		t.Errorf("expected 900, got %q", v)
	}
}
