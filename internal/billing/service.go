package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/storage"
)

// Service coordinates fetching and caching of billing snapshots.
type Service struct {
	req   Requester
	opts  Options
	store storage.Storage // may be nil for direct fetch mode
}

// NewService creates a service without storage. An empty opts.BaseURL
// defers to each source's registered BaseURL.
func NewService(req Requester, opts Options) *Service {
	return &Service{req: req, opts: opts}
}

// NewServiceWithStorage creates a service with a storage backend.
func NewServiceWithStorage(req Requester, opts Options, st storage.Storage) *Service {
	return &Service{req: req, opts: opts, store: st}
}

// SnapshotKey is the storage key of an account's snapshot.
func SnapshotKey(provider, userCode string) string {
	return "water:" + provider + ":" + userCode
}

// GetSnapshot returns the cached snapshot for the account, fetching and
// caching it on a miss.
func (s *Service) GetSnapshot(ctx context.Context, provider, userCode string) (*Snapshot, error) {
	f, err := s.fetcher(provider)
	if err != nil {
		return nil, err
	}

	// Try cache first if we have storage
	if s.store != nil {
		stored, err := s.store.GetBillingSnapshot(ctx, SnapshotKey(provider, userCode))
		if err == nil && stored != nil && len(stored.Payload) > 0 {
			var snap Snapshot
			if err := json.Unmarshal(stored.Payload, &snap); err == nil {
				return &snap, nil
			}
			// If unmarshal fails, fall through to a fresh fetch.
		}
	}

	return s.fetchAndStore(ctx, f, provider, userCode)
}

// ForceRefresh bypasses the cache and fetches a fresh snapshot.
func (s *Service) ForceRefresh(ctx context.Context, provider, userCode string) (*Snapshot, error) {
	f, err := s.fetcher(provider)
	if err != nil {
		return nil, err
	}
	return s.fetchAndStore(ctx, f, provider, userCode)
}

func (s *Service) fetchAndStore(ctx context.Context, f *Fetcher, provider, userCode string) (*Snapshot, error) {
	snap, err := f.Fetch(ctx, userCode)
	if err != nil {
		return nil, err
	}

	// Best-effort write-back to storage.
	if s.store != nil {
		payload, err := json.Marshal(snap)
		if err == nil {
			err = s.store.SaveBillingSnapshot(ctx, storage.BillingSnapshot{
				Key:       SnapshotKey(provider, userCode),
				Payload:   payload,
				FetchedAt: snap.FetchedAt,
			})
		}
		if err != nil {
			logging.FromContext(ctx).Warn("billing: cache write failed",
				zap.String("provider", provider), zap.String("user_code", userCode), zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Service) fetcher(provider string) (*Fetcher, error) {
	src, ok := GetSource(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, provider)
	}
	opts := s.opts
	opts.Source = src.Key
	if opts.BaseURL == "" {
		opts.BaseURL = src.BaseURL
	}
	return NewFetcher(s.req, opts), nil
}
