package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/metrics"
)

// DefaultBaseURL is the Beijing Water Group customer portal.
const DefaultBaseURL = "https://www.bjwatergroupkf.com.cn"

const (
	cycleRangePath = "/api/member/bizMyWater/getPcMonthsAndYears"
	paymentsPath   = "/api/member/bizMyWater/pcPaymentRecord"
	monthlyPath    = "/api/member/bizMyWater/getPcMonthlyBill"
)

// Options tunes a Fetcher.
type Options struct {
	// Source is the registry key stamped on every snapshot.
	Source string

	BaseURL string

	// CycleTimeout bounds the cycle resolution call; zero leaves it unbounded.
	CycleTimeout time.Duration

	PaymentTimeout time.Duration
	DetailTimeout  time.Duration

	// Policy resolves ledger entries that share a cycle key.
	Policy MergePolicy
}

// DefaultOptions bounds the payment and detail calls to 10s and leaves cycle
// resolution unbounded.
func DefaultOptions() Options {
	return Options{
		Source:         "bjwater",
		BaseURL:        DefaultBaseURL,
		PaymentTimeout: 10 * time.Second,
		DetailTimeout:  10 * time.Second,
		Policy:         KeepLast,
	}
}

// Fetcher builds snapshots from the portal. It keeps no per-fetch state, so
// one Fetcher may serve concurrent fetches for different accounts.
type Fetcher struct {
	req  Requester
	opts Options
}

// NewFetcher returns a Fetcher issuing calls through req.
func NewFetcher(req Requester, opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Fetcher{req: req, opts: opts}
}

type fetchState int

const (
	stateResolveCycles fetchState = iota
	stateMergePayments
	stateMergeDetail
	stateDone
)

func (s fetchState) String() string {
	switch s {
	case stateResolveCycles:
		return "resolve-cycles"
	case stateMergePayments:
		return "merge-payments"
	case stateMergeDetail:
		return "merge-detail"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("fetchState(%d)", int(s))
	}
}

// Fetch resolves the account's cycles, merges its payment ledger, then merges
// each cycle's monthly detail in ascending order. Calls are strictly
// sequential and the first failure aborts the fetch; no partial snapshot is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, userCode string) (*Snapshot, error) {
	ctx = logging.WithFields(ctx, zap.String("provider", f.opts.Source), zap.String("user_code", userCode))
	log := logging.FromContext(ctx)

	snap := newSnapshot(f.opts.Source, userCode)
	var cycles []string

	for state := stateResolveCycles; state != stateDone; state++ {
		var err error
		switch state {
		case stateResolveCycles:
			cycles, err = f.resolveCycles(ctx, userCode)
		case stateMergePayments:
			err = f.mergePayments(ctx, snap, cycles)
		case stateMergeDetail:
			snap.Summary, err = f.foldDetails(ctx, snap, cycles)
		}
		if err != nil {
			metrics.FetchesTotal.WithLabelValues(f.opts.Source, "error").Inc()
			return nil, fmt.Errorf("%s: %w", state, err)
		}
		log.Debug("billing: fetch state complete", zap.Stringer("state", state))
	}

	snap.FetchedAt = time.Now().UTC()
	metrics.FetchesTotal.WithLabelValues(f.opts.Source, "ok").Inc()
	log.Info("billing: fetch complete",
		zap.Int("cycles", len(snap.Cycles)),
		zap.String("last_period", snap.Summary.LastPeriod))
	return snap, nil
}

func (f *Fetcher) resolveCycles(ctx context.Context, userCode string) ([]string, error) {
	var data cycleRange
	params := url.Values{"userCode": {userCode}}
	if err := f.get(ctx, "cycle_range", cycleRangePath, params, f.opts.CycleTimeout, &data); err != nil {
		return nil, err
	}
	cycles, err := NormalizeCycles(data.Months)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("billing: resolved cycles", zap.Strings("cycles", cycles))
	return cycles, nil
}

func (f *Fetcher) mergePayments(ctx context.Context, snap *Snapshot, cycles []string) error {
	var entries []paymentEntry
	params := url.Values{"userCode": {snap.UserCode}}
	if err := f.get(ctx, "payments", paymentsPath, params, f.opts.PaymentTimeout, &entries); err != nil {
		return err
	}
	if err := mergePayments(snap, cycles, entries, f.opts.Policy); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("billing: merged payments",
		zap.Int("entries", len(entries)),
		zap.Int("matched", len(snap.Cycles)),
		zap.Stringer("policy", f.opts.Policy))
	return nil
}

// foldDetails threads the summary through the ordered cycle list, one portal
// call per cycle.
func (f *Fetcher) foldDetails(ctx context.Context, snap *Snapshot, cycles []string) (Summary, error) {
	var acc Summary
	for _, cycle := range cycles {
		var w monthlyDetailWire
		params := url.Values{"userCode": {snap.UserCode}, "billDate": {cycle}}
		if err := f.get(ctx, "monthly_bill", monthlyPath, params, f.opts.DetailTimeout, &w); err != nil {
			return Summary{}, fmt.Errorf("cycle %s: %w", cycle, err)
		}
		value, d, err := mergeDetail(snap, cycle, w)
		if err != nil {
			return Summary{}, err
		}
		acc = acc.Apply(cycle, value, d)
	}
	return acc, nil
}

// get issues one portal call and decodes its data field into v.
func (f *Fetcher) get(ctx context.Context, op, path string, params url.Values, timeout time.Duration, v any) error {
	log := logging.FromContext(ctx)
	started := time.Now()

	resp, err := f.req.Get(ctx, f.opts.BaseURL+path, params, timeout)
	if err != nil {
		metrics.ObserveUpstreamCall(op, "transport", started)
		return fmt.Errorf("%s request: %w", op, err)
	}
	if code := resp.StatusCode(); code != http.StatusOK {
		metrics.ObserveUpstreamCall(op, "status", started)
		log.Error("billing: unexpected response status", zap.String("operation", op), zap.Int("status", code))
		return fmt.Errorf("%w: %s response status %d", ErrInvalidBillingData, op, code)
	}
	body, err := resp.ReadBody()
	if err != nil {
		metrics.ObserveUpstreamCall(op, "transport", started)
		return fmt.Errorf("%s read body: %w", op, err)
	}
	metrics.ObserveUpstreamCall(op, "ok", started)
	log.Debug("billing: response", zap.String("operation", op), zap.ByteString("body", body))

	return decodeData(body, v)
}
