package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestHTTPRequester_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != monthlyPath {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("userCode") != "u1" || r.URL.Query().Get("billDate") != "2024-11" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDetailNov))
	}))
	defer srv.Close()

	r := NewHTTPRequester(srv.Client())
	resp, err := r.Get(context.Background(), srv.URL+monthlyPath,
		url.Values{"userCode": {"u1"}, "billDate": {"2024-11"}}, time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	body, err := resp.ReadBody()
	if err != nil || string(body) != sampleDetailNov {
		t.Errorf("body = %q, err %v", body, err)
	}
}

func TestHTTPRequester_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := NewHTTPRequester(srv.Client())
	_, err := r.Get(context.Background(), srv.URL, nil, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFetch_OverHTTP(t *testing.T) {
	replies := sampleReplies()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if bd := r.URL.Query().Get("billDate"); bd != "" {
			key += "?" + bd
		}
		reply, ok := replies[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(reply.body))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	snap, err := NewFetcher(NewHTTPRequester(srv.Client()), opts).Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Cycles) != 2 || snap.Summary.LastPeriod != "2024-11" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
