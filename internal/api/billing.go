package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/billing"
	"github.com/bher20/bjwater/internal/export"
	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/metrics"
)

// RefreshResponse is the response structure for refresh endpoints.
type RefreshResponse struct {
	Provider string            `json:"provider"`
	UserCode string            `json:"user_code"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Snapshot *billing.Snapshot `json:"snapshot,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, billing.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// Malformed data, parse failures and transport errors all come from
		// the portal.
		return http.StatusBadGateway
	}
}

// errorMessage is the client-facing text for an error status. Error details
// stay in the logs.
func errorMessage(code int) string {
	switch code {
	case http.StatusNotFound:
		return "unknown billing source"
	case http.StatusGatewayTimeout:
		return "upstream timeout"
	case http.StatusBadGateway:
		return "upstream billing data unavailable"
	default:
		return strings.ToLower(http.StatusText(code))
	}
}

func handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, r, http.StatusOK, billing.ListSources())
}

// handleBilling serves /billing/{provider}/{user_code}[/refresh|/export.xlsx|/export.pdf].
func handleBilling(svc SnapshotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		path := strings.Trim(r.URL.Path, "/")
		parts := strings.Split(path, "/")
		if len(parts) < 3 || len(parts) > 4 || parts[0] != "billing" || parts[1] == "" || parts[2] == "" {
			metrics.RequestErrorsTotal.WithLabelValues("unknown", r.URL.Path, "404").Inc()
			http.NotFound(w, r)
			return
		}

		provider := strings.ToLower(parts[1])
		userCode := parts[2]
		action := ""
		if len(parts) == 4 {
			action = parts[3]
		}

		labelsPath := "/billing/snapshot"
		if action != "" {
			labelsPath = "/billing/" + action
		}
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(provider, labelsPath).Observe(time.Since(start).Seconds())
		}()
		metrics.RequestsTotal.WithLabelValues(provider).Inc()

		ctx := logging.WithFields(r.Context(), zap.String("provider", provider), zap.String("user_code", userCode))
		r = r.WithContext(ctx)

		fail := func(code int, msg string) {
			metrics.RequestErrorsTotal.WithLabelValues(provider, labelsPath, strconv.Itoa(code)).Inc()
			http.Error(w, msg, code)
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				fail(http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			snap, err := svc.GetSnapshot(ctx, provider, userCode)
			if err != nil {
				logging.FromContext(ctx).Error("api: get snapshot failed", zap.Error(err))
				code := statusFor(err)
				fail(code, errorMessage(code))
				return
			}
			writeJSON(w, r, http.StatusOK, snap)

		case "refresh":
			if r.Method != http.MethodPost {
				fail(http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			snap, err := svc.ForceRefresh(ctx, provider, userCode)
			resp := RefreshResponse{Provider: provider, UserCode: userCode, Status: "ok", Snapshot: snap}
			code := http.StatusOK
			if err != nil {
				logging.FromContext(ctx).Error("api: refresh failed", zap.Error(err))
				code = statusFor(err)
				metrics.RequestErrorsTotal.WithLabelValues(provider, labelsPath, strconv.Itoa(code)).Inc()
				resp.Status = "error"
				resp.Error = errorMessage(code)
			}
			writeJSON(w, r, code, resp)

		case "export.xlsx", "export.pdf":
			if r.Method != http.MethodGet {
				fail(http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			snap, err := svc.GetSnapshot(ctx, provider, userCode)
			if err != nil {
				logging.FromContext(ctx).Error("api: get snapshot for export failed", zap.Error(err))
				code := statusFor(err)
				fail(code, errorMessage(code))
				return
			}
			var data []byte
			contentType := "application/pdf"
			ext := strings.TrimPrefix(action, "export.")
			if ext == "xlsx" {
				contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
				data, err = export.SnapshotXLSX(snap)
			} else {
				data, err = export.SnapshotPDF(snap)
			}
			if err != nil {
				logging.FromContext(ctx).Error("api: render export failed", zap.Error(err))
				fail(http.StatusInternalServerError, "internal error")
				return
			}
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.%s", provider, userCode, ext))
			_, _ = w.Write(data)

		default:
			fail(http.StatusNotFound, "not found")
		}
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("api: encode response failed", zap.Error(err))
	}
}
