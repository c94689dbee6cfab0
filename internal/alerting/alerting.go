package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/logging"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string `yaml:"webhook_url"`
	// WebhookType determines the payload format: "slack", "discord", or "generic".
	// Empty means detect from the URL.
	WebhookType string `yaml:"webhook_type"`
	// MinFailuresBeforeAlert is the threshold before sending alerts
	MinFailuresBeforeAlert int `yaml:"min_failures"`
	// Timeout for HTTP requests
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultAlertConfig alerts on the first failure with a 10s webhook timeout.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		MinFailuresBeforeAlert: 1,
		Timeout:                10 * time.Second,
	}
}

// Enabled reports whether a webhook is configured.
func (c AlertConfig) Enabled() bool { return c.WebhookURL != "" }

// DetectWebhookType guesses the payload format from a webhook URL.
func DetectWebhookType(url string) string {
	switch {
	case strings.Contains(url, "slack.com"):
		return "slack"
	case strings.Contains(url, "discord.com"):
		return "discord"
	default:
		return "generic"
	}
}

// Alerter sends alerts to configured webhooks.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

// NewAlerter creates a new alerter instance.
func NewAlerter(cfg AlertConfig) *Alerter {
	if cfg.WebhookType == "" {
		cfg.WebhookType = DetectWebhookType(cfg.WebhookURL)
	}
	if cfg.MinFailuresBeforeAlert < 1 {
		cfg.MinFailuresBeforeAlert = 1
	}
	return &Alerter{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// RefreshAlert summarizes one refresh run of the tracked accounts.
type RefreshAlert struct {
	JobName       string
	RunID         string
	TotalCount    int
	SuccessCount  int
	FailedCount   int
	Duration      time.Duration
	FailedDetails []AccountFailure
	Timestamp     time.Time
}

// AccountFailure contains details about an account that failed to refresh.
type AccountFailure struct {
	Provider string `json:"provider"`
	UserCode string `json:"user_code"`
	Error    string `json:"error"`
}

// SendRefreshAlert posts the run summary when enough accounts failed.
func (a *Alerter) SendRefreshAlert(ctx context.Context, alert RefreshAlert) error {
	log := logging.FromContext(ctx)
	if !a.cfg.Enabled() {
		log.Debug("alerting: alerts disabled, skipping")
		return nil
	}

	if alert.FailedCount < a.cfg.MinFailuresBeforeAlert {
		log.Debug("alerting: failures below threshold, skipping",
			zap.Int("failed", alert.FailedCount), zap.Int("threshold", a.cfg.MinFailuresBeforeAlert))
		return nil
	}

	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = a.buildSlackPayload(alert)
	case "discord":
		payload, err = a.buildDiscordPayload(alert)
	default:
		payload, err = a.buildGenericPayload(alert)
	}

	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Info("alerting: sent refresh alert", zap.Int("failed", alert.FailedCount), zap.String("run_id", alert.RunID))
	return nil
}

func accountLabel(f AccountFailure) string {
	return f.Provider + ":" + f.UserCode
}

func (a *Alerter) buildSlackPayload(alert RefreshAlert) ([]byte, error) {
	var failedList strings.Builder
	for _, f := range alert.FailedDetails {
		fmt.Fprintf(&failedList, "• *%s*: %s\n", accountLabel(f), f.Error)
	}

	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Billing Refresh Alert: %s", emoji, alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%d/%d failed", alert.FailedCount, alert.TotalCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Success:*\n%d", alert.SuccessCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Failed Accounts:*\n%s", failedList.String()),
				},
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildDiscordPayload(alert RefreshAlert) ([]byte, error) {
	var failedList strings.Builder
	for _, f := range alert.FailedDetails {
		fmt.Fprintf(&failedList, "• **%s**: %s\n", accountLabel(f), f.Error)
	}

	color := 16776960 // Yellow
	if alert.FailedCount == alert.TotalCount {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Billing Refresh Alert: %s", alert.JobName),
				"description": fmt.Sprintf("%d/%d accounts failed", alert.FailedCount, alert.TotalCount),
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Success", "value": fmt.Sprintf("%d", alert.SuccessCount), "inline": true},
					{"name": "Failed", "value": fmt.Sprintf("%d", alert.FailedCount), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Failed Accounts", "value": failedList.String(), "inline": false},
				},
				"footer":    map[string]string{"text": "run " + alert.RunID},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(alert RefreshAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":     "billing_refresh_failure",
		"job_name":       alert.JobName,
		"run_id":         alert.RunID,
		"total_count":    alert.TotalCount,
		"success_count":  alert.SuccessCount,
		"failed_count":   alert.FailedCount,
		"duration_ms":    alert.Duration.Milliseconds(),
		"timestamp":      alert.Timestamp.Format(time.RFC3339),
		"failed_details": alert.FailedDetails,
	}

	return json.Marshal(payload)
}
