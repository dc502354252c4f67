package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// Notifier dispatches one Alert over one channel. Implementations never
// return an error the caller must act on — dispatch failures are
// log-and-continue (spec.md §4.13: "Failures in notification dispatch
// log-and-continue; they never block rule evaluation"), so Notify
// itself only returns an error for the loop's own diagnostics.
type Notifier interface {
	Channel() billmodel.NotificationChannel
	Notify(ctx context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error
}

// LogNotifier writes the alert through slog, always available.
type LogNotifier struct{ logger *slog.Logger }

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Channel() billmodel.NotificationChannel { return billmodel.ChannelLog }

func (n *LogNotifier) Notify(_ context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error {
	n.logger.Warn("alert triggered",
		"rule_id", rule.RuleID, "alert_id", alert.AlertID,
		"severity", rule.Severity, "details", alert.Details)
	return nil
}

// WebhookNotifier POSTs the alert as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (n *WebhookNotifier) Channel() billmodel.NotificationChannel { return billmodel.ChannelWebhook }

func (n *WebhookNotifier) Notify(ctx context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error {
	if n == nil || n.url == "" {
		return nil
	}
	body, err := json.Marshal(struct {
		Rule  billmodel.AlertRule `json:"rule"`
		Alert billmodel.Alert     `json:"alert"`
	}{rule, alert})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// EmailNotifier sends an alert email via SMTP, following the teacher's
// net/smtp-only approach (no mail library in the pack).
type EmailNotifier struct {
	server, user, password, from string
	port                         int
	recipients                   []string
}

func NewEmailNotifier(server string, port int, user, password, from string, recipients []string) *EmailNotifier {
	return &EmailNotifier{server: server, port: port, user: user, password: password, from: from, recipients: recipients}
}

func (n *EmailNotifier) Channel() billmodel.NotificationChannel { return billmodel.ChannelEmail }

func (n *EmailNotifier) Notify(_ context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error {
	if n == nil || n.server == "" || len(n.recipients) == 0 {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", n.server, n.port)
	subject := fmt.Sprintf("[%s] Alert: %s", rule.Severity, rule.RuleID)
	msg := fmt.Sprintf("Subject: %s\r\n\r\n%s\r\n\nTriggered at: %s\n",
		subject, alert.Details, alert.TriggeredAt.Format(time.RFC3339))

	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.password, n.server)
	}
	if err := smtp.SendMail(addr, auth, n.from, n.recipients, []byte(msg)); err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}
	return nil
}

// SlackNotifier posts a formatted attachment colored by severity,
// grounded on the teacher's pkg/slack.Client — a thin wrapper around
// slack-go, adapted from session payloads to alert payloads.
type SlackNotifier struct {
	api       *goslack.Client
	channelID string
}

var severityColor = map[billmodel.Severity]string{
	billmodel.SeverityCritical: "#d00000",
	billmodel.SeverityWarning:  "#f0a000",
	billmodel.SeverityInfo:     "#3080f0",
}

func NewSlackNotifier(token, channelID string) *SlackNotifier {
	if token == "" || channelID == "" {
		return nil
	}
	return &SlackNotifier{api: goslack.New(token), channelID: channelID}
}

// NewSlackNotifierWithAPIURL targets a custom Slack API base URL,
// mirroring the teacher's NewClientWithAPIURL — used by tests to point
// at an httptest server instead of the real Slack API.
func NewSlackNotifierWithAPIURL(token, channelID, apiURL string) *SlackNotifier {
	if token == "" || channelID == "" {
		return nil
	}
	return &SlackNotifier{api: goslack.New(token, goslack.OptionAPIURL(apiURL)), channelID: channelID}
}

func (n *SlackNotifier) Channel() billmodel.NotificationChannel { return billmodel.ChannelSlack }

func (n *SlackNotifier) Notify(ctx context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error {
	if n == nil {
		return nil
	}
	color := severityColor[rule.Severity]
	if color == "" {
		color = "#808080"
	}
	attachment := goslack.Attachment{
		Color:   color,
		Title:   fmt.Sprintf("Alert: %s", rule.RuleID),
		Text:    alert.Details,
		Fields: []goslack.AttachmentField{
			{Title: "Severity", Value: string(rule.Severity), Short: true},
			{Title: "Triggered", Value: alert.TriggeredAt.Format(time.RFC3339), Short: true},
		},
	}
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, goslack.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("posting slack alert: %w", err)
	}
	return nil
}
