package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func testRule() billmodel.AlertRule {
	return billmodel.AlertRule{RuleID: "rule", Severity: billmodel.SeverityCritical}
}

func testAlert() billmodel.Alert {
	return billmodel.Alert{AlertID: "alert-1", RuleID: "rule", TriggeredAt: time.Now(), Details: "threshold exceeded"}
}

func TestLogNotifier_NeverErrors(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Equal(t, billmodel.ChannelLog, n.Channel())
	err := n.Notify(context.Background(), testRule(), testAlert())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "alert triggered")
}

func TestWebhookNotifier_PostsJSONPayload(t *testing.T) {
	var received struct {
		Rule  billmodel.AlertRule `json:"rule"`
		Alert billmodel.Alert     `json:"alert"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Notify(context.Background(), testRule(), testAlert())
	require.NoError(t, err)
	assert.Equal(t, "rule", received.Rule.RuleID)
	assert.Equal(t, "alert-1", received.Alert.AlertID)
}

func TestWebhookNotifier_ErrorsOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Notify(context.Background(), testRule(), testAlert())
	assert.Error(t, err)
}

func TestWebhookNotifier_EmptyURLIsNoOp(t *testing.T) {
	n := NewWebhookNotifier("")
	err := n.Notify(context.Background(), testRule(), testAlert())
	assert.NoError(t, err)
}

func TestEmailNotifier_EmptyConfigIsNoOp(t *testing.T) {
	n := NewEmailNotifier("", 0, "", "", "", nil)
	err := n.Notify(context.Background(), testRule(), testAlert())
	assert.NoError(t, err)
}

func TestNewSlackNotifier_ReturnsNilWithoutConfig(t *testing.T) {
	assert.Nil(t, NewSlackNotifier("", "C123"))
	assert.Nil(t, NewSlackNotifier("token", ""))
}

func TestSlackNotifier_PostsAttachmentColoredBySeverity(t *testing.T) {
	var capturedBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		capturedBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1.1","message":{"text":"","type":"message"}}`))
	}))
	defer server.Close()

	n := NewSlackNotifierWithAPIURL("xoxb-test", "C123", server.URL+"/")
	err := n.Notify(context.Background(), testRule(), testAlert())
	require.NoError(t, err)
	assert.Contains(t, capturedBody, "d00000")
}
