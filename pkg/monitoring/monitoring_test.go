package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

type fakeNotifier struct {
	channel billmodel.NotificationChannel
	calls   int
}

func (f *fakeNotifier) Channel() billmodel.NotificationChannel { return f.channel }
func (f *fakeNotifier) Notify(ctx context.Context, rule billmodel.AlertRule, alert billmodel.Alert) error {
	f.calls++
	return nil
}

func constantMetrics(values map[string]float64) MetricsProvider {
	return func(ctx context.Context) (map[string]float64, error) { return values, nil }
}

// TestScenarioF_AlertCooldown reproduces spec.md's literal scenario: a
// rule with cooldown=1800s triggers at t=0 and the condition stays
// true throughout. At t=300 no second alert fires (still cooling down)
// and the original stays active; at t=1801 the cooldown has elapsed
// and a second alert fires.
func TestScenarioF_AlertCooldown(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var offset time.Duration
	clock := func() time.Time { return base.Add(offset) }

	notifier := &fakeNotifier{channel: billmodel.ChannelLog}
	svc := NewService(
		constantMetrics(map[string]float64{"error_rate": 1.0}),
		[]Notifier{notifier},
		withNow(clock),
	)
	svc.RegisterRule(billmodel.AlertRule{
		RuleID:               "high-error-rate",
		ConditionExpr:        "error_rate > 0.5",
		Severity:             billmodel.SeverityCritical,
		NotificationChannels: []billmodel.NotificationChannel{billmodel.ChannelLog},
		Enabled:              true,
		CooldownSeconds:      1800,
	})

	offset = 0
	svc.EvaluateOnce(context.Background())
	active := svc.ActiveAlerts()
	require.Len(t, active, 1)
	firstAlertID := active[0].AlertID
	assert.Equal(t, 1, notifier.calls)

	offset = 300 * time.Second
	svc.EvaluateOnce(context.Background())
	active = svc.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, firstAlertID, active[0].AlertID, "still in cooldown: no new alert instance")
	assert.Equal(t, 1, notifier.calls)

	offset = 1801 * time.Second
	svc.EvaluateOnce(context.Background())
	active = svc.ActiveAlerts()
	require.Len(t, active, 1)
	assert.NotEqual(t, firstAlertID, active[0].AlertID, "cooldown elapsed: a second alert triggers")
	assert.Equal(t, 2, notifier.calls)

	history := svc.History()
	assert.Len(t, history, 2)
}

func TestEvaluateOnce_AutoResolvesWhenConditionStopsTriggering(t *testing.T) {
	errorRate := 1.0
	metrics := func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"error_rate": errorRate}, nil
	}
	svc := NewService(metrics, nil)
	svc.RegisterRule(billmodel.AlertRule{
		RuleID:          "rule",
		ConditionExpr:   "error_rate > 0.5",
		Enabled:         true,
		CooldownSeconds: 60,
	})

	svc.EvaluateOnce(context.Background())
	require.Len(t, svc.ActiveAlerts(), 1)

	errorRate = 0.1
	svc.EvaluateOnce(context.Background())
	active := svc.ActiveAlerts()
	require.Len(t, active, 1)
	assert.NotNil(t, active[0].ResolvedAt)
}

func TestEvaluateOnce_SkipsDisabledRules(t *testing.T) {
	svc := NewService(constantMetrics(map[string]float64{"x": 1}), nil)
	svc.RegisterRule(billmodel.AlertRule{RuleID: "r", ConditionExpr: "x > 0", Enabled: false})
	svc.EvaluateOnce(context.Background())
	assert.Empty(t, svc.ActiveAlerts())
}

func TestDispatch_UnregisteredChannelIsSkippedNotFatal(t *testing.T) {
	svc := NewService(constantMetrics(map[string]float64{"x": 1}), nil)
	svc.RegisterRule(billmodel.AlertRule{
		RuleID:               "r",
		ConditionExpr:        "x > 0",
		Enabled:              true,
		NotificationChannels: []billmodel.NotificationChannel{billmodel.ChannelSlack},
	})
	assert.NotPanics(t, func() { svc.EvaluateOnce(context.Background()) })
	assert.Len(t, svc.ActiveAlerts(), 1)
}

func TestRunHealthChecksOnce_RecordsSuccessAndFailure(t *testing.T) {
	svc := NewService(constantMetrics(nil), nil)
	svc.RegisterHealthCheck("store", time.Second, func(ctx context.Context) error { return nil })
	svc.RegisterHealthCheck("cache", time.Second, func(ctx context.Context) error { return errors.New("down") })

	svc.RunHealthChecksOnce(context.Background())
	results := svc.HealthResults()

	require.Contains(t, results, "store")
	assert.True(t, results["store"].Success)

	require.Contains(t, results, "cache")
	assert.False(t, results["cache"].Success)
	assert.Equal(t, "down", results["cache"].Error)
}

func TestRunHealthChecksOnce_MarksTimeout(t *testing.T) {
	svc := NewService(constantMetrics(nil), nil)
	svc.RegisterHealthCheck("slow", time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	svc.RunHealthChecksOnce(context.Background())
	result := svc.HealthResults()["slow"]
	assert.False(t, result.Success)
	assert.True(t, result.Timeout)
}
