// Package monitoring implements the alert rule-evaluation loop, the
// health-check loop, and the dashboard aggregator spec.md §4.13
// describes (component C14). Both loops follow the teacher's
// pkg/cleanup.Service shape: a cancelable background goroutine started
// by Start and drained by Stop, ticking on its own interval.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// MetricsProvider returns the current metrics snapshot the rule
// evaluation loop checks rules against — pulled from C7/C9/C10/C11/C12
// and health results (spec.md §4.13). Kept as a function the
// composition root supplies, so this package never imports progress,
// quality, completion, migration, or queue directly.
type MetricsProvider func(ctx context.Context) (map[string]float64, error)

// HealthCheckFunc is one registered health probe.
type HealthCheckFunc func(ctx context.Context) error

type healthCheck struct {
	name    string
	fn      HealthCheckFunc
	timeout time.Duration
}

// Service runs the two background loops and holds the alert/health
// state spec.md §5 calls the single-writer-multiple-reader "alert
// store": active_alerts, alert_history, cooldowns, mutated only by the
// rule-evaluation loop.
type Service struct {
	metrics   MetricsProvider
	notifiers map[billmodel.NotificationChannel]Notifier
	logger    *slog.Logger

	evaluationInterval  time.Duration
	healthCheckInterval time.Duration

	mu           sync.RWMutex
	rules        map[string]billmodel.AlertRule
	activeAlerts map[string]billmodel.Alert // keyed by rule_id
	cooldownEnd  map[string]time.Time
	history      []billmodel.Alert
	healthChecks []healthCheck
	lastHealth   map[string]billmodel.HealthCheckResult

	now func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Service at construction.
type Option func(*Service)

func WithEvaluationInterval(d time.Duration) Option {
	return func(s *Service) { s.evaluationInterval = d }
}

func WithHealthCheckInterval(d time.Duration) Option {
	return func(s *Service) { s.healthCheckInterval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// withNow is test-only time injection, letting Scenario F's cooldown
// boundary (t=0, t=300, t=1801) be asserted without a real clock.
func withNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service. notifiers maps each channel an
// AlertRule may reference to its dispatcher; a rule naming a channel
// with no registered notifier is skipped for that channel and logged.
func NewService(metrics MetricsProvider, notifiers []Notifier, opts ...Option) *Service {
	s := &Service{
		metrics:             metrics,
		notifiers:           make(map[billmodel.NotificationChannel]Notifier, len(notifiers)),
		logger:              slog.Default().With("component", "monitoring"),
		evaluationInterval:  300 * time.Second,
		healthCheckInterval: 60 * time.Second,
		rules:               make(map[string]billmodel.AlertRule),
		activeAlerts:        make(map[string]billmodel.Alert),
		cooldownEnd:         make(map[string]time.Time),
		lastHealth:          make(map[string]billmodel.HealthCheckResult),
		now:                 time.Now,
	}
	for _, n := range notifiers {
		s.notifiers[n.Channel()] = n
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRule adds or replaces an AlertRule.
func (s *Service) RegisterRule(rule billmodel.AlertRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.RuleID] = rule
}

// RegisterHealthCheck adds a probe the health-check loop runs every
// tick, each with its own timeout.
func (s *Service) RegisterHealthCheck(name string, timeout time.Duration, fn HealthCheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthChecks = append(s.healthChecks, healthCheck{name: name, fn: fn, timeout: timeout})
}

// Start launches both background loops.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.runEvaluationLoop(ctx) }()
	go func() { defer wg.Done(); s.runHealthLoop(ctx) }()
	go func() { wg.Wait(); close(s.done) }()

	s.logger.Info("monitoring service started",
		"evaluation_interval", s.evaluationInterval, "health_check_interval", s.healthCheckInterval)
	s.logger.Warn("monitoring: alert cooldown state is held in memory only; cooldowns from a previous run are lost and alerts may re-fire after a restart")
}

// Stop signals both loops to exit and waits for them to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("monitoring service stopped")
}

func (s *Service) runEvaluationLoop(ctx context.Context) {
	ticker := time.NewTicker(s.evaluationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvaluateOnce(ctx)
		}
	}
}

func (s *Service) runHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunHealthChecksOnce(ctx)
		}
	}
}

// EvaluateOnce runs one rule-evaluation tick: gather metrics, check
// every enabled rule not in cooldown, fire alerts, dispatch
// notifications, and auto-resolve alerts whose rule no longer
// triggers.
func (s *Service) EvaluateOnce(ctx context.Context) {
	metrics, err := s.metrics(ctx)
	if err != nil {
		s.logger.Error("monitoring: failed to gather metrics snapshot", "error", err)
		return
	}

	s.mu.Lock()
	rules := make([]billmodel.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	s.mu.Unlock()

	now := s.now()
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		triggered, err := Evaluate(rule.ConditionExpr, metrics)
		if err != nil {
			s.logger.Warn("monitoring: rule evaluation failed", "rule_id", rule.RuleID, "error", err)
			continue
		}

		if triggered {
			s.fireIfNotCoolingDown(ctx, rule, now)
		} else {
			s.autoResolve(rule.RuleID, now)
		}
	}
}

func (s *Service) fireIfNotCoolingDown(ctx context.Context, rule billmodel.AlertRule, now time.Time) {
	s.mu.Lock()
	if end, ok := s.cooldownEnd[rule.RuleID]; ok && now.Before(end) {
		s.mu.Unlock()
		return
	}

	alert := billmodel.Alert{
		AlertID:     uuid.New().String(),
		RuleID:      rule.RuleID,
		TriggeredAt: now,
		Details:     fmt.Sprintf("condition %q triggered", rule.ConditionExpr),
	}
	s.activeAlerts[rule.RuleID] = alert
	s.history = append(s.history, alert)
	s.cooldownEnd[rule.RuleID] = now.Add(time.Duration(rule.CooldownSeconds) * time.Second)
	s.mu.Unlock()

	s.dispatch(ctx, rule, alert)
}

// autoResolve closes an active alert once its rule stops triggering
// (spec.md §4.13: "any active alert whose rule is no longer triggered
// gets resolved_at = now").
func (s *Service) autoResolve(ruleID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.activeAlerts[ruleID]
	if !ok || alert.ResolvedAt != nil {
		return
	}
	alert.ResolvedAt = &now
	s.activeAlerts[ruleID] = alert
	for i := range s.history {
		if s.history[i].AlertID == alert.AlertID {
			s.history[i].ResolvedAt = &now
		}
	}
}

func (s *Service) dispatch(ctx context.Context, rule billmodel.AlertRule, alert billmodel.Alert) {
	for _, channel := range rule.NotificationChannels {
		notifier, ok := s.notifiers[channel]
		if !ok {
			s.logger.Warn("monitoring: no notifier registered for channel", "channel", channel, "rule_id", rule.RuleID)
			continue
		}
		if err := notifier.Notify(ctx, rule, alert); err != nil {
			s.logger.Error("monitoring: notification dispatch failed",
				"channel", channel, "rule_id", rule.RuleID, "error", err)
		}
	}
}

// ActiveAlerts returns a snapshot of the latest alert for every rule that
// has fired. Alerts auto-resolved since then are included, with
// ResolvedAt set.
func (s *Service) ActiveAlerts() []billmodel.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]billmodel.Alert, 0, len(s.activeAlerts))
	for _, a := range s.activeAlerts {
		out = append(out, a)
	}
	return out
}

// History returns every alert ever fired, most recent last.
func (s *Service) History() []billmodel.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]billmodel.Alert, len(s.history))
	copy(out, s.history)
	return out
}

// RunHealthChecksOnce runs every registered health check with its
// configured timeout and stores the result.
func (s *Service) RunHealthChecksOnce(ctx context.Context) {
	s.mu.RLock()
	checks := make([]healthCheck, len(s.healthChecks))
	copy(checks, s.healthChecks)
	s.mu.RUnlock()

	for _, hc := range checks {
		result := s.runOne(ctx, hc)
		s.mu.Lock()
		s.lastHealth[hc.name] = result
		s.mu.Unlock()
	}
}

func (s *Service) runOne(ctx context.Context, hc healthCheck) billmodel.HealthCheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := s.now()
	err := hc.fn(checkCtx)
	duration := s.now().Sub(start)

	result := billmodel.HealthCheckResult{
		Name:      hc.name,
		Success:   err == nil,
		Duration:  duration,
		Timestamp: s.now(),
	}
	if err != nil {
		result.Error = err.Error()
		if checkCtx.Err() == context.DeadlineExceeded {
			result.Timeout = true
		}
	}
	return result
}

// HealthResults returns the most recent result for every registered
// health check.
func (s *Service) HealthResults() map[string]billmodel.HealthCheckResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]billmodel.HealthCheckResult, len(s.lastHealth))
	for k, v := range s.lastHealth {
		out[k] = v
	}
	return out
}
