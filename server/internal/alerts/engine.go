package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = 24 * time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	PatientID    string     `json:"patient_id,omitempty"`
	AssessmentID string     `json:"assessment_id"`
	Severity     string     `json:"severity"`
	Condition    string     `json:"condition"`
	Message      string     `json:"message"`
	Value        float64    `json:"value"`
	RiskScore    int        `json:"risk_score"`
	RiskLevel    string     `json:"risk_level"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"`

	// expires is set for alerts without a patient; they resolve at this time.
	expires time.Time
}

// Engine evaluates alert rules against recorded assessments and delivers
// webhook notifications when rules fire or resolve. Alerts are tracked per
// rule and patient. An assessment without a patient cannot be re-evaluated,
// so its alerts resolve on their own once the rule's cooldown has passed.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:subject"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client  *http.Client
	now     func() time.Time
	deliver func(*Alert)
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid; Evaluate is then a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.deliver = func(a *Alert) { go e.send(a) }
	return e
}

// SetConfig swaps the rules and webhooks. Active alerts whose rule no longer
// exists are dropped.
func (e *Engine) SetConfig(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks

	keep := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		keep[r.Name] = true
	}
	for key, a := range e.active {
		if !keep[a.RuleName] {
			delete(e.active, key)
		}
	}
	slog.Info("alerts: rules updated", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests all configured rules against a.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing for the same patient but whose condition is now
// false are resolved.
func (e *Engine) Evaluate(a types.Assessment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rules) == 0 {
		return
	}

	subject := a.PatientID
	if subject == "" {
		subject = a.ID
	}

	now := e.now()
	e.expireUnlinked(now)
	for _, rule := range e.rules {
		key := rule.Name + ":" + subject
		fires, value := evalCondition(rule.Condition, a)

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			alert := &Alert{
				ID:           fmt.Sprintf("%s:%s:%d", rule.Name, subject, now.UnixNano()),
				RuleName:     rule.Name,
				PatientID:    a.PatientID,
				AssessmentID: a.ID,
				Severity:     sev,
				Condition:    rule.Condition,
				Value:        value,
				RiskScore:    a.RiskScore,
				RiskLevel:    a.RiskLevel,
				Message: fmt.Sprintf("[%s] %s fired for %s: %s (value %.1f, risk %d/%s)",
					sev, rule.Name, subject, rule.Condition, value, a.RiskScore, a.RiskLevel),
				FiredAt: now,
				State:   StateFiring,
			}
			if a.PatientID == "" {
				alert.expires = now.Add(cooldown)
			} else {
				e.lastFire[key] = now
			}
			e.active[key] = alert

			slog.Warn("alerts: fired",
				"rule", rule.Name,
				"subject", subject,
				"value", value,
				"severity", sev,
			)
			cp := *alert
			e.deliver(&cp)
			continue
		}

		if alert, ok := e.active[key]; ok && alert.State == StateFiring {
			resolved := now
			alert.State = StateResolved
			alert.ResolvedAt = &resolved
			delete(e.active, key)
			e.remember(alert)

			slog.Info("alerts: resolved", "rule", rule.Name, "subject", subject)
			cp := *alert
			e.deliver(&cp)
		}
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past day, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.expireUnlinked(now)
	cutoff := now.Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireUnlinked(e.now())
	return len(e.active)
}

// expireUnlinked resolves alerts without a patient whose expiry has passed.
// No webhook is sent for them. Callers hold e.mu.
func (e *Engine) expireUnlinked(now time.Time) {
	for key, a := range e.active {
		if a.expires.IsZero() || now.Before(a.expires) {
			continue
		}
		resolved := a.expires
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)
		e.remember(a)
		slog.Debug("alerts: expired", "rule", a.RuleName, "assessment", a.AssessmentID)
	}
}

// remember appends a resolved alert to the bounded history. Callers hold e.mu.
func (e *Engine) remember(a *Alert) {
	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
}
