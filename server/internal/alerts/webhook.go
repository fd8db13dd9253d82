package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arterycheck/arterycheck/server/internal/config"
)

// Webhook types accepted in config.
const (
	WebhookSlack = "slack"
	WebhookTeams = "teams"
	WebhookHTTP  = "http"
)

// httpEvent is the body posted to "http" webhooks.
type httpEvent struct {
	Event string `json:"event"` // "alert.firing" or "alert.resolved"
	Alert *Alert `json:"alert"`
}

// send posts a to every configured webhook with a URL. Failures are logged
// and never reach Evaluate.
func (e *Engine) send(a *Alert) {
	e.mu.Lock()
	hooks := append([]config.WebhookConfig(nil), e.webhooks...)
	e.mu.Unlock()

	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		body, err := payload(wh.Type, a)
		if err != nil {
			slog.Warn("alerts: skipping webhook", "type", wh.Type, "err", err)
			continue
		}
		if err := e.post(url, body); err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "patient", a.PatientID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

// payload renders a for the given webhook type.
func payload(kind string, a *Alert) ([]byte, error) {
	switch kind {
	case WebhookSlack:
		return json.Marshal(slackBody(a))
	case WebhookTeams:
		return json.Marshal(teamsBody(a))
	case WebhookHTTP:
		return json.Marshal(httpEvent{Event: "alert." + a.State, Alert: a})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", kind)
	}
}

func slackBody(a *Alert) map[string]any {
	return map[string]any{
		"text": headline(a),
		"attachments": []map[string]any{{
			"color": "#" + severityColor(a),
			"fields": []map[string]any{
				{"title": "Patient", "value": subjectOf(a), "short": true},
				{"title": "Risk", "value": riskOf(a), "short": true},
				{"title": "Condition", "value": a.Condition, "short": true},
				{"title": "Value", "value": strconv.FormatFloat(a.Value, 'f', 1, 64), "short": true},
			},
		}},
	}
}

func teamsBody(a *Alert) map[string]any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a),
		"summary":    headline(a),
		"title":      headline(a),
		"sections": []map[string]any{{
			"facts": []map[string]string{
				{"name": "Patient", "value": subjectOf(a)},
				{"name": "Risk", "value": riskOf(a)},
				{"name": "Condition", "value": a.Condition},
				{"name": "Value", "value": strconv.FormatFloat(a.Value, 'f', 1, 64)},
			},
		}},
	}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func headline(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("[RESOLVED] ArteryCheck %s", a.RuleName)
	}
	return fmt.Sprintf("%s ArteryCheck %s", severityLabel(a.Severity), a.RuleName)
}

// subjectOf names what the alert is about: the patient, or the assessment
// when it has none.
func subjectOf(a *Alert) string {
	if a.PatientID != "" {
		return a.PatientID
	}
	return "assessment " + a.AssessmentID
}

func riskOf(a *Alert) string {
	if a.RiskLevel == "" {
		return strconv.Itoa(a.RiskScore)
	}
	return fmt.Sprintf("%d (%s)", a.RiskScore, a.RiskLevel)
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(a *Alert) string {
	if a.State == StateResolved {
		return "10B981"
	}
	switch a.Severity {
	case "critical":
		return "EF4444"
	case "warning":
		return "F59E0B"
	default:
		return "0EA5E9"
	}
}
