package alerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/config"
)

// recorder collects delivered alerts synchronously.
type recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recorder) deliver(a *Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, *a)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func newTestEngine(rules ...config.AlertRule) (*Engine, *recorder, *time.Time) {
	e := New(config.AlertsConfig{Rules: rules})
	rec := &recorder{}
	e.deliver = rec.deliver
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e, rec, &now
}

func assessment(patientID string, score int, level string) types.Assessment {
	return types.Assessment{
		ID:        "a-" + patientID,
		PatientID: patientID,
		RiskScore: score,
		RiskLevel: level,
		Input:     types.AssessmentInput{SystolicBP: 150},
	}
}

// --- evalCondition ---

func TestEvalCondition(t *testing.T) {
	a := types.Assessment{
		RiskScore: 42,
		RiskLevel: types.RiskModerate,
		BMI:       31.2,
		Input: types.AssessmentInput{
			SystolicBP:       185,
			OxygenSaturation: 90,
		},
	}
	tests := []struct {
		cond      string
		wantFire  bool
		wantValue float64
	}{
		{"risk_score >= 40", true, 42},
		{"risk_score > 42", false, 42},
		{"risk_level == moderate", true, 42},
		{"risk_level == high", false, 42},
		{"risk_level != low", true, 42},
		{"systolic_bp > 180", true, 185},
		{"bmi >= 30", true, 31.2},
		{"oxygen_saturation < 92", true, 90},
		// Not entered on the form: never fires.
		{"blood_glucose < 300", false, 0},
		{"unknown_field > 1", false, 0},
		{"risk_score >= abc", false, 0},
		{"risk_score ~ 10", false, 42},
		{"malformed", false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			fires, v := evalCondition(tc.cond, a)
			if fires != tc.wantFire {
				t.Errorf("fires = %v, want %v", fires, tc.wantFire)
			}
			if v != tc.wantValue {
				t.Errorf("value = %v, want %v", v, tc.wantValue)
			}
		})
	}
}

// --- Engine ---

func TestEvaluate_NoRules(t *testing.T) {
	e, rec, _ := newTestEngine()
	e.Evaluate(assessment("p1", 60, types.RiskHigh))
	if rec.count() != 0 || len(e.Active()) != 0 {
		t.Errorf("engine without rules produced alerts")
	}
}

func TestEvaluate_FiresAndResolves(t *testing.T) {
	e, rec, now := newTestEngine(config.AlertRule{
		Name: "moderate-or-worse", Condition: "risk_score >= 20", Severity: "critical",
	})

	e.Evaluate(assessment("p1", 25, types.RiskModerate))
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active: got %d, want 1", len(active))
	}
	if active[0].State != StateFiring || active[0].Severity != "critical" || active[0].PatientID != "p1" {
		t.Errorf("unexpected alert: %+v", active[0])
	}
	if e.FiringCount() != 1 {
		t.Errorf("FiringCount: got %d, want 1", e.FiringCount())
	}

	*now = now.Add(time.Hour)
	e.Evaluate(assessment("p1", 10, types.RiskLow))

	active = e.Active()
	if len(active) != 1 || active[0].State != StateResolved || active[0].ResolvedAt == nil {
		t.Fatalf("after resolve: got %+v", active)
	}
	if e.FiringCount() != 0 {
		t.Errorf("FiringCount after resolve: got %d, want 0", e.FiringCount())
	}
	if rec.count() != 2 {
		t.Errorf("deliveries: got %d, want 2 (fire + resolve)", rec.count())
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e, rec, now := newTestEngine(config.AlertRule{
		Name: "bp", Condition: "systolic_bp > 140", Cooldown: 30 * time.Minute,
	})

	e.Evaluate(assessment("p1", 5, types.RiskLow))
	*now = now.Add(10 * time.Minute)
	e.Evaluate(assessment("p1", 5, types.RiskLow))
	if rec.count() != 1 {
		t.Fatalf("within cooldown: deliveries %d, want 1", rec.count())
	}

	*now = now.Add(time.Hour)
	e.Evaluate(assessment("p1", 5, types.RiskLow))
	if rec.count() != 2 {
		t.Errorf("after cooldown: deliveries %d, want 2", rec.count())
	}
}

func TestEvaluate_DefaultSeverity(t *testing.T) {
	e, rec, _ := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140"})
	e.Evaluate(assessment("p1", 5, types.RiskLow))
	if rec.count() != 1 || rec.alerts[0].Severity != "warning" {
		t.Errorf("severity: got %+v", rec.alerts)
	}
}

func TestEvaluate_PerPatientKeys(t *testing.T) {
	e, _, _ := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140"})
	e.Evaluate(assessment("p1", 5, types.RiskLow))
	e.Evaluate(assessment("p2", 5, types.RiskLow))
	if n := e.FiringCount(); n != 2 {
		t.Errorf("FiringCount: got %d, want 2", n)
	}
}

func TestEvaluate_UnlinkedAssessmentKeyedByID(t *testing.T) {
	e, _, _ := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140"})
	a := assessment("", 5, types.RiskLow)
	a.ID = "solo"
	e.Evaluate(a)

	active := e.Active()
	if len(active) != 1 || active[0].AssessmentID != "solo" {
		t.Fatalf("Active: got %+v", active)
	}
}

func TestEvaluate_UnlinkedAlertsExpireAfterCooldown(t *testing.T) {
	e, rec, now := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140", Cooldown: 10 * time.Minute})
	for _, id := range []string{"s1", "s2", "s3"} {
		a := assessment("", 5, types.RiskLow)
		a.ID = id
		e.Evaluate(a)
	}
	if n := e.FiringCount(); n != 3 {
		t.Fatalf("FiringCount: got %d, want 3", n)
	}
	if len(e.lastFire) != 0 {
		t.Errorf("lastFire holds %d unlinked keys, want 0", len(e.lastFire))
	}

	*now = now.Add(10 * time.Minute)
	if n := e.FiringCount(); n != 0 {
		t.Fatalf("FiringCount after cooldown: got %d, want 0", n)
	}
	active := e.Active()
	if len(active) != 3 {
		t.Fatalf("Active: got %d alerts, want 3 resolved", len(active))
	}
	for _, a := range active {
		if a.State != StateResolved || a.ResolvedAt == nil {
			t.Errorf("alert %s: state %s, resolved_at %v", a.AssessmentID, a.State, a.ResolvedAt)
		}
	}
	if rec.count() != 3 {
		t.Errorf("deliveries: got %d, want 3 (expiry sends nothing)", rec.count())
	}
}

func TestEvaluate_LinkedAlertsDoNotExpire(t *testing.T) {
	e, _, now := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140", Cooldown: time.Minute})
	e.Evaluate(assessment("p1", 5, types.RiskLow))
	*now = now.Add(time.Hour)
	if n := e.FiringCount(); n != 1 {
		t.Errorf("FiringCount: got %d, want 1", n)
	}
}

func TestSetConfig_DropsRemovedRules(t *testing.T) {
	e, _, _ := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140"})
	e.Evaluate(assessment("p1", 5, types.RiskLow))

	e.SetConfig(config.AlertsConfig{Rules: []config.AlertRule{{Name: "other", Condition: "bmi > 40"}}})
	if n := e.FiringCount(); n != 0 {
		t.Errorf("FiringCount after removing rule: got %d, want 0", n)
	}
}

func TestEvaluate_AlertCarriesRiskContext(t *testing.T) {
	e, rec, _ := newTestEngine(config.AlertRule{Name: "bp", Condition: "systolic_bp > 140", Severity: "critical"})
	e.Evaluate(assessment("p1", 27, types.RiskModerate))
	if rec.count() != 1 {
		t.Fatalf("deliveries: got %d, want 1", rec.count())
	}
	got := rec.alerts[0]
	if got.Condition != "systolic_bp > 140" || got.RiskScore != 27 || got.RiskLevel != types.RiskModerate || got.Value != 150 {
		t.Errorf("alert: got %+v", got)
	}
}

// --- webhooks ---

func TestSend_HTTPWebhook(t *testing.T) {
	got := make(chan httpEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body httpEvent
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		got <- body
	}))
	defer srv.Close()

	t.Setenv("TEST_ALERT_HOOK", srv.URL)
	e := New(config.AlertsConfig{
		Webhooks: []config.WebhookConfig{
			{Type: "http", URLEnv: "TEST_ALERT_HOOK"},
			{Type: "carrier-pigeon", URLEnv: "TEST_ALERT_HOOK"},
			{Type: "slack"}, // no URL: skipped
		},
	})
	e.send(&Alert{RuleName: "bp", PatientID: "p1", Severity: "critical", State: StateFiring})

	select {
	case body := <-got:
		if body.Event != "alert.firing" || body.Alert == nil || body.Alert.RuleName != "bp" {
			t.Errorf("webhook body: got %+v", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestPayload_Slack(t *testing.T) {
	a := &Alert{RuleName: "bp", PatientID: "p1", Severity: "critical", Condition: "systolic_bp >= 180",
		Value: 185, RiskScore: 22, RiskLevel: types.RiskModerate, State: StateFiring}
	body, err := payload(WebhookSlack, a)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var msg struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color  string `json:"color"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Text != "[CRITICAL] ArteryCheck bp" {
		t.Errorf("text: got %q", msg.Text)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Color != "#EF4444" {
		t.Fatalf("attachments: got %+v", msg.Attachments)
	}
	fields := map[string]string{}
	for _, f := range msg.Attachments[0].Fields {
		fields[f.Title] = f.Value
	}
	want := map[string]string{"Patient": "p1", "Risk": "22 (moderate)", "Condition": "systolic_bp >= 180", "Value": "185.0"}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s: got %q, want %q", k, fields[k], v)
		}
	}
}

func TestPayload_TeamsResolved(t *testing.T) {
	a := &Alert{RuleName: "bp", AssessmentID: "solo", Severity: "critical", State: StateResolved}
	body, err := payload(WebhookTeams, a)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var card struct {
		ThemeColor string `json:"themeColor"`
		Title      string `json:"title"`
		Sections   []struct {
			Facts []struct{ Name, Value string } `json:"facts"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(body, &card); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if card.ThemeColor != "10B981" || card.Title != "[RESOLVED] ArteryCheck bp" {
		t.Errorf("card: got %+v", card)
	}
	if len(card.Sections) != 1 || card.Sections[0].Facts[0].Value != "assessment solo" {
		t.Errorf("patient fact: got %+v", card.Sections)
	}
}

func TestPayload_UnknownType(t *testing.T) {
	if _, err := payload("carrier-pigeon", &Alert{}); err == nil {
		t.Error("expected error for unknown webhook type")
	}
}

func TestSeverityColor(t *testing.T) {
	if c := severityColor(&Alert{Severity: "critical", State: StateResolved}); c != "10B981" {
		t.Errorf("resolved color: got %s", c)
	}
	if c := severityColor(&Alert{Severity: "critical", State: StateFiring}); c != "EF4444" {
		t.Errorf("critical color: got %s", c)
	}
}
