package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/store"
)

type fakeAlerts int

func (f fakeAlerts) FiringCount() int { return int(f) }

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func seededCollector(t *testing.T) *Collector {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	for i, level := range []string{types.RiskLow, types.RiskHigh, types.RiskHigh, ""} {
		p := types.Patient{ID: string(rune('a' + i)), Name: "p", RiskLevel: level}
		if err := st.PutPatient(ctx, p); err != nil {
			t.Fatalf("PutPatient: %v", err)
		}
	}
	for _, score := range []int{10, 20, 30} {
		if err := st.AddAssessment(ctx, types.Assessment{ID: "x", RiskScore: score}); err != nil {
			t.Fatalf("AddAssessment: %v", err)
		}
	}
	appts := []types.Appointment{
		{ID: "1", Date: "2026-06-16", Time: "09:00", Status: types.StatusScheduled},
		{ID: "2", Date: "2026-06-01", Time: "09:00", Status: types.StatusScheduled},
	}
	for _, a := range appts {
		if err := st.AddAppointment(ctx, a); err != nil {
			t.Fatalf("AddAppointment: %v", err)
		}
	}

	c := New(st, fakeAlerts(2))
	c.now = func() time.Time { return testNow }
	return c
}

// sumFamily adds up all counter and gauge values in mf.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		}
	}
	return total
}

func scrape(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	srv := httptest.NewServer(c)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

func TestServeHTTP_Values(t *testing.T) {
	mfs := scrape(t, seededCollector(t))

	tests := []struct {
		name string
		want float64
	}{
		{"arterycheck_patients", 4},
		{"arterycheck_patients_by_risk", 4},
		{"arterycheck_assessments_total", 3},
		{"arterycheck_assessment_risk_score_average", 20},
		{"arterycheck_appointments_upcoming", 1},
		{"arterycheck_alerts_firing", 2},
	}
	for _, tc := range tests {
		mf, ok := mfs[tc.name]
		if !ok {
			t.Errorf("%s: missing from exposition", tc.name)
			continue
		}
		if got := sumFamily(mf); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if got := mfs["arterycheck_assessments_total"].GetType(); got != dto.MetricType_COUNTER {
		t.Errorf("assessments_total type: got %v, want COUNTER", got)
	}
}

func TestServeHTTP_RiskLabels(t *testing.T) {
	mfs := scrape(t, seededCollector(t))
	mf := mfs["arterycheck_patients_by_risk"]

	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "level" {
				got[l.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	want := map[string]float64{"low": 1, "moderate": 0, "high": 2, "unassessed": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("level=%s: got %v, want %v", k, got[k], v)
		}
	}
}

func TestServeHTTP_NilAlerts(t *testing.T) {
	c := New(store.NewMemory(), nil)
	mfs := scrape(t, c)
	if got := sumFamily(mfs["arterycheck_alerts_firing"]); got != 0 {
		t.Errorf("alerts_firing: got %v, want 0", got)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	c := New(store.NewMemory(), nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}
