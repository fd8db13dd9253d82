package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/analytics"
	"github.com/arterycheck/arterycheck/server/internal/store"
)

const namespace = "arterycheck"

// levelUnassessed labels patients without a risk level.
const levelUnassessed = "unassessed"

// AlertCounter reports how many alerts are firing. *alerts.Engine satisfies it.
type AlertCounter interface {
	FiringCount() int
}

// Collector builds metric families from the store on each scrape.
type Collector struct {
	store  store.Store
	alerts AlertCounter
	now    func() time.Time
}

// New creates a Collector. al may be nil, in which case the firing-alerts
// gauge reports zero.
func New(st store.Store, al AlertCounter) *Collector {
	return &Collector{store: st, alerts: al, now: time.Now}
}

// Gather reads the store and returns the metric families in a fixed order.
func (c *Collector) Gather(ctx context.Context) ([]*dto.MetricFamily, error) {
	patients, err := c.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: list patients: %w", err)
	}
	assessments, err := c.store.ListAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: list assessments: %w", err)
	}
	appts, err := c.store.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: list appointments: %w", err)
	}

	summary := analytics.Dashboard(patients, assessments, appts, c.now())

	byLevel := map[string]int{
		types.RiskLow:      0,
		types.RiskModerate: 0,
		types.RiskHigh:     0,
		levelUnassessed:    0,
	}
	for _, p := range patients {
		if p.RiskLevel == "" {
			byLevel[levelUnassessed]++
			continue
		}
		byLevel[p.RiskLevel]++
	}
	levels := make([]*dto.Metric, 0, len(byLevel))
	for _, l := range []string{types.RiskLow, types.RiskModerate, types.RiskHigh, levelUnassessed} {
		levels = append(levels, gaugeMetric(float64(byLevel[l]), "level", l))
	}

	firing := 0
	if c.alerts != nil {
		firing = c.alerts.FiringCount()
	}

	return []*dto.MetricFamily{
		family("patients", "Number of registered patients.", dto.MetricType_GAUGE,
			gaugeMetric(float64(summary.TotalPatients))),
		family("patients_by_risk", "Patients by their latest risk level.", dto.MetricType_GAUGE,
			levels...),
		family("assessments_total", "Risk assessments recorded.", dto.MetricType_COUNTER,
			&dto.Metric{Counter: &dto.Counter{Value: proto.Float64(float64(summary.TotalAssessments))}}),
		family("assessment_risk_score_average", "Mean risk score over all assessments.", dto.MetricType_GAUGE,
			gaugeMetric(float64(summary.AverageRiskScore))),
		family("appointments_upcoming", "Scheduled appointments that have not started.", dto.MetricType_GAUGE,
			gaugeMetric(float64(summary.UpcomingAppointments))),
		family("alerts_firing", "Alert rules currently firing.", dto.MetricType_GAUGE,
			gaugeMetric(float64(firing))),
	}, nil
}

// ServeHTTP writes the families in the text exposition format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mfs, err := c.Gather(r.Context())
	if err != nil {
		slog.Error("metrics: gather failed", "err", err)
		http.Error(w, "gather failed", http.StatusInternalServerError)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func family(name, help string, typ dto.MetricType, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: ms,
	}
}

// gaugeMetric builds a gauge sample; labels are name/value pairs.
func gaugeMetric(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
