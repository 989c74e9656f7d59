package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	queryTotal    *prom.CounterVec
	querySeconds  *prom.HistogramVec
	hazardTotal   *prom.CounterVec
	activeHazards prom.Gauge
	toolTotal     *prom.CounterVec
	toolSeconds   *prom.HistogramVec
}

func (p *promRecorder) IncQueryTotal(kind, outcome string) {
	p.queryTotal.WithLabelValues(kind, outcome).Inc()
}

func (p *promRecorder) ObserveQuerySeconds(kind, outcome string, seconds float64) {
	p.querySeconds.WithLabelValues(kind, outcome).Observe(seconds)
}

func (p *promRecorder) IncHazardTotal(action string) {
	p.hazardTotal.WithLabelValues(action).Inc()
}

func (p *promRecorder) SetActiveHazards(n int) {
	p.activeHazards.Set(float64(n))
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, fmt.Sprintf("%t", success)).Observe(seconds)
}

// EnablePrometheus installs a Prometheus recorder on a fresh registry and
// returns the scrape handler for it.
func EnablePrometheus() http.Handler {
	registry := prom.NewRegistry()
	p := &promRecorder{
		queryTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "wayfind_queries_total",
			Help: "Total number of route and evacuation queries",
		}, []string{"kind", "outcome"}),
		querySeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "wayfind_query_seconds",
			Help:    "Route and evacuation query duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"kind", "outcome"}),
		hazardTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "wayfind_hazard_events_total",
			Help: "Hazards declared, cleared and expired",
		}, []string{"action"}),
		activeHazards: prom.NewGauge(prom.GaugeOpts{
			Name: "wayfind_active_hazards",
			Help: "Number of hazards currently in force",
		}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "wayfind_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "wayfind_tool_call_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
	}

	registry.MustRegister(
		p.queryTotal, p.querySeconds, p.hazardTotal, p.activeHazards, p.toolTotal, p.toolSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
