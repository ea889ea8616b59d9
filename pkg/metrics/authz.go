package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuthzMetrics tracks access-gate decisions and identity-link outcomes.
type AuthzMetrics struct {
	gateDecisions *prometheus.CounterVec
	linkOutcomes  *prometheus.CounterVec
}

// NewAuthzMetrics registers the authorization metrics on the provided registerer.
func NewAuthzMetrics(reg prometheus.Registerer) *AuthzMetrics {
	if reg == nil {
		return &AuthzMetrics{}
	}
	gateDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_decisions_total",
		Help: "Access gate decisions by outcome.",
	}, []string{"decision"})
	linkOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "link_code_outcomes_total",
		Help: "Identity link code consumption outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(gateDecisions, linkOutcomes)
	return &AuthzMetrics{
		gateDecisions: gateDecisions,
		linkOutcomes:  linkOutcomes,
	}
}

// IncGateDecision increments the counter for a gate decision outcome.
func (a *AuthzMetrics) IncGateDecision(decision string) {
	if a == nil || a.gateDecisions == nil {
		return
	}
	a.gateDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncLinkOutcome increments the counter for a link code outcome
// (consumed, expired, invalid, reissued).
func (a *AuthzMetrics) IncLinkOutcome(outcome string) {
	if a == nil || a.linkOutcomes == nil {
		return
	}
	a.linkOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
