package wizard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "bagsoflaundry.com/web/internal/wizard"

// Metrics counts step submissions by outcome.
type Metrics struct {
	submitted        metric.Int64Counter
	submittedEnabled bool
	rejected         metric.Int64Counter
	rejectedEnabled  bool
}

// NewMetrics registers the wizard counters. A nil meter uses the global provider; a nil
// logger discards registration warnings.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	submitted, subErr := meter.Int64Counter(
		"wizard.step.submitted",
		metric.WithDescription("Count of accepted wizard step submissions"),
	)
	if subErr != nil {
		logger.Warn("wizard: unable to register submitted metric", zap.Error(subErr))
	}
	rejected, rejErr := meter.Int64Counter(
		"wizard.step.rejected",
		metric.WithDescription("Count of wizard step submissions that failed validation"),
	)
	if rejErr != nil {
		logger.Warn("wizard: unable to register rejected metric", zap.Error(rejErr))
	}
	return &Metrics{
		submitted:        submitted,
		submittedEnabled: subErr == nil,
		rejected:         rejected,
		rejectedEnabled:  rejErr == nil,
	}
}

// Submitted records an accepted submission for step.
func (m *Metrics) Submitted(ctx context.Context, step Step) {
	if m == nil || !m.submittedEnabled {
		return
	}
	m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("step", string(step))))
}

// Rejected records a validation failure for step.
func (m *Metrics) Rejected(ctx context.Context, step Step) {
	if m == nil || !m.rejectedEnabled {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("step", string(step))))
}
