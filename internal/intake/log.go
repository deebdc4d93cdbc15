package intake

import (
	"context"

	"go.uber.org/zap"
)

// LogSubmitter records drafts in the log. It is the default when no order system is
// configured, which keeps local development self-contained.
type LogSubmitter struct {
	logger *zap.Logger
}

// NewLogSubmitter returns a submitter that logs to logger.
func NewLogSubmitter(logger *zap.Logger) *LogSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSubmitter{logger: logger}
}

// Submit implements Submitter.
func (s *LogSubmitter) Submit(_ context.Context, d Draft) (Receipt, error) {
	if err := d.Validate(); err != nil {
		return Receipt{}, err
	}
	fields := []zap.Field{
		zap.String("draft_id", d.ID),
		zap.String("order_type", d.Order.OrderType),
		zap.String("postal", postal(d)),
		zap.String("pickup_date", d.Order.Date),
		zap.Bool("signed_in", d.UserID != ""),
	}
	if est := d.Order.Estimate; est != nil {
		fields = append(fields, zap.Int64("estimate_cents", est.SubtotalCents))
	}
	s.logger.Info("order draft received", fields...)
	return Receipt{DraftID: d.ID, Reference: d.ID, Status: "logged"}, nil
}
