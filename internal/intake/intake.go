// Package intake hands completed wizard drafts to the downstream order system.
package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"bagsoflaundry.com/web/internal/wizard"
)

// Draft is a completed wizard submission. Pricing stays provisional until the order
// system confirms it.
type Draft struct {
	ID             string       `json:"id"`
	IdempotencyKey string       `json:"idempotencyKey"`
	Order          wizard.State `json:"order"`
	UserID         string       `json:"userId,omitempty"`
	SubmittedAt    time.Time    `json:"submittedAt"`
}

// Receipt acknowledges a submitted draft.
type Receipt struct {
	DraftID   string `json:"draftId"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Submitter delivers drafts downstream.
type Submitter interface {
	Submit(ctx context.Context, d Draft) (Receipt, error)
}

// ErrIncompleteDraft is returned when a draft lacks the fields every order needs.
var ErrIncompleteDraft = errors.New("intake: draft is incomplete")

// NewDraft stamps state with a fresh id. The idempotency key comes from the draft so a
// resubmitted checkout reuses it; drafts without one get a fresh key.
func NewDraft(state wizard.State, userID string, now time.Time) Draft {
	key := strings.TrimSpace(state.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	return Draft{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		IdempotencyKey: key,
		Order:          state,
		UserID:         strings.TrimSpace(userID),
		SubmittedAt:    now.UTC(),
	}
}

// Validate checks that the draft carries every step's output.
func (d Draft) Validate() error {
	o := d.Order
	if d.ID == "" || o.Address == nil || o.Date == "" || o.Phone == "" || o.OrderType == "" || o.Addons == nil || o.Customer == nil {
		return ErrIncompleteDraft
	}
	return nil
}

func postal(d Draft) string {
	if d.Order.Address == nil {
		return ""
	}
	return d.Order.Address.Postal
}
