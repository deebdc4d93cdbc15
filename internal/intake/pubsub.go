package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// PubSubSubmitter publishes drafts to a Pub/Sub topic for the order system to consume.
type PubSubSubmitter struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubSubmitter constructs a Pub/Sub backed submitter.
func NewPubSubSubmitter(topic *pubsub.Topic) (*PubSubSubmitter, error) {
	if topic == nil {
		return nil, errors.New("pubsub submitter: topic is required")
	}
	return &PubSubSubmitter{topic: topic, marshal: json.Marshal}, nil
}

// Submit implements Submitter. The receipt reference is the Pub/Sub message id.
func (p *PubSubSubmitter) Submit(ctx context.Context, d Draft) (Receipt, error) {
	if err := d.Validate(); err != nil {
		return Receipt{}, err
	}
	data, err := p.marshal(d)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal draft: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "draftId", d.ID)
	setAttr(attrs, "orderType", d.Order.OrderType)
	setAttr(attrs, "postal", postal(d))
	setAttr(attrs, "idempotencyKey", d.IdempotencyKey)

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("publish draft: %w", err)
	}
	return Receipt{DraftID: d.ID, Reference: id, Status: "queued"}, nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
