// internal/bus/pubsub.go
package bus

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"jobtrack/internal/common/config"
	"jobtrack/internal/common/logger"
	pipeerrors "jobtrack/internal/common/errors"

	"google.golang.org/api/pubsub/v1"
)

// Notification is a decoded mailbox-change payload carrying the history
// cursor to fetch incrementally from.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Item is one pulled bus entry. Data is the raw payload; it may be empty
// when the publisher attached no body.
type Item struct {
	AckID string
	Data  []byte
}

// Bus pulls pending notifications from a Pub/Sub subscription. Pulls are
// non-blocking: an empty subscription returns immediately with no items.
type Bus struct {
	svc          *pubsub.Service
	subscription string
	maxMessages  int64
	logger       logger.Logger
}

func NewBus(ctx context.Context, cfg config.PubSubConfig, log logger.Logger) (*Bus, error) {
	svc, err := pubsub.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create Pub/Sub service: %w", err)
	}
	return NewBusWithService(svc, cfg.SubscriptionName(), cfg.MaxMessages, log), nil
}

// NewBusWithService wraps an already constructed service. Used by tests
// that point the service at a local endpoint.
func NewBusWithService(svc *pubsub.Service, subscription string, maxMessages int64, log logger.Logger) *Bus {
	return &Bus{
		svc:          svc,
		subscription: subscription,
		maxMessages:  maxMessages,
		logger:       log.WithFields(map[string]interface{}{"component": "bus"}),
	}
}

// Pull fetches up to maxMessages pending items and acknowledges them
// immediately. Delivery is at-least-once; the dedup gate downstream
// absorbs redelivery.
func (b *Bus) Pull(ctx context.Context) ([]Item, error) {
	req := &pubsub.PullRequest{
		MaxMessages:       b.maxMessages,
		ReturnImmediately: true,
	}
	resp, err := b.svc.Projects.Subscriptions.Pull(b.subscription, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("subscription pull failed: %w", err)
	}
	if len(resp.ReceivedMessages) == 0 {
		return nil, nil
	}

	items := make([]Item, 0, len(resp.ReceivedMessages))
	ackIDs := make([]string, 0, len(resp.ReceivedMessages))
	for _, rm := range resp.ReceivedMessages {
		ackIDs = append(ackIDs, rm.AckId)
		item := Item{AckID: rm.AckId}
		if rm.Message != nil && rm.Message.Data != "" {
			data, err := base64.StdEncoding.DecodeString(rm.Message.Data)
			if err != nil {
				b.logger.Warn("undecodable message data, skipping item", map[string]interface{}{
					"ackId": rm.AckId,
				})
				continue
			}
			item.Data = data
		}
		items = append(items, item)
	}

	ackReq := &pubsub.AcknowledgeRequest{AckIds: ackIDs}
	if _, err := b.svc.Projects.Subscriptions.Acknowledge(b.subscription, ackReq).Context(ctx).Do(); err != nil {
		// The items were already received; failing the ack only risks
		// redelivery, which the dedup gate handles.
		b.logger.Warn("acknowledge failed", map[string]interface{}{"error": err.Error()})
	}

	return items, nil
}

// Decode parses one pulled payload into a Notification.
func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, pipeerrors.NewNotificationDecodeError(err)
	}
	return n, nil
}
