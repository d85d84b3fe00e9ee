package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
)

// DefaultTopic receives every vesting lifecycle event; consumers filter on
// the envelope event type.
const DefaultTopic = "vesting.events"

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ModuleLogger(r.Logger, "worker")
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "vesting_outbox_list_failed",
			"error", err.Error(),
		)
		return 0, err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	sent := 0
	for _, message := range pending {
		var envelope ports.EventEnvelope
		err := json.Unmarshal(message.Payload, &envelope)
		if err == nil {
			err = envelope.Validate()
		}
		if err != nil {
			logger.Error("outbox payload decode failed",
				"event", "vesting_outbox_decode_failed",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return sent, err
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "vesting_outbox_publish_failed",
				"outbox_id", message.OutboxID,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return sent, err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, now); err != nil {
			logger.Error("outbox mark sent failed",
				"event", "vesting_outbox_mark_sent_failed",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "vesting_outbox_relay_completed",
			"sent_count", sent,
		)
	}
	return sent, nil
}
