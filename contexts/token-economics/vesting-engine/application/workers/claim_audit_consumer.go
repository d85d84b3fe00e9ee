package workers

import (
	"context"
	"log/slog"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
	contractsv1 "tokenvest/contracts/gen/events/v1"

	"github.com/cockroachdb/errors"
)

const defaultAuditConsumerGroup = "vesting-custody-audit-cg"

// ClaimAuditConsumer re-audits an account's custody wallet whenever a
// tokens_claimed event for it is relayed.
type ClaimAuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Auditor       CustodyAuditor
	Topic         string
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c ClaimAuditConsumer) Start(ctx context.Context) error {
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	group := c.ConsumerGroup
	if group == "" {
		group = defaultAuditConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, topic, group, c.Handle)
}

// Handle ignores every event type except tokens_claimed.
func (c ClaimAuditConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	if event.EventType != contractsv1.EventTypeTokensClaimed {
		return nil
	}
	logger := application.ModuleLogger(c.Logger, "worker")

	var payload contractsv1.TokensClaimedData
	if err := event.DecodeData(contractsv1.EventTypeTokensClaimed, &payload); err != nil {
		return err
	}
	if payload.AccountID == "" {
		return errors.Newf("tokens claimed event %s missing account_id", event.EventID)
	}

	_, mismatched, err := c.Auditor.AuditAccount(ctx, payload.AccountID)
	if err != nil {
		logger.Error("claim audit failed",
			"event", "vesting_claim_audit_failed",
			"event_id", event.EventID,
			"account_id", payload.AccountID,
			"error", err.Error(),
		)
		return err
	}
	logger.Debug("claim audit completed",
		"event", "vesting_claim_audit_completed",
		"event_id", event.EventID,
		"account_id", payload.AccountID,
		"claim_id", payload.ClaimID,
		"mismatched", mismatched,
	)
	return nil
}
