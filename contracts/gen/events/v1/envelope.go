package v1

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// SchemaVersion is bumped whenever a Data payload changes incompatibly.
	SchemaVersion = 1

	// PartitionKeyPathAccountID orders every vesting event per account.
	PartitionKeyPathAccountID = "account_id"
)

var (
	ErrMalformedEnvelope   = errors.New("malformed vesting event envelope")
	ErrUnsupportedSchema   = errors.New("unsupported vesting event schema version")
	ErrUnexpectedEventType = errors.New("unexpected vesting event type")
)

// Envelope wraps one vesting event on the outbox topic. Data holds one of the
// *Data payloads in this package, selected by EventType.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// KnownEventType reports whether eventType is published by the vesting engine.
func KnownEventType(eventType string) bool {
	switch eventType {
	case EventTypeAccountInitialized,
		EventTypeAccountReleased,
		EventTypeRoundConfirmed,
		EventTypeTokensClaimed:
		return true
	}
	return false
}

// Validate checks the routing fields a relay needs before publishing.
func (e Envelope) Validate() error {
	switch {
	case e.EventID == "":
		return errors.Wrap(ErrMalformedEnvelope, "missing event_id")
	case !KnownEventType(e.EventType):
		return errors.Wrapf(ErrUnexpectedEventType, "%q", e.EventType)
	case e.SchemaVersion != SchemaVersion:
		return errors.Wrapf(ErrUnsupportedSchema, "event %s has version %d", e.EventID, e.SchemaVersion)
	case e.PartitionKey == "":
		return errors.Wrapf(ErrMalformedEnvelope, "event %s missing partition_key", e.EventID)
	}
	return nil
}

// DecodeData unmarshals Data into out after checking the event type and schema
// version, so consumers never read a payload they do not understand.
func (e Envelope) DecodeData(eventType string, out any) error {
	if e.EventType != eventType {
		return errors.Wrapf(ErrUnexpectedEventType, "want %q got %q", eventType, e.EventType)
	}
	if e.SchemaVersion != SchemaVersion {
		return errors.Wrapf(ErrUnsupportedSchema, "event %s has version %d", e.EventID, e.SchemaVersion)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return errors.Wrapf(ErrMalformedEnvelope, "decode %s payload: %v", eventType, err)
	}
	return nil
}
