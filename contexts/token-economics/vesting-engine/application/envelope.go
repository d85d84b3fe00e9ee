package application

import (
	"encoding/json"

	"tokenvest/contexts/token-economics/vesting-engine/ports"
	contractsv1 "tokenvest/contracts/gen/events/v1"
)

const SourceService = "vesting-engine-service"

// BuildEnvelope wraps a vesting event in the canonical envelope. Adapters call
// it inside their write unit so outbox payloads are identical across stores.
func BuildEnvelope(event ports.VestingEvent) (ports.EventEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt.UTC(),
		SourceService:    SourceService,
		SchemaVersion:    contractsv1.SchemaVersion,
		PartitionKeyPath: contractsv1.PartitionKeyPathAccountID,
		PartitionKey:     event.PartitionKey,
		Data:             data,
	}, nil
}

// EncodeEnvelope returns the outbox payload for event.
func EncodeEnvelope(event ports.VestingEvent) ([]byte, error) {
	envelope, err := BuildEnvelope(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}
