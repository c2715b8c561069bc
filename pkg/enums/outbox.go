package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateStock    OutboxAggregateType = "stock"
	AggregateAssembly OutboxAggregateType = "assembly"
	AggregateItemCode OutboxAggregateType = "item_code"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateStock,
	AggregateAssembly,
	AggregateItemCode,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventStockAdded          OutboxEventType = "stock.added"
	EventStockTaken          OutboxEventType = "stock.taken"
	EventStockMoved          OutboxEventType = "stock.moved"
	EventStockRollback       OutboxEventType = "stock.rollback"
	EventAssemblyPartAdded   OutboxEventType = "assembly.part-added"
	EventAssemblyPartUpdated OutboxEventType = "assembly.part-updated"
	EventAssemblyPartRemoved OutboxEventType = "assembly.part-removed"
	EventCodeGenerated       OutboxEventType = "code.generated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventStockAdded,
	EventStockTaken,
	EventStockMoved,
	EventStockRollback,
	EventAssemblyPartAdded,
	EventAssemblyPartUpdated,
	EventAssemblyPartRemoved,
	EventCodeGenerated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
