package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/pkg/eventbus"
	"github.com/openelect/basis/pkg/outbox"
)

// Dispatcher decodes committed unit events off the relay and republishes
// them on the in-process bus.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func NewDispatcher(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	_ = ctx
	if d == nil || d.bus == nil {
		return fmt.Errorf("masterdata outbox dispatcher: bus is nil")
	}

	if msg.Meta.Topic != events.TopicUnitChangedV1 {
		return fmt.Errorf("masterdata outbox dispatcher: unsupported topic %q", msg.Meta.Topic)
	}

	var ev events.EventV1
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("masterdata outbox dispatcher: decode payload: %w", err)
	}

	return d.bus.PublishE(&msg.Meta, &ev)
}
