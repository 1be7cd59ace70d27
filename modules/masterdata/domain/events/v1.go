package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicUnitChangedV1 = "basis.unit.changed.v1"
	EventVersionV1     = 1
)

// Event type identifiers carried in EventV1.EventType. One event is appended
// per logical change; a request touching several sub-entities appends several.
const (
	TypeUnitCreated                          = "unit.created"
	TypeUnitUpdated                          = "unit.updated"
	TypeCountingCircleEntriesUpdated         = "unit.counting_circle_entries.updated"
	TypeUnitDeleted                          = "unit.deleted"
	TypeContactPersonUpdated                 = "unit.contact_person.updated"
	TypeVotingCardDataUpdated                = "unit.voting_card_data.updated"
	TypePlausibilisationConfigurationUpdated = "unit.plausibilisation_configuration.updated"
	TypeLogoUpdated                          = "unit.logo.updated"
	TypeLogoDeleted                          = "unit.logo.deleted"
	TypePartyCreated                         = "unit.party.created"
	TypePartyUpdated                         = "unit.party.updated"
	TypePartyDeleted                         = "unit.party.deleted"
)

// EventV1 is the stored and dispatched envelope. StreamVersion is strictly
// increasing per stream (unit) and backs optimistic concurrency on append.
type EventV1 struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	StreamID      uuid.UUID       `json:"stream_id"`
	StreamVersion int64           `json:"stream_version"`
	EventType     string          `json:"event_type"`
	TenantID      string          `json:"tenant_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}
