package orgunit

import (
	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

// Event payloads, marshaled into events.EventV1.Payload.

type UnitCreated struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	ShortName string        `json:"short_name"`
	Kind      unitkind.Kind `json:"kind"`
	Canton    string        `json:"canton,omitempty"`
	TenantID  string        `json:"tenant_id"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty"`
}

type UnitUpdated struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	ShortName string        `json:"short_name"`
	Kind      unitkind.Kind `json:"kind"`
	Canton    string        `json:"canton,omitempty"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty"`
}

type CountingCircleEntriesUpdated struct {
	ID          uuid.UUID   `json:"id"`
	DistrictIDs []uuid.UUID `json:"district_ids"`
}

type UnitDeleted struct {
	ID uuid.UUID `json:"id"`
}

type ContactPersonUpdated struct {
	ID            uuid.UUID     `json:"id"`
	ContactPerson ContactPerson `json:"contact_person"`
}

type VotingCardDataUpdated struct {
	ID             uuid.UUID      `json:"id"`
	VotingCardData VotingCardData `json:"voting_card_data"`
}

type PlausibilisationConfigurationUpdated struct {
	ID            uuid.UUID                     `json:"id"`
	Configuration PlausibilisationConfiguration `json:"configuration"`
}

type LogoUpdated struct {
	ID      uuid.UUID `json:"id"`
	LogoRef string    `json:"logo_ref"`
}

type LogoDeleted struct {
	ID uuid.UUID `json:"id"`
}

type PartyCreated struct {
	UnitID    uuid.UUID `json:"unit_id"`
	PartyID   uuid.UUID `json:"party_id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
}

type PartyUpdated struct {
	UnitID    uuid.UUID `json:"unit_id"`
	PartyID   uuid.UUID `json:"party_id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
}

type PartyDeleted struct {
	UnitID  uuid.UUID `json:"unit_id"`
	PartyID uuid.UUID `json:"party_id"`
}
