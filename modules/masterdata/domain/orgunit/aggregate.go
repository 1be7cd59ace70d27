package orgunit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

// Aggregate is the event-sourced organizational unit. State is rebuilt from
// the stream; commands validate and emit, never mutate directly. Version is
// the last applied stream version and backs optimistic appends.
type Aggregate struct {
	ID        uuid.UUID
	Name      string
	ShortName string
	Kind      unitkind.Kind
	Canton    string
	TenantID  string
	ParentID  *uuid.UUID
	DeletedOn *time.Time

	ContactPerson  ContactPerson
	VotingCardData VotingCardData
	PlausiConfig   PlausibilisationConfiguration
	LogoRef        string
	DistrictIDs    []uuid.UUID
	Parties        map[uuid.UUID]Party

	Version int64
}

func New(id uuid.UUID) *Aggregate {
	return &Aggregate{ID: id, Parties: map[uuid.UUID]Party{}}
}

// Replay rebuilds the aggregate from its ordered event stream.
func Replay(id uuid.UUID, stream []events.EventV1) (*Aggregate, error) {
	a := New(id)
	for _, ev := range stream {
		if ev.StreamID != id {
			return nil, fmt.Errorf("event %s belongs to stream %s, not %s", ev.EventID, ev.StreamID, id)
		}
		if ev.StreamVersion != a.Version+1 {
			return nil, fmt.Errorf("stream %s: expected version %d, got %d", id, a.Version+1, ev.StreamVersion)
		}
		if err := a.apply(ev); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Aggregate) Exists() bool {
	return a.Version > 0 && a.DeletedOn == nil
}

func (a *Aggregate) Political() bool {
	return a.Kind.Political()
}

func (a *Aggregate) apply(ev events.EventV1) error {
	switch ev.EventType {
	case events.TypeUnitCreated:
		var p UnitCreated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.Name = p.Name
		a.ShortName = p.ShortName
		a.Kind = p.Kind
		a.Canton = p.Canton
		a.TenantID = p.TenantID
		a.ParentID = p.ParentID
	case events.TypeUnitUpdated:
		var p UnitUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.Name = p.Name
		a.ShortName = p.ShortName
		a.Kind = p.Kind
		a.Canton = p.Canton
		a.ParentID = p.ParentID
	case events.TypeCountingCircleEntriesUpdated:
		var p CountingCircleEntriesUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.DistrictIDs = p.DistrictIDs
	case events.TypeUnitDeleted:
		t := ev.OccurredAt
		a.DeletedOn = &t
		// Candidates on retained contests of other units may still point at
		// these parties; they stay resolvable as recognizably deleted.
		for id, p := range a.Parties {
			p.Deleted = true
			a.Parties[id] = p
		}
	case events.TypeContactPersonUpdated:
		var p ContactPersonUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.ContactPerson = p.ContactPerson
	case events.TypeVotingCardDataUpdated:
		var p VotingCardDataUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.VotingCardData = p.VotingCardData
	case events.TypePlausibilisationConfigurationUpdated:
		var p PlausibilisationConfigurationUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.PlausiConfig = p.Configuration
	case events.TypeLogoUpdated:
		var p LogoUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.LogoRef = p.LogoRef
	case events.TypeLogoDeleted:
		a.LogoRef = ""
	case events.TypePartyCreated:
		var p PartyCreated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		a.Parties[p.PartyID] = Party{ID: p.PartyID, Name: p.Name, ShortName: p.ShortName}
	case events.TypePartyUpdated:
		var p PartyUpdated
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		party := a.Parties[p.PartyID]
		party.ID = p.PartyID
		party.Name = p.Name
		party.ShortName = p.ShortName
		a.Parties[p.PartyID] = party
	case events.TypePartyDeleted:
		var p PartyDeleted
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		party := a.Parties[p.PartyID]
		party.ID = p.PartyID
		party.Deleted = true
		a.Parties[p.PartyID] = party
	default:
		return fmt.Errorf("unknown event type %q", ev.EventType)
	}
	a.Version = ev.StreamVersion
	return nil
}

// emit builds the next envelope, applies it, and returns it for appending.
// The tenant is passed explicitly because on creation the aggregate state
// does not carry one yet.
func (a *Aggregate) emit(eventType, tenantID string, payload any, now time.Time) (events.EventV1, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return events.EventV1{}, err
	}
	ev := events.EventV1{
		EventID:       uuid.New(),
		EventVersion:  events.EventVersionV1,
		StreamID:      a.ID,
		StreamVersion: a.Version + 1,
		EventType:     eventType,
		TenantID:      tenantID,
		OccurredAt:    now.UTC(),
		Payload:       raw,
	}
	if err := a.apply(ev); err != nil {
		return events.EventV1{}, err
	}
	return ev, nil
}
