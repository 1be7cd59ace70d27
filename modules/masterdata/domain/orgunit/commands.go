package orgunit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

// Create validates the hierarchy invariants against the supplied parent view
// and emits the creation event.
func (a *Aggregate) Create(d CreateData, parent *ParentInfo, now time.Time) (events.EventV1, error) {
	if a.Version > 0 {
		return events.EventV1{}, ErrAlreadyExists
	}
	d.Name = strings.TrimSpace(d.Name)
	d.ShortName = strings.TrimSpace(d.ShortName)
	if d.Name == "" {
		return events.EventV1{}, fieldErr("name", "is required")
	}
	if !d.Kind.Valid() {
		return events.EventV1{}, fieldErr("kind", "is required")
	}
	if d.TenantID == "" {
		return events.EventV1{}, fieldErr("tenant_id", "is required")
	}
	canton, err := validateHierarchy(d.Kind, d.Canton, d.ParentID, parent)
	if err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypeUnitCreated, d.TenantID, UnitCreated{
		ID:        d.ID,
		Name:      d.Name,
		ShortName: d.ShortName,
		Kind:      d.Kind,
		Canton:    canton,
		TenantID:  d.TenantID,
		ParentID:  d.ParentID,
	}, now)
}

// Update re-validates the hierarchy invariants; changing the parent is
// allowed and forces a full hierarchy rebuild downstream.
func (a *Aggregate) Update(d UpdateData, parent *ParentInfo, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	d.Name = strings.TrimSpace(d.Name)
	d.ShortName = strings.TrimSpace(d.ShortName)
	if d.Name == "" {
		return events.EventV1{}, fieldErr("name", "is required")
	}
	if !d.Kind.Valid() {
		return events.EventV1{}, fieldErr("kind", "is required")
	}
	canton, err := validateHierarchy(d.Kind, d.Canton, d.ParentID, parent)
	if err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypeUnitUpdated, a.TenantID, UnitUpdated{
		ID:        a.ID,
		Name:      d.Name,
		ShortName: d.ShortName,
		Kind:      d.Kind,
		Canton:    canton,
		ParentID:  d.ParentID,
	}, now)
}

// UpdateCountingCircleEntries replaces the full set of directly assigned
// districts. A target district that is already inherited at this unit (held
// directly by a descendant) or held directly by an ancestor would put two
// direct assignments on one root-to-leaf path and is rejected.
func (a *Aggregate) UpdateCountingCircleEntries(target []uuid.UUID, inheritedHere, directAtAncestors map[uuid.UUID]bool, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}

	seen := make(map[uuid.UUID]bool, len(target))
	ids := make([]uuid.UUID, 0, len(target))
	for _, id := range target {
		if id == uuid.Nil {
			return events.EventV1{}, fieldErr("district_ids", "contains an empty id")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if inheritedHere[id] || directAtAncestors[id] {
			return events.EventV1{}, fmt.Errorf("district %s: %w", id, ErrDistrictAlreadyInherited)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return a.emit(events.TypeCountingCircleEntriesUpdated, a.TenantID, CountingCircleEntriesUpdated{
		ID:          a.ID,
		DistrictIDs: ids,
	}, now)
}

// Delete emits the single deletion event; cascading across other aggregates
// is the projection layer's responsibility.
func (a *Aggregate) Delete(now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypeUnitDeleted, a.TenantID, UnitDeleted{ID: a.ID}, now)
}

func (a *Aggregate) UpdateContactPerson(cp ContactPerson, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypeContactPersonUpdated, a.TenantID, ContactPersonUpdated{ID: a.ID, ContactPerson: cp}, now)
}

func (a *Aggregate) UpdateVotingCardData(v VotingCardData, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypeVotingCardDataUpdated, a.TenantID, VotingCardDataUpdated{ID: a.ID, VotingCardData: v}, now)
}

func (a *Aggregate) UpdatePlausibilisationConfiguration(c PlausibilisationConfiguration, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	return a.emit(events.TypePlausibilisationConfigurationUpdated, a.TenantID, PlausibilisationConfigurationUpdated{ID: a.ID, Configuration: c}, now)
}

func (a *Aggregate) UpdateLogo(ref string, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return events.EventV1{}, fieldErr("logo_ref", "is required")
	}
	return a.emit(events.TypeLogoUpdated, a.TenantID, LogoUpdated{ID: a.ID, LogoRef: ref}, now)
}

func (a *Aggregate) DeleteLogo(now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	if a.LogoRef == "" {
		return events.EventV1{}, ErrNoLogo
	}
	return a.emit(events.TypeLogoDeleted, a.TenantID, LogoDeleted{ID: a.ID}, now)
}

func (a *Aggregate) CreateParty(partyID uuid.UUID, name, shortName string, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return events.EventV1{}, fieldErr("party.name", "is required")
	}
	if partyID == uuid.Nil {
		partyID = uuid.New()
	}
	return a.emit(events.TypePartyCreated, a.TenantID, PartyCreated{
		UnitID:    a.ID,
		PartyID:   partyID,
		Name:      name,
		ShortName: strings.TrimSpace(shortName),
	}, now)
}

func (a *Aggregate) UpdateParty(partyID uuid.UUID, name, shortName string, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	party, ok := a.Parties[partyID]
	if !ok || party.Deleted {
		return events.EventV1{}, ErrPartyNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return events.EventV1{}, fieldErr("party.name", "is required")
	}
	return a.emit(events.TypePartyUpdated, a.TenantID, PartyUpdated{
		UnitID:    a.ID,
		PartyID:   partyID,
		Name:      name,
		ShortName: strings.TrimSpace(shortName),
	}, now)
}

// DeleteParty tombstones the party; the row survives so historical candidate
// references resolve to a recognizable deleted sentinel.
func (a *Aggregate) DeleteParty(partyID uuid.UUID, now time.Time) (events.EventV1, error) {
	if err := a.Mutable(); err != nil {
		return events.EventV1{}, err
	}
	party, ok := a.Parties[partyID]
	if !ok || party.Deleted {
		return events.EventV1{}, ErrPartyNotFound
	}
	return a.emit(events.TypePartyDeleted, a.TenantID, PartyDeleted{UnitID: a.ID, PartyID: partyID}, now)
}

// Mutable reports whether commands may run against the unit: it must exist
// and must not be deleted.
func (a *Aggregate) Mutable() error {
	if a.Version == 0 {
		return ErrNotFound
	}
	if a.DeletedOn != nil {
		return ErrDeleted
	}
	return nil
}

// validateHierarchy enforces the parent-facing invariants shared by Create
// and Update. Returns the canton to persist: mandatory at the root, cleared
// below it.
func validateHierarchy(kind unitkind.Kind, canton string, parentID *uuid.UUID, parent *ParentInfo) (string, error) {
	canton = strings.TrimSpace(strings.ToUpper(canton))
	if parentID == nil {
		if canton == "" {
			return "", fieldErr("canton", "is required on a root unit")
		}
		return canton, nil
	}

	if parent == nil || parent.ID != *parentID || parent.DeletedOn != nil {
		return "", ErrParentNotFound
	}
	if kind.Political() != parent.Kind.Political() {
		return "", ErrPoliticalMismatch
	}
	if kind.Level() < parent.Kind.Level() {
		return "", fmt.Errorf("kind %s under parent kind %s: %w", kind, parent.Kind, ErrKindLevelAboveParent)
	}
	// Canton only carries meaning at the root.
	return "", nil
}
