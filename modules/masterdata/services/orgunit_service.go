package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
	"github.com/openelect/basis/pkg/composables"
	"github.com/openelect/basis/pkg/outbox"
)

// OutboxTable is where committed unit events wait for the relay.
var OutboxTable = pgx.Identifier{"masterdata_outbox"}

type EventStore interface {
	LoadStream(ctx context.Context, streamID uuid.UUID) ([]events.EventV1, error)
	// Append persists the events; a stream-version collision surfaces as a
	// unique violation and maps to a retryable conflict.
	Append(ctx context.Context, evs ...events.EventV1) error
}

type UnitRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*UnitRow, error)
	// Project upserts the full current-state projection of the aggregate:
	// unit row, details, parties, direct district assignments.
	Project(ctx context.Context, a *orgunit.Aggregate) error
}

type SnapshotRepository interface {
	// AppendSnapshot closes the unit's open validity slice at row.ValidFrom
	// and inserts the new one.
	AppendSnapshot(ctx context.Context, row SnapshotRow) error
	ListAsOf(ctx context.Context, asOf time.Time) ([]SnapshotRow, error)
}

// OrgUnitService orchestrates every unit command: replay, validate, append,
// project, cascade, rebuild, snapshot and outbox enqueue run in one
// transaction so readers never observe a half-applied change.
type OrgUnitService struct {
	events    EventStore
	units     UnitRepository
	snapshots SnapshotRepository
	rebuild   *RebuildService
	cascade   *CascadeService
	publisher outbox.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

func NewOrgUnitService(
	eventStore EventStore,
	units UnitRepository,
	snapshots SnapshotRepository,
	rebuild *RebuildService,
	cascade *CascadeService,
	publisher outbox.Publisher,
	log *logrus.Logger,
) *OrgUnitService {
	return &OrgUnitService{
		events:    eventStore,
		units:     units,
		snapshots: snapshots,
		rebuild:   rebuild,
		cascade:   cascade,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateUnitInput struct {
	ID        uuid.UUID
	Name      string
	ShortName string
	Kind      unitkind.Kind
	Canton    string
	TenantID  string
	ParentID  *uuid.UUID
}

type UpdateUnitInput struct {
	Name      string
	ShortName string
	Kind      unitkind.Kind
	Canton    string
	ParentID  *uuid.UUID
}

// MasterDataInput carries the peripheral unit details. Each non-nil part
// produces its own event; all of them commit atomically.
type MasterDataInput struct {
	ContactPerson                 *orgunit.ContactPerson
	VotingCardData                *orgunit.VotingCardData
	PlausibilisationConfiguration *orgunit.PlausibilisationConfiguration
}

type PartyInput struct {
	PartyID   uuid.UUID
	Name      string
	ShortName string
}

func (s *OrgUnitService) CreateUnit(ctx context.Context, in CreateUnitInput) (*orgunit.Aggregate, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	return s.execute(ctx, in.ID, func(txCtx context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		parent, err := s.parentInfo(txCtx, in.ParentID)
		if err != nil {
			return nil, err
		}
		ev, err := a.Create(orgunit.CreateData{
			ID:        in.ID,
			Name:      in.Name,
			ShortName: in.ShortName,
			Kind:      in.Kind,
			Canton:    in.Canton,
			TenantID:  in.TenantID,
			ParentID:  in.ParentID,
		}, parent, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) UpdateUnit(ctx context.Context, id uuid.UUID, in UpdateUnitInput) (*orgunit.Aggregate, error) {
	return s.execute(ctx, id, func(txCtx context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		parent, err := s.parentInfo(txCtx, in.ParentID)
		if err != nil {
			return nil, err
		}
		ev, err := a.Update(orgunit.UpdateData{
			Name:      in.Name,
			ShortName: in.ShortName,
			Kind:      in.Kind,
			Canton:    in.Canton,
			ParentID:  in.ParentID,
		}, parent, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

// UpdateMasterData emits one event per supplied part.
func (s *OrgUnitService) UpdateMasterData(ctx context.Context, id uuid.UUID, in MasterDataInput) (*orgunit.Aggregate, error) {
	return s.execute(ctx, id, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		// An all-nil input still requires an existing, undeleted unit.
		if err := a.Mutable(); err != nil {
			return nil, err
		}
		var evs []events.EventV1
		if in.ContactPerson != nil {
			ev, err := a.UpdateContactPerson(*in.ContactPerson, now)
			if err != nil {
				return nil, err
			}
			evs = append(evs, ev)
		}
		if in.VotingCardData != nil {
			ev, err := a.UpdateVotingCardData(*in.VotingCardData, now)
			if err != nil {
				return nil, err
			}
			evs = append(evs, ev)
		}
		if in.PlausibilisationConfiguration != nil {
			ev, err := a.UpdatePlausibilisationConfiguration(*in.PlausibilisationConfiguration, now)
			if err != nil {
				return nil, err
			}
			evs = append(evs, ev)
		}
		return evs, nil
	})
}

func (s *OrgUnitService) UpdateCountingCircleEntries(ctx context.Context, id uuid.UUID, districtIDs []uuid.UUID) (*orgunit.Aggregate, error) {
	return s.execute(ctx, id, func(txCtx context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		inheritedHere, directAtAncestors, err := s.conflictSets(txCtx, id)
		if err != nil {
			return nil, err
		}
		ev, err := a.UpdateCountingCircleEntries(districtIDs, inheritedHere, directAtAncestors, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	_, err := s.execute(ctx, id, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.Delete(now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
	return err
}

func (s *OrgUnitService) UpdateLogo(ctx context.Context, id uuid.UUID, logoRef string) (*orgunit.Aggregate, error) {
	return s.execute(ctx, id, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.UpdateLogo(logoRef, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) DeleteLogo(ctx context.Context, id uuid.UUID) (*orgunit.Aggregate, error) {
	return s.execute(ctx, id, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.DeleteLogo(now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) CreateParty(ctx context.Context, unitID uuid.UUID, in PartyInput) (*orgunit.Aggregate, error) {
	return s.execute(ctx, unitID, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.CreateParty(in.PartyID, in.Name, in.ShortName, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) UpdateParty(ctx context.Context, unitID uuid.UUID, in PartyInput) (*orgunit.Aggregate, error) {
	return s.execute(ctx, unitID, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.UpdateParty(in.PartyID, in.Name, in.ShortName, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

func (s *OrgUnitService) DeleteParty(ctx context.Context, unitID, partyID uuid.UUID) (*orgunit.Aggregate, error) {
	return s.execute(ctx, unitID, func(_ context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error) {
		ev, err := a.DeleteParty(partyID, now)
		if err != nil {
			return nil, err
		}
		return []events.EventV1{ev}, nil
	})
}

type commandFn func(txCtx context.Context, a *orgunit.Aggregate, now time.Time) ([]events.EventV1, error)

// execute is the shared command pipeline. Everything runs under the global
// rebuild lock inside one transaction: load and replay the stream, run the
// command, append with the expected version, project, cascade on deletion,
// rebuild both derived tables, append the snapshot slice and enqueue the
// events for the relay.
func (s *OrgUnitService) execute(ctx context.Context, unitID uuid.UUID, cmd commandFn) (*orgunit.Aggregate, error) {
	now := s.now()
	a, err := composables.InTxResult(ctx, func(txCtx context.Context) (*orgunit.Aggregate, error) {
		if err := s.rebuild.repo.LockTree(txCtx); err != nil {
			return nil, mapPgError(err)
		}

		stream, err := s.events.LoadStream(txCtx, unitID)
		if err != nil {
			return nil, mapPgError(err)
		}
		a, err := orgunit.Replay(unitID, stream)
		if err != nil {
			return nil, err
		}

		evs, err := cmd(txCtx, a, now)
		if err != nil {
			return nil, err
		}
		if len(evs) == 0 {
			return a, nil
		}

		if err := s.events.Append(txCtx, evs...); err != nil {
			return nil, mapPgError(err)
		}
		if err := s.units.Project(txCtx, a); err != nil {
			return nil, mapPgError(err)
		}

		for _, ev := range evs {
			if ev.EventType == events.TypeUnitDeleted {
				if err := s.cascade.DeleteUnitDependents(txCtx, unitID, now); err != nil {
					return nil, err
				}
				break
			}
		}

		if err := s.rebuild.Rebuild(txCtx); err != nil {
			return nil, err
		}

		if err := s.snapshots.AppendSnapshot(txCtx, snapshotOf(a, now)); err != nil {
			return nil, mapPgError(err)
		}
		basisSnapshotsWritten.Inc()

		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			payload, err := json.Marshal(ev)
			if err != nil {
				return nil, err
			}
			if _, err := s.publisher.Enqueue(txCtx, tx, OutboxTable, outbox.Message{
				TenantID: ev.TenantID,
				Topic:    events.TopicUnitChangedV1,
				EventID:  ev.EventID,
				Payload:  payload,
			}); err != nil {
				return nil, mapPgError(err)
			}
		}

		s.log.WithFields(logrus.Fields{
			"unit_id": unitID,
			"events":  len(evs),
			"version": a.Version,
		}).Info("unit command applied")
		return a, nil
	})
	if err != nil {
		return nil, mapDomainError(err)
	}
	return a, nil
}

func (s *OrgUnitService) parentInfo(ctx context.Context, parentID *uuid.UUID) (*orgunit.ParentInfo, error) {
	if parentID == nil {
		return nil, nil
	}
	row, err := s.units.Get(ctx, *parentID)
	if err != nil {
		// A missing parent is the aggregate's call, not a storage error.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	return &orgunit.ParentInfo{ID: row.ID, Kind: row.Kind, DeletedOn: row.DeletedOn}, nil
}

// conflictSets computes, from the live tree, the districts inherited at the
// unit (held directly by a strict descendant) and those held directly by a
// strict ancestor.
func (s *OrgUnitService) conflictSets(ctx context.Context, unitID uuid.UUID) (inheritedHere, directAtAncestors map[uuid.UUID]bool, err error) {
	units, err := s.rebuild.repo.ListUnits(ctx)
	if err != nil {
		return nil, nil, mapPgError(err)
	}
	direct, err := s.rebuild.repo.ListDirectAssignments(ctx)
	if err != nil {
		return nil, nil, mapPgError(err)
	}

	live := make(map[uuid.UUID]UnitRow, len(units))
	for _, u := range units {
		if u.DeletedOn == nil {
			live[u.ID] = u
		}
	}

	inheritedHere = make(map[uuid.UUID]bool)
	for otherID, districtIDs := range direct {
		if otherID == unitID {
			continue
		}
		for _, ancestor := range ancestorChain(live, otherID) {
			if ancestor == unitID {
				for _, d := range districtIDs {
					inheritedHere[d] = true
				}
				break
			}
		}
	}

	directAtAncestors = make(map[uuid.UUID]bool)
	for _, ancestor := range ancestorChain(live, unitID) {
		for _, d := range direct[ancestor] {
			directAtAncestors[d] = true
		}
	}
	return inheritedHere, directAtAncestors, nil
}

func snapshotOf(a *orgunit.Aggregate, now time.Time) SnapshotRow {
	return SnapshotRow{
		UnitID:            a.ID,
		ValidFrom:         now,
		Name:              a.Name,
		ShortName:         a.ShortName,
		Kind:              a.Kind,
		Canton:            a.Canton,
		TenantID:          a.TenantID,
		ParentID:          a.ParentID,
		DeletedOn:         a.DeletedOn,
		DirectDistrictIDs: a.DistrictIDs,
	}
}
