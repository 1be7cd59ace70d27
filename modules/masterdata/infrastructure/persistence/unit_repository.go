package persistence

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

func (r *MasterDataRepository) Get(ctx context.Context, id uuid.UUID) (*services.UnitRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var (
		row       services.UnitRow
		parentID  pgtype.UUID
		deletedOn pgtype.Timestamptz
	)
	err = tx.QueryRow(ctx, `
SELECT id, name, short_name, kind, canton, tenant_id, parent_id, deleted_on
  FROM units
 WHERE id = $1
`, pgUUID(id)).Scan(&row.ID, &row.Name, &row.ShortName, &row.Kind, &row.Canton, &row.TenantID, &parentID, &deletedOn)
	if err != nil {
		return nil, err
	}
	row.ParentID = uuidPtrFrom(parentID)
	row.DeletedOn = timePtrFrom(deletedOn)
	return &row, nil
}

// Project upserts the aggregate's full current state: the unit row with its
// detail documents, the party rows and the direct district assignments.
func (r *MasterDataRepository) Project(ctx context.Context, a *orgunit.Aggregate) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	contact, err := json.Marshal(a.ContactPerson)
	if err != nil {
		return err
	}
	votingCard, err := json.Marshal(a.VotingCardData)
	if err != nil {
		return err
	}
	plausi, err := json.Marshal(a.PlausiConfig)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO units (id, name, short_name, kind, canton, tenant_id, parent_id, deleted_on,
                   contact_person, voting_card_data, plausibilisation_configuration, logo_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    short_name = EXCLUDED.short_name,
    kind = EXCLUDED.kind,
    canton = EXCLUDED.canton,
    parent_id = EXCLUDED.parent_id,
    deleted_on = EXCLUDED.deleted_on,
    contact_person = EXCLUDED.contact_person,
    voting_card_data = EXCLUDED.voting_card_data,
    plausibilisation_configuration = EXCLUDED.plausibilisation_configuration,
    logo_ref = EXCLUDED.logo_ref
`, pgUUID(a.ID), a.Name, a.ShortName, a.Kind, a.Canton, a.TenantID, pgUUIDPtr(a.ParentID),
		pgTimePtr(a.DeletedOn), contact, votingCard, plausi, a.LogoRef); err != nil {
		return err
	}

	partyIDs := make([]uuid.UUID, 0, len(a.Parties))
	for id := range a.Parties {
		partyIDs = append(partyIDs, id)
	}
	sort.Slice(partyIDs, func(i, j int) bool { return partyIDs[i].String() < partyIDs[j].String() })
	for _, id := range partyIDs {
		p := a.Parties[id]
		if _, err := tx.Exec(ctx, `
INSERT INTO parties (id, unit_id, name, short_name, deleted)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    short_name = EXCLUDED.short_name,
    deleted = EXCLUDED.deleted
`, pgUUID(p.ID), pgUUID(a.ID), p.Name, p.ShortName, p.Deleted); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM unit_district_assignments WHERE unit_id = $1`, pgUUID(a.ID)); err != nil {
		return err
	}
	for _, districtID := range a.DistrictIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO unit_district_assignments (unit_id, district_id) VALUES ($1, $2)
`, pgUUID(a.ID), pgUUID(districtID)); err != nil {
			return err
		}
	}
	return nil
}
