package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

const treeLockKey = "basis:masterdata:tree"

// LockTree serializes structural mutations and rebuilds for the duration of
// the current transaction.
func (r *MasterDataRepository) LockTree(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", treeLockKey)
	return err
}

func (r *MasterDataRepository) ListUnits(ctx context.Context) ([]services.UnitRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT id, name, short_name, kind, canton, tenant_id, parent_id, deleted_on
  FROM units
 ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.UnitRow
	for rows.Next() {
		var (
			row       services.UnitRow
			parentID  pgtype.UUID
			deletedOn pgtype.Timestamptz
		)
		if err := rows.Scan(&row.ID, &row.Name, &row.ShortName, &row.Kind, &row.Canton, &row.TenantID, &parentID, &deletedOn); err != nil {
			return nil, err
		}
		row.ParentID = uuidPtrFrom(parentID)
		row.DeletedOn = timePtrFrom(deletedOn)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *MasterDataRepository) ListDirectAssignments(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT unit_id, district_id FROM unit_district_assignments ORDER BY unit_id, district_id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var unitID, districtID uuid.UUID
		if err := rows.Scan(&unitID, &districtID); err != nil {
			return nil, err
		}
		out[unitID] = append(out[unitID], districtID)
	}
	return out, rows.Err()
}

func (r *MasterDataRepository) ListDistricts(ctx context.Context) ([]services.DistrictRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT id, name, authority_tenant_id FROM districts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.DistrictRow
	for rows.Next() {
		var row services.DistrictRow
		if err := rows.Scan(&row.ID, &row.Name, &row.AuthorityTenantID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *MasterDataRepository) UpsertDistrict(ctx context.Context, row services.DistrictRow) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO districts (id, name, authority_tenant_id)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, authority_tenant_id = EXCLUDED.authority_tenant_id
`, pgUUID(row.ID), row.Name, row.AuthorityTenantID)
	return err
}

// ReplaceAssignments rewrites the whole derived assignment table. Replace
// then insert keeps the rebuild idempotent.
func (r *MasterDataRepository) ReplaceAssignments(ctx context.Context, rows []services.Assignment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM district_assignments`); err != nil {
		return err
	}
	for _, a := range rows {
		if _, err := tx.Exec(ctx, `
INSERT INTO district_assignments (unit_id, district_id, inherited) VALUES ($1, $2, $3)
`, pgUUID(a.UnitID), pgUUID(a.DistrictID), a.Inherited); err != nil {
			return err
		}
	}
	return nil
}

func (r *MasterDataRepository) ReplacePermissions(ctx context.Context, rows []services.PermissionEntry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM permission_entries`); err != nil {
		return err
	}
	for _, p := range rows {
		if _, err := tx.Exec(ctx, `
INSERT INTO permission_entries (tenant_id, unit_id, district_id) VALUES ($1, $2, $3)
`, p.TenantID, pgUUID(p.UnitID), pgUUIDPtr(p.DistrictID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *MasterDataRepository) ListAssignments(ctx context.Context) ([]services.Assignment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT unit_id, district_id, inherited FROM district_assignments ORDER BY unit_id, district_id, inherited
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.Assignment
	for rows.Next() {
		var a services.Assignment
		if err := rows.Scan(&a.UnitID, &a.DistrictID, &a.Inherited); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *MasterDataRepository) ListVisibleUnits(ctx context.Context, tenantID string) (map[uuid.UUID]bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT DISTINCT unit_id FROM permission_entries WHERE tenant_id = $1
`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
