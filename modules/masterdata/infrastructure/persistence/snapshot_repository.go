package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

// AppendSnapshot closes the unit's open validity slice at row.ValidFrom and
// inserts the new one. Slices are never updated in place, only superseded.
func (r *MasterDataRepository) AppendSnapshot(ctx context.Context, row services.SnapshotRow) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE unit_snapshots SET valid_to = $2 WHERE unit_id = $1 AND valid_to IS NULL
`, pgUUID(row.UnitID), row.ValidFrom); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO unit_snapshots (unit_id, valid_from, valid_to, name, short_name, kind, canton,
                            tenant_id, parent_id, deleted_on, direct_district_ids)
VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8, $9, $10)
`, pgUUID(row.UnitID), row.ValidFrom, row.Name, row.ShortName, row.Kind, row.Canton,
		row.TenantID, pgUUIDPtr(row.ParentID), pgTimePtr(row.DeletedOn), pgUUIDArray(row.DirectDistrictIDs))
	return err
}

func (r *MasterDataRepository) ListAsOf(ctx context.Context, asOf time.Time) ([]services.SnapshotRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT unit_id, valid_from, valid_to, name, short_name, kind, canton,
       tenant_id, parent_id, deleted_on, direct_district_ids
  FROM unit_snapshots
 WHERE valid_from <= $1
   AND (valid_to IS NULL OR valid_to > $1)
 ORDER BY unit_id
`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.SnapshotRow
	for rows.Next() {
		var (
			row       services.SnapshotRow
			validTo   pgtype.Timestamptz
			parentID  pgtype.UUID
			deletedOn pgtype.Timestamptz
			districts []uuid.UUID
		)
		if err := rows.Scan(&row.UnitID, &row.ValidFrom, &validTo, &row.Name, &row.ShortName,
			&row.Kind, &row.Canton, &row.TenantID, &parentID, &deletedOn, &districts); err != nil {
			return nil, err
		}
		row.ValidTo = timePtrFrom(validTo)
		row.ParentID = uuidPtrFrom(parentID)
		row.DeletedOn = timePtrFrom(deletedOn)
		row.DirectDistrictIDs = districts
		out = append(out, row)
	}
	return out, rows.Err()
}
