package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

func (r *MasterDataRepository) ListByUnits(ctx context.Context, unitIDs []uuid.UUID) ([]services.PartyRow, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT id, unit_id, name, short_name, deleted
  FROM parties
 WHERE unit_id = ANY($1)
 ORDER BY name, id
`, pgUUIDArray(unitIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.PartyRow
	for rows.Next() {
		var p services.PartyRow
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Name, &p.ShortName, &p.Deleted); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
