package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

func (r *MasterDataRepository) ListContests(ctx context.Context, unitID uuid.UUID) ([]services.ContestRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT id, unit_id, testing_phase_end FROM contests WHERE unit_id = $1 ORDER BY id
`, pgUUID(unitID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.ContestRow
	for rows.Next() {
		var c services.ContestRow
		if err := rows.Scan(&c.ID, &c.UnitID, &c.TestingPhaseEnd); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// cascadeDeletes holds the per-kind statements, each scoped to a contest id
// set. Party rows are deliberately absent: they are tombstoned by the
// projection so historical candidate links keep resolving.
var cascadeDeletes = map[services.EntityKind]string{
	services.KindBallotGroupEntry: `
DELETE FROM ballot_group_entries
 WHERE ballot_group_id IN (SELECT id FROM ballot_groups WHERE contest_id = ANY($1))`,
	services.KindBallotGroup: `DELETE FROM ballot_groups WHERE contest_id = ANY($1)`,
	services.KindElectionUnionEntry: `
DELETE FROM election_union_entries
 WHERE election_union_id IN (SELECT id FROM election_unions WHERE contest_id = ANY($1))`,
	services.KindElectionUnion: `DELETE FROM election_unions WHERE contest_id = ANY($1)`,
	services.KindCandidate: `
DELETE FROM candidates
 WHERE election_id IN (SELECT id FROM elections WHERE contest_id = ANY($1))`,
	services.KindListUnion: `
DELETE FROM list_unions
 WHERE election_id IN (SELECT id FROM elections WHERE contest_id = ANY($1))`,
	services.KindList: `
DELETE FROM lists
 WHERE election_id IN (SELECT id FROM elections WHERE contest_id = ANY($1))`,
	services.KindElection: `DELETE FROM elections WHERE contest_id = ANY($1)`,
	services.KindVote:     `DELETE FROM votes WHERE contest_id = ANY($1)`,
}

func (r *MasterDataRepository) DeleteForContests(ctx context.Context, kind services.EntityKind, contestIDs []uuid.UUID) (int64, error) {
	if len(contestIDs) == 0 {
		return 0, nil
	}
	stmt, ok := cascadeDeletes[kind]
	if !ok {
		return 0, fmt.Errorf("no cascade statement for entity kind %q", kind)
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, stmt, pgUUIDArray(contestIDs))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MasterDataRepository) DeleteContests(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM contests WHERE id = ANY($1)`, pgUUIDArray(ids))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MasterDataRepository) DeleteExportConfigurations(ctx context.Context, unitID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM export_configurations WHERE unit_id = $1`, pgUUID(unitID))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
