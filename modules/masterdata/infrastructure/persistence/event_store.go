package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/pkg/composables"
)

// MasterDataRepository is the single pgx-backed store for the master-data
// module: event streams, the current-state projection, the derived tables,
// snapshots and the cascade dependents. All methods run on the transaction
// carried by the context.
type MasterDataRepository struct{}

func NewMasterDataRepository() *MasterDataRepository {
	return &MasterDataRepository{}
}

func (r *MasterDataRepository) LoadStream(ctx context.Context, streamID uuid.UUID) ([]events.EventV1, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT event_id, event_version, stream_id, stream_version, event_type, tenant_id, occurred_at, payload
  FROM unit_events
 WHERE stream_id = $1
 ORDER BY stream_version
`, pgUUID(streamID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.EventV1
	for rows.Next() {
		var ev events.EventV1
		if err := rows.Scan(&ev.EventID, &ev.EventVersion, &ev.StreamID, &ev.StreamVersion, &ev.EventType, &ev.TenantID, &ev.OccurredAt, &ev.Payload); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Append inserts the events one by one. The unique key on
// (stream_id, stream_version) turns a lost optimistic race into a constraint
// violation instead of a silent overwrite.
func (r *MasterDataRepository) Append(ctx context.Context, evs ...events.EventV1) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if _, err := tx.Exec(ctx, `
INSERT INTO unit_events (event_id, event_version, stream_id, stream_version, event_type, tenant_id, occurred_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, pgUUID(ev.EventID), ev.EventVersion, pgUUID(ev.StreamID), ev.StreamVersion, ev.EventType, ev.TenantID, ev.OccurredAt, ev.Payload); err != nil {
			return fmt.Errorf("append %s v%d: %w", ev.EventType, ev.StreamVersion, err)
		}
	}
	return nil
}
