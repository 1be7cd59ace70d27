package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SnapshotService reconstructs the tree as of an arbitrary point in time
// from the unit snapshot slices. District inheritance is recomputed over the
// historical rows with the same builder used for the live table.
type SnapshotService struct {
	snapshots   SnapshotRepository
	permissions PermissionRepository
}

func NewSnapshotService(snapshots SnapshotRepository, permissions PermissionRepository) *SnapshotService {
	return &SnapshotService{snapshots: snapshots, permissions: permissions}
}

// ListTreeSnapshot returns the forest exactly as it stood after the last
// change at or before asOf. Units deleted by then only appear when
// includeDeleted is set.
func (s *SnapshotService) ListTreeSnapshot(ctx context.Context, asOf time.Time, includeDeleted bool) ([]*TreeNode, error) {
	rows, err := s.snapshots.ListAsOf(ctx, asOf)
	if err != nil {
		return nil, mapPgError(err)
	}

	units := make([]UnitRow, 0, len(rows))
	direct := make(map[uuid.UUID][]uuid.UUID)
	for _, row := range rows {
		if row.DeletedOn != nil && !includeDeleted {
			continue
		}
		units = append(units, snapshotUnit(row))
		if len(row.DirectDistrictIDs) > 0 {
			direct[row.UnitID] = row.DirectDistrictIDs
		}
	}

	assignments := buildDistrictAssignments(units, direct)
	return buildForest(units, assignments), nil
}

// ListSnapshot returns the units that carried the district, directly or
// inherited, as of the given time. Visibility is checked against the current
// permission table: history answers what was, the index decides who may ask.
func (s *SnapshotService) ListSnapshot(ctx context.Context, tenantID string, districtID uuid.UUID, asOf time.Time) ([]UnitRow, error) {
	visible, err := s.permissions.ListVisibleUnits(ctx, tenantID)
	if err != nil {
		return nil, mapPgError(err)
	}
	rows, err := s.snapshots.ListAsOf(ctx, asOf)
	if err != nil {
		return nil, mapPgError(err)
	}

	byID := make(map[uuid.UUID]UnitRow, len(rows))
	units := make([]UnitRow, 0, len(rows))
	direct := make(map[uuid.UUID][]uuid.UUID)
	for _, row := range rows {
		u := snapshotUnit(row)
		byID[u.ID] = u
		units = append(units, u)
		if len(row.DirectDistrictIDs) > 0 {
			direct[row.UnitID] = row.DirectDistrictIDs
		}
	}

	var out []UnitRow
	seen := make(map[uuid.UUID]bool)
	for _, a := range buildDistrictAssignments(units, direct) {
		if a.DistrictID != districtID || seen[a.UnitID] || !visible[a.UnitID] {
			continue
		}
		seen[a.UnitID] = true
		out = append(out, byID[a.UnitID])
	}
	sortUnits(out)
	return out, nil
}

func snapshotUnit(row SnapshotRow) UnitRow {
	return UnitRow{
		ID:        row.UnitID,
		Name:      row.Name,
		ShortName: row.ShortName,
		Kind:      row.Kind,
		Canton:    row.Canton,
		TenantID:  row.TenantID,
		ParentID:  row.ParentID,
		DeletedOn: row.DeletedOn,
	}
}

func sortUnits(rows []UnitRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.String() < rows[j].ID.String() })
}
